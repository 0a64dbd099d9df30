// Package screen detects discriminatory or sensitive language before any
// text is allowed to advance through the workflow.
package screen

import (
	"regexp"
	"sort"
)

// Phase tags which text is being screened; policy differs per phase
// (request flags abort, draft flags enter the bounded rewrite loop).
type Phase string

const (
	PhaseRequest Phase = "request"
	PhaseDraft   Phase = "draft"
)

// Violation categories, mirroring the original validator's criteria:
// discriminatory wording, invasive personal-data demands, exclusionary
// conditions, and hostile phrasing.
const (
	CategoryGender       = "gender_discrimination"
	CategoryAge          = "age_discrimination"
	CategoryRegion       = "regional_origin_discrimination"
	CategoryAppearance   = "appearance_discrimination"
	CategoryReligion     = "religious_discrimination"
	CategoryPersonalData = "invasive_personal_data"
	CategoryHostile      = "hostile_or_demeaning"
)

// Result is the outcome of one screening pass.
type Result struct {
	Phase      Phase    `json:"phase"`
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
	Spans      []string `json:"offending_spans,omitempty"`
}

// Screen scans text against a per-category lexicon. The default lexicon
// covers Korean and English phrasing; the scan is deterministic so the same
// text always yields the same result.
type Screen struct {
	rules map[string][]*regexp.Regexp
}

var defaultLexicon = map[string][]string{
	CategoryGender: {
		`(남성|남자|여성|여자)\s*(만|분만|에\s*한함|우대)`,
		`(?i)\b(males?|females?|men|women)\s+only\b`,
	},
	CategoryAge: {
		`\d{2}\s*세\s*(이하|미만|이상만)`,
		`(20|30|40|50)대\s*(만|이하|까지)`,
		`나이\s*제한`,
		`(?i)\bunder\s+\d{2}\s+(years?\s+old|only)\b`,
	},
	CategoryRegion: {
		`출신\s*(지역|학교)?\s*(제외|우대|제한)`,
		`[가-힣]{2,}\s*출신만`,
	},
	CategoryAppearance: {
		`용모\s*단정`,
		`외모\s*(단정|우수|평가)`,
		`키\s*\d{3}\s*(cm)?\s*이상`,
		`(?i)\battractive\s+appearance\b`,
	},
	CategoryReligion: {
		`(특정\s*)?종교\s*(인만|필수|제한|보유)`,
		`(교인|신자)\s*만`,
	},
	CategoryPersonalData: {
		`주민등록번호`,
		`가족\s*(관계|사항)\s*(기재|제출|요구)`,
		`(혼인|결혼)\s*여부`,
		`(?i)\bsocial\s+security\s+number\b`,
		`(?i)\bmarital\s+status\s+required\b`,
	},
	CategoryHostile: {
		`(?i)\b(stupid|worthless|slave)\b`,
		`노예\s*처럼`,
	},
}

// New creates a screen with the default lexicon.
func New() *Screen {
	return NewWithLexicon(defaultLexicon)
}

// NewWithLexicon compiles a custom category -> patterns lexicon. Invalid
// patterns are a programming error and panic at construction.
func NewWithLexicon(lexicon map[string][]string) *Screen {
	rules := make(map[string][]*regexp.Regexp, len(lexicon))
	for category, patterns := range lexicon {
		for _, p := range patterns {
			rules[category] = append(rules[category], regexp.MustCompile(p))
		}
	}
	return &Screen{rules: rules}
}

// Scan checks text for disallowed content. It blocks advancement: callers
// run it on the request before retrieval and on every draft before
// verification.
func (s *Screen) Scan(text string, phase Phase) Result {
	res := Result{Phase: phase}
	seenCat := map[string]bool{}
	seenSpan := map[string]bool{}

	for category, patterns := range s.rules {
		for _, re := range patterns {
			for _, m := range re.FindAllString(text, -1) {
				res.Flagged = true
				if !seenCat[category] {
					seenCat[category] = true
					res.Categories = append(res.Categories, category)
				}
				if !seenSpan[m] {
					seenSpan[m] = true
					res.Spans = append(res.Spans, m)
				}
			}
		}
	}
	// Map iteration order is random; keep the report stable.
	sort.Strings(res.Categories)
	sort.Strings(res.Spans)
	return res
}

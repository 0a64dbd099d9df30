package synthesize

import (
	"regexp"
	"strings"

	"github.com/jobforge/jobforge/internal/model"
)

var refTagRe = regexp.MustCompile(`\[REF:([^\]]+)\]`)

// ParseDraft splits generated text into claims: every non-boilerplate
// sentence becomes a Claim carrying whatever reference ids its [REF:...]
// tags cite. Sentences with no tag become empty-citation claims - the
// verifier classifies those, they are never dropped silently.
func ParseDraft(body string) []model.Claim {
	var claims []model.Claim
	for _, line := range strings.Split(body, "\n") {
		for _, sentence := range splitSentences(line) {
			if isBoilerplate(sentence) {
				continue
			}
			claims = append(claims, model.Claim{
				Text:     sentence,
				CitedIDs: extractRefs(sentence),
			})
		}
	}
	return claims
}

// extractRefs collects the reference ids cited by one sentence.
func extractRefs(sentence string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, m := range refTagRe.FindAllStringSubmatch(sentence, -1) {
		for _, id := range strings.Split(m[1], ",") {
			id = strings.TrimSpace(id)
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// splitSentences breaks a line at sentence terminators, keeping the
// terminator and any trailing citation tag with its sentence.
func splitSentences(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var (
		out   []string
		start int
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?', '。':
			// a period between digits is a decimal or version, not a terminator
			if runes[i] == '.' && i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
				continue
			}
			end := i + 1
			// a citation tag directly after the terminator belongs to this sentence
			rest := strings.TrimLeft(string(runes[end:]), " ")
			if strings.HasPrefix(rest, "[REF:") {
				if close := strings.Index(rest, "]"); close >= 0 {
					skipped := len(runes[end:]) - len([]rune(rest))
					end += skipped + len([]rune(rest[:close+1]))
					i = end - 1
				}
			}
			if s := strings.TrimSpace(string(runes[start:end])); s != "" {
				out = append(out, s)
			}
			start = end
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// ctaPhrases are calls to action that carry no factual content.
var ctaPhrases = []string{
	"지원하기", "지금 지원", "많은 지원 바랍니다", "함께할 분을 기다립니다",
	"apply now", "join us",
}

// isBoilerplate reports whether a sentence is structural text (headers,
// field labels, calls to action) that carries no citation requirement.
func isBoilerplate(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "#") {
		return true
	}
	bare := strings.TrimLeft(trimmed, "-*• ")
	if strings.HasSuffix(bare, ":") {
		return true
	}
	lower := strings.ToLower(bare)
	for _, cta := range ctaPhrases {
		if strings.Contains(lower, cta) {
			return true
		}
	}
	return false
}

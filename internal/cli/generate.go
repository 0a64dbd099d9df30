package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/internal/model"
)

var (
	generateConstraints []string
	generateYes         bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [hiring request]",
	Short: "Generate one posting from a hiring request",
	Long: `Run a single posting workflow in the terminal.

The request is read from the arguments, or from stdin when no arguments are
given. When the workflow pauses for review the draft and its verification
report are printed and a decision is read interactively; --yes approves a
passing draft without prompting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawText := strings.Join(args, " ")
		if strings.TrimSpace(rawText) == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read request from stdin: %w", err)
			}
			rawText = string(data)
		}

		overrides, err := parseConstraints(generateConstraints)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		backing, closeStore, err := openBacking(cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = closeStore() }()

		engine, err := buildEngine(cfg, backing)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := engine.Start(ctx, rawText, overrides)
		if err != nil {
			return err
		}

		in := bufio.NewReader(os.Stdin)
		for st.PendingHuman {
			printPause(st)
			decision, text, err := readDecision(in, st)
			if err != nil {
				return err
			}
			st, err = engine.SubmitFeedback(ctx, st.ID, decision, text)
			if err != nil {
				return err
			}
		}

		printFinal(st)
		if st.Stage != model.StageApproved {
			os.Exit(1)
		}
		return nil
	},
}

// parseConstraints turns repeated key=value flags into an override map.
func parseConstraints(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid constraint %q, want key=value", p)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func printPause(st *model.WorkflowState) {
	fmt.Printf("\n── workflow %s paused: %s ──\n", st.ID, st.PauseReason)

	if st.Draft != nil {
		fmt.Println("\nDraft:")
		fmt.Println(st.Draft.Body)
	}
	if st.Report != nil {
		fmt.Printf("\nVerification: pass=%v, %d claims\n", st.Report.OverallPass, len(st.Report.Claims))
		for _, cv := range st.Report.Claims {
			if cv.Verdict == model.VerdictGrounded {
				continue
			}
			fmt.Printf("  [%s] %s\n", cv.Verdict, cv.Claim.Text)
		}
	}
	if st.Screen != nil && st.Screen.Flagged {
		fmt.Printf("\nSensitivity: %s\n", strings.Join(st.Screen.Categories, ", "))
	}
	for _, e := range st.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

func readDecision(in *bufio.Reader, st *model.WorkflowState) (model.Decision, string, error) {
	if generateYes && st.PauseReason == model.PauseReadyForApproval {
		return model.DecisionApprove, "", nil
	}

	for {
		fmt.Print("\nDecision [approve/edit/regenerate/reject]: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read decision: %w", err)
		}
		decision := model.Decision(strings.TrimSpace(line))
		if !model.ValidDecision(decision) {
			fmt.Println("unknown decision")
			continue
		}
		if decision != model.DecisionEdit {
			return decision, "", nil
		}

		fmt.Println("Enter replacement text, end with a single '.' line:")
		var b strings.Builder
		for {
			l, err := in.ReadString('\n')
			if strings.TrimSpace(l) == "." {
				break
			}
			b.WriteString(l)
			if err != nil {
				break
			}
		}
		return decision, b.String(), nil
	}
}

func printFinal(st *model.WorkflowState) {
	fmt.Printf("\n── workflow %s finished: %s ──\n", st.ID, st.Stage)
	if st.Stage == model.StageApproved && st.Draft != nil {
		fmt.Println()
		fmt.Println(st.Draft.Body)
	}
	fmt.Printf("\nprovider: %s, attempts: %d, corrections: %d\n", st.ProviderUsed, st.AttemptCount, st.CorrectionCount)
}

func init() {
	generateCmd.Flags().StringArrayVar(&generateConstraints, "constraint", nil, "constraint override key=value (repeatable)")
	generateCmd.Flags().BoolVar(&generateYes, "yes", false, "approve a passing draft without prompting")
	rootCmd.AddCommand(generateCmd)
}

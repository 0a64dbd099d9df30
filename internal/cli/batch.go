package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/worker"
)

var (
	batchConcurrency int
	batchOutputDir   string
	batchTimeout     time.Duration
	batchAutoApprove bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate postings for multiple hiring requests in parallel",
	Long: `Batch processes hiring requests concurrently:
- Read requests from the input file (one per line, '#' starts a comment)
- Run workflows in parallel with a configurable worker count
- Write approved drafts to the output directory
- List paused workflows with their ids for review over the API

Example:
  jobforge batch requests.txt
  jobforge batch requests.txt --concurrency 10 --output-dir ./postings
  jobforge batch requests.txt --auto-approve --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./jobforge-postings", "output directory for approved drafts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchAutoApprove, "auto-approve", false, "skip the human gate for drafts that pass verification")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchAutoApprove {
		cfg.RequireApproval = false
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

	if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Processing %s with %d workers...\n\n", file, batchConcurrency)

	processor := worker.NewBatchProcessor(engine, batchConcurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	approved, paused, rejected, failed := 0, 0, 0, 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ line %d: %v\n", result.Line, result.Err)
			continue
		}

		st := result.State
		switch {
		case st.Stage == model.StageApproved:
			approved++
			path := filepath.Join(batchOutputDir, st.ID+".md")
			if err := os.WriteFile(path, []byte(st.Draft.Body), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "✗ line %d: write draft: %v\n", result.Line, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "✓ line %d: approved, %s\n", result.Line, path)

		case st.Stage == model.StageRejected:
			rejected++
			fmt.Fprintf(os.Stderr, "✗ line %d: rejected (%s)\n", result.Line, strings.Join(st.Errors, "; "))

		default:
			paused++
			fmt.Fprintf(os.Stderr, "… line %d: %s (%s), workflow %s\n", result.Line, st.Stage, st.PauseReason, st.ID)
		}
	}

	fmt.Fprintf(os.Stderr, "\n  Total:     %d requests\n", len(results))
	fmt.Fprintf(os.Stderr, "  Approved:  %d\n", approved)
	fmt.Fprintf(os.Stderr, "  Paused:    %d\n", paused)
	fmt.Fprintf(os.Stderr, "  Rejected:  %d\n", rejected)
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", failed)

	return nil
}

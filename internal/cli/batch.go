package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/xpnc/internal/cache"
	"github.com/ppiankov/xpnc/internal/llm"
	"github.com/ppiankov/xpnc/internal/logging"
	"github.com/ppiankov/xpnc/internal/metrics"
	"github.com/ppiankov/xpnc/internal/model"
	"github.com/ppiankov/xpnc/internal/worker"
)

var (
	concurrency  int
	outputFile   string
	batchTimeout time.Duration
	noCache      bool
	batchSave    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score many submissions from a file in parallel",
	Long: `Batch scores submissions concurrently:
- Read submissions from a JSON array, JSON lines or a YAML list
- Score them with a worker pool, throttled per provider endpoint
- Reuse cached results for submissions scored before with the same model
- Write one JSON line per submission, in input order

Example:
  xpnc batch submissions.jsonl
  xpnc batch submissions.yaml --concurrency 4 --output results.jsonl
  xpnc batch submissions.json --save --metrics-textfile /var/lib/node_exporter/xpnc.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputFile, "output", "", "write results to this file instead of stdout")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache (force fresh scoring)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "record scored submissions in the ledger")
	batchCmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this file when done")

	_ = viper.BindPFlag("metrics.textfile", batchCmd.Flags().Lookup("metrics-textfile"))
}

// batchLine is one line of batch output
type batchLine struct {
	Index        int                `json:"index"`
	SubmissionID string             `json:"submission_id"`
	Cached       bool               `json:"cached"`
	Result       *model.ScoreResult `json:"result,omitempty"`
	Error        string             `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	log := logging.Named("batch")
	m := metrics.NewManager()

	scorer, err := newScorer(cfg, m)
	if err != nil {
		return err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	opts := []worker.BatchOption{
		worker.WithLimiter(limiter, endpointFor(cfg)),
		worker.WithCacheRecorder(m),
		worker.WithBatchLogger(log),
	}
	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		opts = append(opts, worker.WithCache(c, modelName(cfg), cfg.Cache.DiskTTL))
	}
	processor := worker.NewBatchProcessor(scorer, cfg.Concurrency.Workers, opts...)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  XPNC Batch Scoring\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Provider:     %s\n", cfg.LLM.Provider)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Cache:        %v\n", cfg.Cache.Enabled)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var saver func(model.Submission, model.ScoreResult) error
	if batchSave {
		ledger, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()
		saver = func(sub model.Submission, result model.ScoreResult) error {
			_, err := ledger.SaveScored(context.Background(), sub, result)
			return err
		}
	}

	var scored, cached, fallback, failed int
	for _, o := range outcomes {
		line := batchLine{Index: o.Index, SubmissionID: o.Submission.ID, Cached: o.Cached}
		if o.Error != nil {
			failed++
			line.Error = o.Error.Error()
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Submission.ID, o.Error)
		} else {
			scored++
			result := o.Result
			line.Result = &result
			if o.Cached {
				cached++
			}
			if result.IsFallback() {
				fallback++
			}
			if saver != nil {
				if err := saver(o.Submission, result); err != nil {
					log.Error("failed to save submission", zap.String("submission_id", o.Submission.ID), zap.Error(err))
				}
			}
		}
		if err := printJSON(out, line, false); err != nil {
			return err
		}
	}

	writeMetrics(m, cfg.Metrics.Textfile)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d submissions\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Scored:    %d (%d from cache, %d fallback)\n", scored, cached, fallback)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// endpointFor names the rate-limit bucket for the configured provider
func endpointFor(cfg *model.Config) string {
	if cfg.LLM.BaseURL != "" {
		return cfg.LLM.BaseURL
	}
	switch cfg.LLM.Provider {
	case "xai", "grok", "":
		return llm.XAIBaseURL
	default:
		return cfg.LLM.Provider
	}
}

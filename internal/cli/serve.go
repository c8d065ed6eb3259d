package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/xpnc/internal/logging"
	"github.com/ppiankov/xpnc/internal/metrics"
	"github.com/ppiankov/xpnc/internal/server"
)

var serveNoLedger bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring API over HTTP",
	Long: `Serve exposes scoring over HTTP:

  POST /api/v1/score            score a submission (?save=true records it)
  GET  /api/v1/bonus            bonus table and the active rule
  GET  /api/v1/bonus/:month     one month's rule (?category= to check a match)
  GET  /api/v1/tokens/:score    token award for a score
  GET  /api/v1/submissions/:id  a recorded submission
  GET  /api/v1/users/:id/summary  level, totals and badges
  GET  /api/v1/stats            totals across the ledger
  GET  /health
  GET  /metrics                 Prometheus metrics

Example:
  xpnc serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !cfg.Output.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		m := metrics.NewManager()
		scorer, err := newScorer(cfg, m)
		if err != nil {
			return err
		}

		opts := []server.Option{
			server.WithMetrics(m),
			server.WithLogger(logging.Named("server")),
		}
		if !serveNoLedger {
			ledger, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()
			opts = append(opts, server.WithLedger(ledger))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(scorer, opts...).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serveNoLedger, "no-ledger", false, "do not open the ledger; ?save and ledger routes are disabled")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/xpnc/internal/llm"
	"github.com/ppiankov/xpnc/internal/logging"
	"github.com/ppiankov/xpnc/internal/model"
)

// Version is overridden at build time with -ldflags "-X"
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xpnc",
	Short: "XPNC - AI impact scoring for volunteer submissions",
	Long: `XPNC scores self-reported volunteer activity for authenticity and depth.

Each submission is sent once to a text-generation service together with the
month's awareness bonus. The reply is clamped into a 0-500 impact score and
converted into a token award. When the service is unavailable, slow or
returns something unreadable, a deterministic score is derived from the
hours logged instead, so scoring never blocks a submission.

Scores are advisory. Approving or rejecting a submission is a human decision
recorded in the local ledger.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Init(viper.GetBool("output.verbose")); err != nil {
			return err
		}
		if f := viper.ConfigFileUsed(); f != "" {
			logging.Get().Debug("using config file", zap.String("path", f))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for XPNC.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "xpnc %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.xpnc/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")
	flags.String("provider", "", "scoring provider (xai, openai, anthropic, ollama, gemini, none)")
	flags.String("model", "", "scoring model name (provider default when empty)")
	flags.String("db", "", "ledger database path")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
	_ = viper.BindPFlag("store.path", flags.Lookup("db"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(model.DefaultConfig())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".xpnc"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// XPNC_LLM_PROVIDER, XPNC_STORE_PATH, ...
	viper.SetEnvPrefix("XPNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// setDefaults registers every config key so env variables and Unmarshal see it
func setDefaults(cfg *model.Config) {
	defaults := map[string]any{
		"llm.provider":                      cfg.LLM.Provider,
		"llm.model":                         cfg.LLM.Model,
		"llm.api_key":                       cfg.LLM.APIKey,
		"llm.base_url":                      cfg.LLM.BaseURL,
		"llm.timeout":                       cfg.LLM.Timeout,
		"llm.temperature":                   cfg.LLM.Temperature,
		"llm.max_tokens":                    cfg.LLM.MaxTokens,
		"http.http_proxy":                   cfg.HTTP.HTTPProxy,
		"http.https_proxy":                  cfg.HTTP.HTTPSProxy,
		"http.no_proxy":                     cfg.HTTP.NoProxy,
		"cache.enabled":                     cfg.Cache.Enabled,
		"cache.dir":                         cfg.Cache.Dir,
		"cache.memory_ttl":                  cfg.Cache.MemoryTTL,
		"cache.disk_ttl":                    cfg.Cache.DiskTTL,
		"store.path":                        cfg.Store.Path,
		"concurrency.workers":               cfg.Concurrency.Workers,
		"rate_limiting.requests_per_second": cfg.RateLimiting.RequestsPerSecond,
		"rate_limiting.burst_size":          cfg.RateLimiting.BurstSize,
		"server.addr":                       cfg.Server.Addr,
		"metrics.textfile":                  cfg.Metrics.Textfile,
		"output.verbose":                    cfg.Output.Verbose,
		"output.pretty":                     cfg.Output.Pretty,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// loadConfig resolves the effective configuration. Provider keys fall back to
// their conventional environment variables (XAI_API_KEY, OPENAI_API_KEY, ...).
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		if env := llm.APIKeyEnv(cfg.LLM.Provider); env != "" {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg, nil
}

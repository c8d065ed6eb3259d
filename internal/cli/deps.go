package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/xpnc/internal/llm"
	"github.com/ppiankov/xpnc/internal/logging"
	"github.com/ppiankov/xpnc/internal/metrics"
	"github.com/ppiankov/xpnc/internal/model"
	"github.com/ppiankov/xpnc/internal/score"
	"github.com/ppiankov/xpnc/internal/store"
)

// newScorer builds the scorer for cfg. Missing credentials are not an error:
// the scorer then produces fallback scores without calling out.
func newScorer(cfg *model.Config, recorder score.Recorder) (*score.Scorer, error) {
	log := logging.Named("score")

	llmCfg := llm.ConfigFromModel(cfg)
	llmCfg.Logger = logging.Named("llm")

	var provider llm.Provider
	p, err := llm.NewProvider(llmCfg)
	switch {
	case errors.Is(err, llm.ErrMissingCredentials):
		log.Warn("no API key configured, scores will be derived from hours logged",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("env", llm.APIKeyEnv(cfg.LLM.Provider)))
	case err != nil:
		return nil, err
	default:
		provider = p
	}

	opts := []score.Option{
		score.WithLogger(log),
		score.WithModel(cfg.LLM.Model),
	}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, score.WithTimeout(time.Duration(cfg.LLM.Timeout)*time.Second))
	}
	if recorder != nil {
		opts = append(opts, score.WithRecorder(recorder))
	}
	return score.NewScorer(provider, opts...), nil
}

// modelName identifies the scoring model for cache keys
func modelName(cfg *model.Config) string {
	return strings.ToLower(cfg.LLM.Provider) + "/" + cfg.LLM.Model
}

func openStore(cfg *model.Config) (*store.Store, error) {
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	s, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.Store.Path, err)
	}
	return s, nil
}

// writeMetrics writes the textfile when a path is configured
func writeMetrics(m *metrics.Manager, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logging.Get().Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
	}
}

func printJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// readSubmission reads one submission as YAML (.yaml, .yml) or JSON.
// "-" reads JSON from r.
func readSubmission(path string, r io.Reader) (model.Submission, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("read submission: %w", err)
	}

	var sub model.Submission
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &sub)
	default:
		err = json.Unmarshal(data, &sub)
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("parse submission: %w", err)
	}
	return sub, nil
}

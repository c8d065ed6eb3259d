// Package score turns a volunteer submission into a ScoreResult.
//
// One scoring call makes at most one provider request. Every failure
// degrades to the hours-based Fallback, so ScoreImpact never returns an error.
package score

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/xpnc/internal/bonus"
	"github.com/ppiankov/xpnc/internal/llm"
	"github.com/ppiankov/xpnc/internal/metrics"
	"github.com/ppiankov/xpnc/internal/model"
)

// DefaultTimeout bounds one provider request
const DefaultTimeout = 90 * time.Second

// Recorder receives one observation per scoring call
type Recorder interface {
	ObserveScore(outcome string, result model.ScoreResult, elapsed time.Duration)
}

// Scorer orchestrates request building, the provider call and normalization.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	provider llm.Provider
	table    *bonus.Table
	timeout  time.Duration
	model    string
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures a Scorer
type Option func(*Scorer)

// WithTimeout overrides the provider deadline
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithModel overrides the provider's default model
func WithModel(name string) Option {
	return func(s *Scorer) {
		s.model = name
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Scorer) {
		s.recorder = r
	}
}

// WithTable replaces the bonus table used to describe the active bonus
func WithTable(t *bonus.Table) Option {
	return func(s *Scorer) {
		if t != nil {
			s.table = t
		}
	}
}

// WithClock sets the time source for default activity dates and ScoredAt
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScorer creates a scorer. A nil provider means no credentials are
// configured and every call falls back without network I/O.
func NewScorer(provider llm.Provider, opts ...Option) *Scorer {
	s := &Scorer{
		provider: provider,
		table:    bonus.Default,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRequest renders the messages the scorer would send for sub
func (s *Scorer) BuildRequest(sub model.Submission) Request {
	return buildRequest(s.table, sub, s.now())
}

// ScoreImpact scores one submission. It always returns a well-formed result.
func (s *Scorer) ScoreImpact(ctx context.Context, sub model.Submission) model.ScoreResult {
	start := time.Now()
	log := s.logger.With(zap.String("submission_id", sub.ID))

	if s.provider == nil {
		log.Warn("scoring credentials not configured, using fallback score")
		return s.finish(Fallback(sub.HoursLogged, model.FailureMissingCredentials, llm.ErrMissingCredentials),
			string(model.FailureMissingCredentials), start)
	}

	req := s.BuildRequest(sub)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.Complete(callCtx, llm.CompletionRequest{
		System:      req.System,
		User:        req.User,
		Model:       s.model,
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		kind := llm.Classify(callCtx, err)
		switch kind {
		case model.FailureTimeout:
			log.Warn("scoring timed out, using fallback score",
				zap.String("provider", s.provider.Name()), zap.Duration("timeout", s.timeout))
		case model.FailureMissingCredentials:
			log.Warn("scoring credentials rejected, using fallback score",
				zap.String("provider", s.provider.Name()), zap.Error(err))
		default:
			fields := []zap.Field{zap.String("provider", s.provider.Name()), zap.Error(err)}
			var reqErr *llm.RequestError
			if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
				fields = append(fields, zap.Int("status", reqErr.StatusCode))
			}
			log.Error("scoring request failed, using fallback score", fields...)
		}
		return s.finish(Fallback(sub.HoursLogged, kind, err), string(kind), start)
	}

	result, err := ParseReply(resp.Content)
	if err != nil {
		log.Warn("malformed scoring reply, using fallback score",
			zap.String("provider", s.provider.Name()), zap.Error(err))
		return s.finish(Fallback(sub.HoursLogged, model.FailureRequestFailed, err), metrics.OutcomeMalformedReply, start)
	}

	result.Model = resp.Model
	log.Debug("submission scored",
		zap.Int("final_score", result.FinalScore),
		zap.Int("tokens", result.TokenAirdropAmount),
		zap.String("verdict", string(result.Verdict)),
		zap.String("model", resp.Model))

	return s.finish(result, metrics.OutcomeSuccess, start)
}

func (s *Scorer) finish(result model.ScoreResult, outcome string, start time.Time) model.ScoreResult {
	result.ScoredAt = s.now().UTC()
	if s.recorder != nil {
		s.recorder.ObserveScore(outcome, result, time.Since(start))
	}
	return result
}

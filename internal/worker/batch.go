package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/xpnc/internal/cache"
	"github.com/ppiankov/xpnc/internal/model"
)

// Scorer scores one submission; implementations never fail
type Scorer interface {
	ScoreImpact(ctx context.Context, sub model.Submission) model.ScoreResult
}

// CacheRecorder counts result cache lookups
type CacheRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// ScoreJob scores one submission, consulting the result cache first
type ScoreJob struct {
	Index      int
	Submission model.Submission
	batch      *BatchProcessor
}

// Execute executes the score job
func (j *ScoreJob) Execute(ctx context.Context) Result {
	b := j.batch
	out := &ScoreOutcome{Index: j.Index, Submission: j.Submission}

	var key string
	if b.cache != nil {
		key = cache.SubmissionKey(j.Submission, b.model, b.now())
		if result, ok := cache.GetResult(b.cache, key); ok {
			b.recordHit()
			out.Result = result
			out.Cached = true
			return out
		}
		b.recordMiss()
	}

	if err := b.limiter.Wait(ctx, b.endpoint); err != nil {
		out.Error = fmt.Errorf("rate limiter: %w", err)
		return out
	}

	out.Result = b.scorer.ScoreImpact(ctx, j.Submission)

	if b.cache != nil {
		if err := cache.SetResult(b.cache, key, out.Result, b.cacheTTL); err != nil {
			b.logger.Warn("failed to cache result", zap.String("submission_id", j.Submission.ID), zap.Error(err))
		}
	}
	return out
}

// ScoreOutcome is the result of one score job
type ScoreOutcome struct {
	Index      int               `json:"index"`
	Submission model.Submission  `json:"submission"`
	Result     model.ScoreResult `json:"result"`
	Cached     bool              `json:"cached"`
	Error      error             `json:"-"`
}

// GetError returns the error from the score outcome
func (r *ScoreOutcome) GetError() error {
	return r.Error
}

// Position returns the submission's index in the batch
func (r *ScoreOutcome) Position() int {
	return r.Index
}

// BatchOption configures a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithLimiter throttles scoring calls against endpoint
func WithLimiter(l *Limiter, endpoint string) BatchOption {
	return func(b *BatchProcessor) {
		b.limiter = l
		b.endpoint = endpoint
	}
}

// WithCache reuses stored results keyed by submission content and model
func WithCache(c cache.Cache, modelName string, ttl time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		b.cache = c
		b.model = modelName
		b.cacheTTL = ttl
	}
}

// WithCacheRecorder counts cache hits and misses
func WithCacheRecorder(r CacheRecorder) BatchOption {
	return func(b *BatchProcessor) {
		b.recorder = r
	}
}

// WithBatchClock sets the clock that dates undated submissions for cache keys.
// It should agree with the scorer's clock.
func WithBatchClock(now func() time.Time) BatchOption {
	return func(b *BatchProcessor) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBatchLogger sets the logger
func WithBatchLogger(l *zap.Logger) BatchOption {
	return func(b *BatchProcessor) {
		if l != nil {
			b.logger = l
		}
	}
}

// BatchProcessor scores many submissions concurrently
type BatchProcessor struct {
	scorer      Scorer
	concurrency int

	limiter  *Limiter
	endpoint string

	cache    cache.Cache
	model    string
	cacheTTL time.Duration
	recorder CacheRecorder
	now      func() time.Time

	logger *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scorer Scorer, concurrency int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		scorer:      scorer,
		concurrency: concurrency,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessSubmissions scores subs and returns one outcome per submission in input order.
// Submissions not reached before ctx ends carry ctx's error.
func (b *BatchProcessor) ProcessSubmissions(ctx context.Context, subs []model.Submission) []*ScoreOutcome {
	outcomes := make([]*ScoreOutcome, len(subs))
	if len(subs) == 0 {
		return outcomes
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, sub := range subs {
		if !pool.Submit(&ScoreJob{Index: i, Submission: sub, batch: b}) {
			break
		}
	}

	for _, result := range pool.Wait() {
		out := result.(*ScoreOutcome)
		outcomes[out.Index] = out
	}

	for i, out := range outcomes {
		if out == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			outcomes[i] = &ScoreOutcome{Index: i, Submission: subs[i], Error: fmt.Errorf("not scored: %w", err)}
		}
	}

	return outcomes
}

// ProcessFile reads submissions from a file and scores them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScoreOutcome, error) {
	subs, err := ReadSubmissionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}

	return b.ProcessSubmissions(ctx, subs), nil
}

func (b *BatchProcessor) recordHit() {
	if b.recorder != nil {
		b.recorder.RecordCacheHit()
	}
}

func (b *BatchProcessor) recordMiss() {
	if b.recorder != nil {
		b.recorder.RecordCacheMiss()
	}
}

// ReadSubmissionsFromFile reads submissions from a YAML list (.yaml, .yml),
// a JSON array, or JSON lines. Submissions without an ID get a UUID; every
// submission must pass model.Submission.Validate.
func ReadSubmissionsFromFile(filePath string) ([]model.Submission, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	var subs []model.Submission
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		subs, err = parseYAML(data)
	default:
		subs, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	for i := range subs {
		if err := subs[i].Validate(); err != nil {
			return nil, fmt.Errorf("submission %d: %w", i+1, err)
		}
		if subs[i].ID == "" {
			subs[i].ID = uuid.NewString()
		}
	}

	return subs, nil
}

func parseYAML(data []byte) ([]model.Submission, error) {
	var subs []model.Submission
	if err := yaml.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return subs, nil
}

func parseJSON(data []byte) ([]model.Submission, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var subs []model.Submission
		if err := json.Unmarshal(trimmed, &subs); err != nil {
			return nil, fmt.Errorf("parse json array: %w", err)
		}
		return subs, nil
	}

	var subs []model.Submission
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var sub model.Submission
		if err := json.Unmarshal([]byte(line), &sub); err != nil {
			return nil, fmt.Errorf("parse json line %d: %w", lineNo, err)
		}
		subs = append(subs, sub)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return subs, nil
}

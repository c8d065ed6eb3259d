// Package cache stores scoring results for batch re-runs.
// The scorer never consults it; callers decide when a stored result is reusable.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/xpnc/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "xpnc:v1:"

// SubmissionKey digests the scored content of sub together with the model
// that scores it. ID and UserID are excluded so resubmitted content hits.
// An undated submission is keyed by the date now resolves it to, the same
// date the scoring prompt and its bonus month use.
func SubmissionKey(sub model.Submission, modelName string, now time.Time) string {
	sub.ID = ""
	sub.UserID = ""
	sub.ActivityType = strings.ToLower(strings.TrimSpace(sub.ActivityType))
	sub.ActivityDate = sub.ResolveDate(now)

	data, err := json.Marshal(struct {
		Model      string           `json:"model"`
		Submission model.Submission `json:"submission"`
	}{modelName, sub})
	if err != nil {
		// NaN or Inf hours
		data = []byte(fmt.Sprintf("%s|%#v", modelName, sub))
	}

	hash := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(hash[:])
}

// GetResult decodes a stored ScoreResult
func GetResult(c Cache, key string) (model.ScoreResult, bool) {
	data, ok := c.Get(key)
	if !ok {
		return model.ScoreResult{}, false
	}
	var result model.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.ScoreResult{}, false
	}
	return result, true
}

// SetResult stores result under key. Fallback results are not cached so a
// later run can still reach the scoring service.
func SetResult(c Cache, key string, result model.ScoreResult, ttl time.Duration) error {
	if result.IsFallback() {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return c.Set(key, data, ttl)
}

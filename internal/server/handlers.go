package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/xpnc/internal/badge"
	"github.com/ppiankov/xpnc/internal/model"
	"github.com/ppiankov/xpnc/internal/score"
	"github.com/ppiankov/xpnc/internal/store"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "xpnc",
	})
}

// scoreSubmission scores one submission
// POST /api/v1/score?save=true
func (s *Server) scoreSubmission(c *gin.Context) {
	var sub model.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	if err := validateIntake(sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": err.Error(),
		})
		return
	}

	result := s.scorer.ScoreImpact(c.Request.Context(), sub)

	if s.ledger != nil && c.Query("save") == "true" {
		rec, err := s.ledger.SaveScored(c.Request.Context(), sub, result)
		if err != nil {
			s.logger.Error("failed to save scored submission", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to save submission",
				"details": err.Error(),
			})
			return
		}
		c.Header("Location", "/api/v1/submissions/"+rec.Submission.ID)
	}

	c.JSON(http.StatusOK, result)
}

// validateIntake applies the presence checks the scorer leaves to its caller
func validateIntake(sub model.Submission) error {
	if strings.TrimSpace(sub.ActivityType) == "" {
		return fmt.Errorf("%w: activity_type is required", model.ErrInvalidSubmission)
	}
	if strings.TrimSpace(sub.Reflection) == "" {
		return fmt.Errorf("%w: reflection is required", model.ErrInvalidSubmission)
	}
	return sub.Validate()
}

// listBonuses returns the bonus table and the rule active today
// GET /api/v1/bonus
func (s *Server) listBonuses(c *gin.Context) {
	resp := gin.H{"rules": s.table.Rules()}
	if rule, ok := s.table.ActiveForDate(s.now()); ok {
		resp["active"] = rule
	}
	c.JSON(http.StatusOK, resp)
}

// getBonus returns one month's rule
// GET /api/v1/bonus/:month
func (s *Server) getBonus(c *gin.Context) {
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "month must be 1-12",
		})
		return
	}

	rule, ok := s.table.Lookup(month)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no bonus for month " + strconv.Itoa(month),
		})
		return
	}

	resp := gin.H{"rule": rule}
	if category := c.Query("category"); category != "" {
		resp["category"] = category
		resp["matches"] = s.table.CategoryMatches(category, time.Date(2000, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	}
	c.JSON(http.StatusOK, resp)
}

// tokens returns the token award for a final score
// GET /api/v1/tokens/:score
func (s *Server) tokens(c *gin.Context) {
	v, err := strconv.Atoi(c.Param("score"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "score must be an integer",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"score":  v,
		"tokens": score.TokensForScore(v),
	})
}

// getSubmission returns one ledger entry
// GET /api/v1/submissions/:id
func (s *Server) getSubmission(c *gin.Context) {
	rec, err := s.ledger.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load submission",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// userSummary returns a user's level, totals, badges and next-badge hints
// GET /api/v1/users/:id/summary
func (s *Server) userSummary(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	totals, err := s.ledger.TotalsByUser(ctx, userID)
	if err != nil {
		s.internalError(c, "Failed to load totals", err)
		return
	}
	earned, err := s.ledger.BadgesByUser(ctx, userID)
	if err != nil {
		s.internalError(c, "Failed to load badges", err)
		return
	}
	history, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		s.internalError(c, "Failed to load submissions", err)
		return
	}

	have := make(map[string]bool, len(earned))
	for _, e := range earned {
		have[e.BadgeID] = true
	}
	hints := gin.H{}
	for _, b := range badge.All {
		if have[b.ID] {
			continue
		}
		if h := b.Hint(history); h != "" {
			hints[b.ID] = h
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"totals":      totals,
		"level":       badge.Progress(totals.XP),
		"badges":      earned,
		"hints":       hints,
		"submissions": len(history),
	})
}

// stats handles GET /api/v1/stats
func (s *Server) stats(c *gin.Context) {
	st, err := s.ledger.Stats(c.Request.Context())
	if err != nil {
		s.internalError(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// Package store persists scored submissions, review decisions and badges in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/xpnc/internal/badge"
	"github.com/ppiankov/xpnc/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL DEFAULT '',
	submission_json  TEXT NOT NULL,
	score_json       TEXT NOT NULL,
	status           TEXT NOT NULL,
	final_score      INTEGER NOT NULL,
	tokens           INTEGER NOT NULL,
	rejection_reason TEXT NOT NULL DEFAULT '',
	flagged          INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);

CREATE TABLE IF NOT EXISTS badges (
	user_id    TEXT NOT NULL,
	badge_id   TEXT NOT NULL,
	earned_at  TEXT NOT NULL,
	PRIMARY KEY (user_id, badge_id)
);
`

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a submission ID is unknown
var ErrNotFound = errors.New("submission not found")

// Store is the SQLite ledger
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := addFlaggedColumn(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// addFlaggedColumn upgrades ledgers created before submissions could be flagged
func addFlaggedColumn(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('submissions') WHERE name = 'flagged'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect submissions: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE submissions ADD COLUMN flagged INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add flagged: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScored records a freshly scored submission. A submission without an ID
// gets a UUID. The initial status follows the model's recommendation.
func (s *Store) SaveScored(ctx context.Context, sub model.Submission, result model.ScoreResult) (model.ScoredSubmission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	rec := model.ScoredSubmission{
		Submission: sub,
		Score:      result,
		Status:     model.InitialStatus(result),
		CreatedAt:  s.now().UTC(),
	}

	subJSON, err := json.Marshal(sub)
	if err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("marshal submission: %w", err)
	}
	scoreJSON, err := json.Marshal(result)
	if err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("marshal score: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, submission_json, score_json, status, final_score, tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, string(subJSON), string(scoreJSON), string(rec.Status),
		result.FinalScore, result.TokenAirdropAmount, rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("insert submission: %w", err)
	}
	return rec, nil
}

const selectColumns = `SELECT submission_json, score_json, status, rejection_reason, flagged, created_at FROM submissions`

// Get loads one submission by ID
func (s *Store) Get(ctx context.Context, id string) (model.ScoredSubmission, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanScored(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoredSubmission{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// ListByUser returns a user's submissions, oldest first
func (s *Store) ListByUser(ctx context.Context, userID string) ([]model.ScoredSubmission, error) {
	return s.query(ctx, selectColumns+` WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// List returns all submissions, newest first. An empty status lists every status.
func (s *Store) List(ctx context.Context, status model.ReviewStatus) ([]model.ScoredSubmission, error) {
	if status == "" {
		return s.query(ctx, selectColumns+` ORDER BY created_at DESC, id`)
	}
	return s.query(ctx, selectColumns+` WHERE status = ? ORDER BY created_at DESC, id`, string(status))
}

// SetStatus records a review decision. reason is kept only for rejections.
func (s *Store) SetStatus(ctx context.Context, id string, status model.ReviewStatus, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	if status != model.StatusRejected {
		reason = ""
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, rejection_reason = ? WHERE id = ?`,
		string(status), reason, id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return mustAffect(res, id)
}

func mustAffect(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Flag marks a submission for a closer look without changing its status
func (s *Store) Flag(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE submissions SET flagged = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("flag submission: %w", err)
	}
	return mustAffect(res, id)
}

// Approve marks a submission approved, clears its flag and awards any badges
// the owner's history now qualifies for. It returns the newly awarded badges.
func (s *Store) Approve(ctx context.Context, id string) ([]badge.Badge, error) {
	if err := s.SetStatus(ctx, id, model.StatusApproved, ""); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE submissions SET flagged = 0 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear flag: %w", err)
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	userID := rec.Submission.UserID
	if userID == "" {
		return nil, nil
	}

	history, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.BadgesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(earned))
	for _, e := range earned {
		have[e.BadgeID] = true
	}

	awarded := badge.Evaluate(history, have)
	for _, b := range awarded {
		if _, err := s.AwardBadge(ctx, userID, b.ID); err != nil {
			return nil, err
		}
	}
	return awarded, nil
}

// EarnedBadge is a badge row
type EarnedBadge struct {
	UserID   string    `json:"user_id"`
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// AwardBadge records a badge for a user. It reports false when the user already had it.
func (s *Store) AwardBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO badges (user_id, badge_id, earned_at) VALUES (?, ?, ?)`,
		userID, badgeID, s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// BadgesByUser lists a user's badges, most recent first
func (s *Store) BadgesByUser(ctx context.Context, userID string) ([]EarnedBadge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, badge_id, earned_at FROM badges WHERE user_id = ? ORDER BY earned_at DESC, badge_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query badges: %w", err)
	}
	defer rows.Close()

	var out []EarnedBadge
	for rows.Next() {
		var b EarnedBadge
		var earnedAt string
		if err := rows.Scan(&b.UserID, &b.BadgeID, &earnedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.EarnedAt, err = time.Parse(timeLayout, earnedAt)
		if err != nil {
			return nil, fmt.Errorf("parse earned_at: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Totals are a user's approved impact points and tokens
type Totals struct {
	XP     int `json:"xp"`
	Tokens int `json:"tokens"`
}

// TotalsByUser sums final scores and token awards over approved submissions
func (s *Store) TotalsByUser(ctx context.Context, userID string) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(final_score), 0), COALESCE(SUM(tokens), 0)
		 FROM submissions WHERE user_id = ? AND status = ?`,
		userID, string(model.StatusApproved),
	).Scan(&t.XP, &t.Tokens)
	if err != nil {
		return Totals{}, fmt.Errorf("sum totals: %w", err)
	}
	return t, nil
}

// Stats summarizes the whole ledger
type Stats struct {
	TotalSubmissions  int     `json:"total_submissions"`
	TotalApproved     int     `json:"total_approved"`
	TotalFlagged      int     `json:"total_flagged"`
	Volunteers        int     `json:"volunteers"`
	Countries         int     `json:"countries"`
	TokensDistributed int     `json:"tokens_distributed"`
	ApprovedHours     float64 `json:"approved_hours"`
	MostActiveCountry string  `json:"most_active_country,omitempty"`
}

// Stats counts submissions and aggregates approved ones. Volunteers,
// countries, tokens and hours only count approved submissions. Ties for the
// most active country go to the alphabetically first name.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(flagged), 0) FROM submissions`,
	).Scan(&st.TotalSubmissions, &st.TotalFlagged)
	if err != nil {
		return Stats{}, fmt.Errorf("count submissions: %w", err)
	}

	approved, err := s.List(ctx, model.StatusApproved)
	if err != nil {
		return Stats{}, err
	}

	users := make(map[string]bool)
	byCountry := make(map[string]int)
	for _, rec := range approved {
		st.TotalApproved++
		st.TokensDistributed += rec.Score.TokenAirdropAmount
		st.ApprovedHours += rec.Submission.HoursLogged
		if rec.Submission.UserID != "" {
			users[rec.Submission.UserID] = true
		}
		if c := rec.Submission.LocationCountry; c != "" {
			byCountry[c]++
		}
	}
	st.Volunteers = len(users)
	st.Countries = len(byCountry)

	best := 0
	for c, n := range byCountry {
		if n > best || (n == best && c < st.MostActiveCountry) {
			st.MostActiveCountry, best = c, n
		}
	}
	return st, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]model.ScoredSubmission, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []model.ScoredSubmission
	for rows.Next() {
		rec, err := scanScored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScored(row scanner) (model.ScoredSubmission, error) {
	var subJSON, scoreJSON, status, reason, createdAt string
	var flagged bool
	if err := row.Scan(&subJSON, &scoreJSON, &status, &reason, &flagged, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ScoredSubmission{}, err
		}
		return model.ScoredSubmission{}, fmt.Errorf("scan submission: %w", err)
	}

	var rec model.ScoredSubmission
	if err := json.Unmarshal([]byte(subJSON), &rec.Submission); err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	if err := json.Unmarshal([]byte(scoreJSON), &rec.Score); err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("unmarshal score: %w", err)
	}
	rec.Status = model.ReviewStatus(status)
	rec.RejectionReason = reason
	rec.Flagged = flagged

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.ScoredSubmission{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t
	return rec, nil
}

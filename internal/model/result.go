package model

import "time"

// Score ceilings for each weighted dimension. They sum to MaxScore.
const (
	MaxScore        = 500
	MaxAuthenticity = 200 // 40%
	MaxDepth        = 150 // 30%
	MaxLearning     = 100 // 20%
	MaxEffort       = 50  // 10%

	MaxBonusPercent = 75
)

// ScoreResult is the normalized output of scoring one submission.
// It is write-once: later changes (admin review) belong to the ledger.
type ScoreResult struct {
	ImpactScore        int `json:"impact_score"`          // Before bonuses (0-500)
	AuthenticityScore  int `json:"authenticity_score"`    // 0-200
	DepthScore         int `json:"depth_score"`           // 0-150
	LearningScore      int `json:"learning_score"`        // 0-100
	EffortScore        int `json:"effort_score"`          // 0-50
	FinalScore         int `json:"final_score"`           // After bonuses (0-500)
	TotalBonusPercent  int `json:"total_bonuses_percent"` // 0-75
	TokenAirdropAmount int `json:"token_airdrop_amount"`

	BonusesApplied      []BonusApplied `json:"bonuses_applied"`
	Verdict             Verdict        `json:"authenticity_verdict"`
	AdminRecommendation Recommendation `json:"admin_recommendation"`

	Reasoning      string   `json:"reasoning"`
	StandoutDetail string   `json:"standout_detail"`
	PublicSummary  string   `json:"public_summary"`
	RedFlags       []string `json:"red_flags"`

	FailureKind FailureKind `json:"failure_kind,omitempty"` // Set only for fallback results
	Model       string      `json:"model,omitempty"`
	ScoredAt    time.Time   `json:"scored_at,omitempty"`
}

// IsFallback reports whether the result came from the hours-based fallback
func (r ScoreResult) IsFallback() bool {
	return r.FailureKind != ""
}

// BonusApplied is one bonus the scoring model claims to have applied
type BonusApplied struct {
	Name        string `json:"bonus_name"`
	Reason      string `json:"reason"`
	PointsAdded int    `json:"points_added"`
}

// Verdict is the model's authenticity judgment
type Verdict string

const (
	VerdictGenuine      Verdict = "genuine"
	VerdictQuestionable Verdict = "questionable"
	VerdictSuspicious   Verdict = "suspicious"
)

// Valid reports whether v is one of the enumerated verdicts
func (v Verdict) Valid() bool {
	switch v {
	case VerdictGenuine, VerdictQuestionable, VerdictSuspicious:
		return true
	}
	return false
}

// Recommendation is the model's suggested review disposition
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendReject  Recommendation = "reject"
)

// Valid reports whether r is one of the enumerated recommendations
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendApprove, RecommendReview, RecommendReject:
		return true
	}
	return false
}

// FailureKind names why a fallback score was produced
type FailureKind string

const (
	FailureMissingCredentials FailureKind = "missing_credentials"
	FailureTimeout            FailureKind = "timeout"
	FailureRequestFailed      FailureKind = "api_failed"
)

// ScoredSubmission pairs a submission with its score and review status
type ScoredSubmission struct {
	Submission Submission   `json:"submission"`
	Score      ScoreResult  `json:"score"`
	Status     ReviewStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`

	RejectionReason string `json:"rejection_reason,omitempty"`
	Flagged         bool   `json:"flagged,omitempty"`
}

// ReviewStatus tracks the human review workflow
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is a known review status
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// InitialStatus derives the review status a freshly scored submission starts in
func InitialStatus(r ScoreResult) ReviewStatus {
	if r.AdminRecommendation == RecommendReject {
		return StatusRejected
	}
	return StatusPending
}

// Package model contains the domain types for the answer-trust engine.
package model

import "time"

// SeniorityLevel is the discrete maturity stage of a canonical pattern.
type SeniorityLevel string

const (
	LevelJunior   SeniorityLevel = "JUNIOR"
	LevelLearning SeniorityLevel = "LEARNING"
	LevelSenior   SeniorityLevel = "SENIOR"
	LevelExpert   SeniorityLevel = "EXPERT"
)

// Weight returns the seniority contribution used by the confidence formula.
func (l SeniorityLevel) Weight() float64 {
	switch l {
	case LevelExpert:
		return 1.0
	case LevelSenior:
		return 0.75
	case LevelLearning:
		return 0.5
	case LevelJunior:
		return 0.25
	}
	return 0.25
}

// Next returns the level one step up, or the receiver if already EXPERT.
func (l SeniorityLevel) Next() SeniorityLevel {
	switch l {
	case LevelJunior:
		return LevelLearning
	case LevelLearning:
		return LevelSenior
	case LevelSenior:
		return LevelExpert
	}
	return l
}

// Prev returns the level one step down, or the receiver if already JUNIOR.
func (l SeniorityLevel) Prev() SeniorityLevel {
	switch l {
	case LevelExpert:
		return LevelSenior
	case LevelSenior:
		return LevelLearning
	case LevelLearning:
		return LevelJunior
	}
	return l
}

// Valid reports whether l is one of the four defined levels.
func (l SeniorityLevel) Valid() bool {
	switch l {
	case LevelJunior, LevelLearning, LevelSenior, LevelExpert:
		return true
	}
	return false
}

// ReviewOutcome is the result of a human review of a pattern's answer.
type ReviewOutcome string

const (
	ReviewApproved ReviewOutcome = "APPROVED"
	ReviewRejected ReviewOutcome = "REJECTED"
	ReviewModified ReviewOutcome = "MODIFIED"
)

// Valid reports whether o is a defined review outcome.
func (o ReviewOutcome) Valid() bool {
	switch o {
	case ReviewApproved, ReviewRejected, ReviewModified:
		return true
	}
	return false
}

// CanonicalPattern is a deduplicated recurring customer question together
// with the learned trust metadata for its automated answers.
type CanonicalPattern struct {
	ID          string `json:"id"`
	StoreID     string `json:"store_id"`
	PatternHash string `json:"pattern_hash"`

	CanonicalQuestion string `json:"canonical_question"`
	CanonicalAnswer   string `json:"canonical_answer,omitempty"`

	OccurrenceCount   int `json:"occurrence_count"`
	ApprovalCount     int `json:"approval_count"`
	RejectionCount    int `json:"rejection_count"`
	ModificationCount int `json:"modification_count"`

	ConfidenceScore float64        `json:"confidence_score"`
	SeniorityLevel  SeniorityLevel `json:"seniority_level"`

	AutoSubmitEligible      bool       `json:"auto_submit_eligible"`
	AutoSubmitEnabledAt     *time.Time `json:"auto_submit_enabled_at,omitempty"`
	AutoSubmitDisableReason string     `json:"auto_submit_disable_reason,omitempty"`

	// Optional scoping attributes, used for reporting only.
	ProductID string `json:"product_id,omitempty"`
	Category  string `json:"category,omitempty"`

	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
	LastHumanReview *time.Time `json:"last_human_review,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TotalReviews returns the number of human review outcomes recorded.
func (p *CanonicalPattern) TotalReviews() int {
	return p.ApprovalCount + p.RejectionCount + p.ModificationCount
}

// ApprovalRate returns approvals / total reviews, or 0 with no reviews.
func (p *CanonicalPattern) ApprovalRate() float64 {
	total := p.TotalReviews()
	if total == 0 {
		return 0
	}
	return float64(p.ApprovalCount) / float64(total)
}

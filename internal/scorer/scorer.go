// Package scorer maintains each pattern's seniority level, confidence score
// and auto-submit eligibility from its human review history.
package scorer

import (
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/model"
)

// Scorer computes seniority levels, confidence scores and auto-submit
// eligibility. All methods mutate the pattern in memory only; callers
// persist the result under per-pattern mutual exclusion.
type Scorer struct {
	cfg config.TrustConfig

	// Now is the clock used for recency, waiting periods and timestamps.
	// Overridable in tests.
	Now func() time.Time
}

// New creates a Scorer with the given thresholds.
func New(cfg config.TrustConfig) *Scorer {
	return &Scorer{cfg: cfg, Now: func() time.Time { return time.Now().UTC() }}
}

// ComputeLevel recomputes the seniority level from scratch off the pattern's
// current counters. First matching row of the promotion table wins.
func (s *Scorer) ComputeLevel(p *model.CanonicalPattern) model.SeniorityLevel {
	total := p.TotalReviews()
	rate := p.ApprovalRate()

	switch {
	case total >= s.cfg.ExpertMinReviews && rate >= s.cfg.ExpertMinRate && p.ApprovalCount >= s.cfg.ExpertMinApprovals:
		return model.LevelExpert
	case total >= s.cfg.SeniorMinReviews && rate >= s.cfg.SeniorMinRate && p.ApprovalCount >= s.cfg.SeniorMinApprovals:
		return model.LevelSenior
	case p.OccurrenceCount >= s.cfg.LearningMinOccurrences:
		return model.LevelLearning
	}
	return model.LevelJunior
}

// ComputeConfidence returns the confidence score in [0,1], rounded to four
// decimals:
//
//	0.4 * approvalRate
//	0.3 * min(1, ln(occurrenceCount+1) / ln(21))
//	0.2 * seniorityWeight
//	recency: up to 0.1, decaying linearly to 0 over the recency window;
//	         0 when the pattern has never been reviewed.
func (s *Scorer) ComputeConfidence(p *model.CanonicalPattern) float64 {
	rate := p.ApprovalRate()
	occurrence := math.Min(1, math.Log(float64(p.OccurrenceCount)+1)/math.Log(21))

	recency := 0.0
	if p.LastHumanReview != nil {
		window := float64(s.cfg.RecencyWindowDays)
		days := s.Now().Sub(*p.LastHumanReview).Hours() / 24
		if days < 0 {
			days = 0
		}
		if days < window {
			recency = 0.1 * (1 - days/window)
		}
	}

	confidence := 0.4*rate + 0.3*occurrence + 0.2*p.SeniorityLevel.Weight() + recency
	return math.Round(confidence*10000) / 10000
}

// Refresh recomputes level and confidence after counter changes that did not
// come from a review (e.g. an occurrence bump promoted JUNIOR to LEARNING).
func (s *Scorer) Refresh(p *model.CanonicalPattern) {
	p.SeniorityLevel = s.ComputeLevel(p)
	p.ConfidenceScore = s.ComputeConfidence(p)
	p.UpdatedAt = s.Now()
}

// ApplyReview records a human review outcome: counter increment, level and
// confidence recomputation, the rejection kill-switch, and arming of the
// auto-submit waiting period when the hard requirements are first met.
func (s *Scorer) ApplyReview(p *model.CanonicalPattern, outcome model.ReviewOutcome) error {
	if !outcome.Valid() {
		return eris.Wrapf(model.ErrInvalidState, "unknown review outcome %q", outcome)
	}

	now := s.Now()
	switch outcome {
	case model.ReviewApproved:
		p.ApprovalCount++
	case model.ReviewRejected:
		p.RejectionCount++
	case model.ReviewModified:
		p.ModificationCount++
	}
	p.LastHumanReview = &now

	p.SeniorityLevel = s.ComputeLevel(p)
	p.ConfidenceScore = s.ComputeConfidence(p)
	p.UpdatedAt = now

	if outcome == model.ReviewRejected {
		// Kill-switch: a rejection disables auto-submit immediately and
		// disarms the waiting period, so only a manual enable re-earns it.
		s.disable(p, fmt.Sprintf("rejected by human review at %s", now.Format(time.RFC3339)))
		return nil
	}

	s.armWaitingPeriod(p)
	return nil
}

// SweepEligibility flips a pattern to auto-submit eligible once its waiting
// period has elapsed, provided it still holds EXPERT level and the hard
// requirements at that moment. Returns true when the pattern changed.
func (s *Scorer) SweepEligibility(p *model.CanonicalPattern) bool {
	if p.AutoSubmitEligible || p.AutoSubmitEnabledAt == nil {
		return false
	}
	now := s.Now()
	if !now.After(*p.AutoSubmitEnabledAt) {
		return false
	}
	if p.SeniorityLevel != model.LevelExpert || !s.meetsHardRequirements(p) {
		return false
	}

	p.AutoSubmitEligible = true
	p.AutoSubmitDisableReason = ""
	p.ConfidenceScore = s.ComputeConfidence(p)
	p.UpdatedAt = now

	zap.L().Info("scorer: auto-submit enabled",
		zap.String("pattern_id", p.ID),
		zap.Float64("confidence", p.ConfidenceScore),
	)
	return true
}

// CanAutoSubmit is the single predicate external callers must check before
// bypassing human review for a pattern's answers.
func (s *Scorer) CanAutoSubmit(p *model.CanonicalPattern) bool {
	return p.AutoSubmitEligible &&
		p.SeniorityLevel == model.LevelExpert &&
		p.ConfidenceScore >= s.cfg.AutoSubmitMinConfidence
}

// Promote moves the pattern exactly one level up as a manual override.
func (s *Scorer) Promote(p *model.CanonicalPattern) error {
	if p.SeniorityLevel == model.LevelExpert {
		return eris.Wrap(model.ErrInvalidState, "pattern already at EXPERT")
	}
	p.SeniorityLevel = p.SeniorityLevel.Next()
	p.ConfidenceScore = s.ComputeConfidence(p)
	p.UpdatedAt = s.Now()
	return nil
}

// Demote moves the pattern exactly one level down as a manual override.
// Demoting away from EXPERT force-disables auto-submit.
func (s *Scorer) Demote(p *model.CanonicalPattern) error {
	if p.SeniorityLevel == model.LevelJunior {
		return eris.Wrap(model.ErrInvalidState, "pattern already at JUNIOR")
	}
	wasExpert := p.SeniorityLevel == model.LevelExpert
	p.SeniorityLevel = p.SeniorityLevel.Prev()
	if wasExpert {
		s.disable(p, "manually demoted from EXPERT")
	}
	p.ConfidenceScore = s.ComputeConfidence(p)
	p.UpdatedAt = s.Now()
	return nil
}

// EnableAutoSubmit grants eligibility immediately, skipping the waiting
// period. Requires EXPERT level and the hard requirements.
func (s *Scorer) EnableAutoSubmit(p *model.CanonicalPattern) error {
	if p.SeniorityLevel != model.LevelExpert {
		return eris.Wrapf(model.ErrInvalidState, "enable auto-submit requires EXPERT, pattern is %s", p.SeniorityLevel)
	}
	if !s.meetsHardRequirements(p) {
		return eris.Wrap(model.ErrInvalidState, "pattern does not meet auto-submit requirements")
	}
	now := s.Now()
	p.AutoSubmitEligible = true
	p.AutoSubmitEnabledAt = &now
	p.AutoSubmitDisableReason = ""
	p.ConfidenceScore = s.ComputeConfidence(p)
	p.UpdatedAt = now
	return nil
}

// DisableAutoSubmit always succeeds and records a human-readable reason.
func (s *Scorer) DisableAutoSubmit(p *model.CanonicalPattern, reason string) {
	s.disable(p, reason)
	p.UpdatedAt = s.Now()
}

// meetsHardRequirements checks the non-negotiable auto-submit gates.
func (s *Scorer) meetsHardRequirements(p *model.CanonicalPattern) bool {
	return p.OccurrenceCount >= s.cfg.AutoSubmitMinOccurrences &&
		p.ApprovalCount >= s.cfg.AutoSubmitMinApprovals &&
		p.ApprovalRate() >= s.cfg.AutoSubmitMinRate &&
		p.LastHumanReview != nil
}

// armWaitingPeriod starts the auto-submit waiting period the first time an
// EXPERT pattern satisfies the hard requirements.
func (s *Scorer) armWaitingPeriod(p *model.CanonicalPattern) {
	if p.AutoSubmitEligible || p.AutoSubmitEnabledAt != nil {
		return
	}
	if p.SeniorityLevel != model.LevelExpert || !s.meetsHardRequirements(p) {
		return
	}
	unlock := s.Now().Add(time.Duration(s.cfg.AutoSubmitWaitHours) * time.Hour)
	p.AutoSubmitEnabledAt = &unlock

	zap.L().Info("scorer: auto-submit waiting period started",
		zap.String("pattern_id", p.ID),
		zap.Time("unlock_at", unlock),
	)
}

// disable clears eligibility and the waiting period; re-earning requires a
// manual enable.
func (s *Scorer) disable(p *model.CanonicalPattern, reason string) {
	p.AutoSubmitEligible = false
	p.AutoSubmitEnabledAt = nil
	p.AutoSubmitDisableReason = reason
}

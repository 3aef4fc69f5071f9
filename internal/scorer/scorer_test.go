package scorer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/trust-engine/internal/model"
)

func newTestScorer() *Scorer {
	s := New(DefaultTrustConfig())
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return base }
	return s
}

func pattern(occ, approvals, rejections, mods int) *model.CanonicalPattern {
	return &model.CanonicalPattern{
		ID:                "p-1",
		StoreID:           "store-1",
		OccurrenceCount:   occ,
		ApprovalCount:     approvals,
		RejectionCount:    rejections,
		ModificationCount: mods,
		SeniorityLevel:    model.LevelJunior,
	}
}

func TestComputeLevel_Table(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name string
		p    *model.CanonicalPattern
		want model.SeniorityLevel
	}{
		{"fresh pattern", pattern(1, 0, 0, 0), model.LevelJunior},
		{"two occurrences", pattern(2, 0, 0, 0), model.LevelJunior},
		{"three occurrences", pattern(3, 0, 0, 0), model.LevelLearning},
		{"senior at 5 perfect reviews", pattern(6, 5, 0, 0), model.LevelSenior},
		{"senior at 80 percent", pattern(10, 8, 2, 0), model.LevelSenior},
		{"below senior rate", pattern(10, 7, 3, 0), model.LevelLearning},
		{"expert at 10 perfect reviews", pattern(12, 10, 0, 0), model.LevelExpert},
		{"expert at 90 percent", pattern(20, 18, 1, 1), model.LevelExpert},
		{"ten reviews but low approvals", pattern(20, 9, 0, 1), model.LevelSenior},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ComputeLevel(tt.p))
		})
	}
}

func TestComputeLevel_IsIdempotent(t *testing.T) {
	s := newTestScorer()
	p := pattern(10, 8, 2, 0)
	first := s.ComputeLevel(p)
	p.SeniorityLevel = first
	assert.Equal(t, first, s.ComputeLevel(p))
}

func TestScenarioB_SeniorNeedsFiveReviews(t *testing.T) {
	s := newTestScorer()
	p := pattern(6, 4, 0, 0)

	// Rate 1.0 but only 4 total reviews: not yet SENIOR.
	assert.Equal(t, model.LevelLearning, s.ComputeLevel(p))

	require.NoError(t, s.ApplyReview(p, model.ReviewApproved))
	assert.Equal(t, 5, p.ApprovalCount)
	assert.Equal(t, model.LevelSenior, p.SeniorityLevel)
}

func TestApplyReview_MonotonicCounters(t *testing.T) {
	s := newTestScorer()
	p := pattern(5, 0, 0, 0)

	outcomes := []model.ReviewOutcome{
		model.ReviewApproved, model.ReviewModified, model.ReviewRejected,
		model.ReviewApproved, model.ReviewApproved,
	}
	prevTotal := 0
	for i, o := range outcomes {
		require.NoError(t, s.ApplyReview(p, o))
		total := p.TotalReviews()
		assert.Greater(t, total, prevTotal)
		assert.Equal(t, i+1, total, "review sum must equal events applied")
		prevTotal = total
	}
	assert.Equal(t, 3, p.ApprovalCount)
	assert.Equal(t, 1, p.RejectionCount)
	assert.Equal(t, 1, p.ModificationCount)
}

func TestApplyReview_UnknownOutcome(t *testing.T) {
	s := newTestScorer()
	err := s.ApplyReview(pattern(1, 0, 0, 0), model.ReviewOutcome("MAYBE"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidState))
}

func TestComputeConfidence(t *testing.T) {
	s := newTestScorer()

	// Never reviewed: recency factor is 0.
	p := pattern(1, 0, 0, 0)
	p.SeniorityLevel = model.LevelJunior
	// 0.4*0 + 0.3*(ln2/ln21) + 0.2*0.25 + 0
	want := 0.3*(math.Log(2)/math.Log(21)) + 0.05
	assert.InDelta(t, math.Round(want*10000)/10000, s.ComputeConfidence(p), 1e-9)

	// Reviewed just now: full 0.1 recency bonus.
	now := s.Now()
	p.LastHumanReview = &now
	assert.InDelta(t, math.Round((want+0.1)*10000)/10000, s.ComputeConfidence(p), 1e-9)

	// 15 of 30 days elapsed: half the bonus.
	old := now.Add(-15 * 24 * time.Hour)
	p.LastHumanReview = &old
	assert.InDelta(t, math.Round((want+0.05)*10000)/10000, s.ComputeConfidence(p), 1e-9)

	// Window fully elapsed: no bonus.
	older := now.Add(-31 * 24 * time.Hour)
	p.LastHumanReview = &older
	assert.InDelta(t, math.Round(want*10000)/10000, s.ComputeConfidence(p), 1e-9)
}

func TestComputeConfidence_OccurrenceSaturates(t *testing.T) {
	s := newTestScorer()
	p := pattern(20, 0, 0, 0)
	p.SeniorityLevel = model.LevelJunior
	q := pattern(500, 0, 0, 0)
	q.SeniorityLevel = model.LevelJunior

	// ln(21)/ln(21) caps the occurrence term at 0.3.
	assert.Equal(t, s.ComputeConfidence(p), s.ComputeConfidence(q))
}

func TestScenarioC_WaitingPeriodThenSweep(t *testing.T) {
	s := newTestScorer()
	start := s.Now()

	// EXPERT pattern meeting all hard requirements on its 10th approval.
	p := pattern(12, 9, 0, 0)
	p.SeniorityLevel = model.LevelExpert
	require.NoError(t, s.ApplyReview(p, model.ReviewApproved))

	assert.Equal(t, model.LevelExpert, p.SeniorityLevel)
	assert.False(t, p.AutoSubmitEligible)
	require.NotNil(t, p.AutoSubmitEnabledAt)
	assert.True(t, p.AutoSubmitEnabledAt.Equal(start.Add(72*time.Hour)))

	// Sweep before the unlock time: nothing changes.
	assert.False(t, s.SweepEligibility(p))
	assert.False(t, p.AutoSubmitEligible)

	// Sweep one hour past the unlock time: eligibility flips.
	s.Now = func() time.Time { return start.Add(73 * time.Hour) }
	assert.True(t, s.SweepEligibility(p))
	assert.True(t, p.AutoSubmitEligible)

	// Re-sweeping is a no-op.
	assert.False(t, s.SweepEligibility(p))
}

func TestSweep_RequiresStillExpert(t *testing.T) {
	s := newTestScorer()
	start := s.Now()

	p := pattern(12, 10, 0, 0)
	p.SeniorityLevel = model.LevelExpert
	unlock := start.Add(-time.Hour)
	p.AutoSubmitEnabledAt = &unlock
	p.LastHumanReview = &start

	p.SeniorityLevel = model.LevelSenior
	assert.False(t, s.SweepEligibility(p))
	assert.False(t, p.AutoSubmitEligible)
}

func TestRejectionKillSwitch(t *testing.T) {
	s := newTestScorer()

	p := pattern(20, 18, 0, 0)
	p.SeniorityLevel = model.LevelExpert
	now := s.Now()
	p.LastHumanReview = &now
	p.AutoSubmitEligible = true
	enabledAt := now.Add(-time.Hour)
	p.AutoSubmitEnabledAt = &enabledAt
	p.ConfidenceScore = 0.95

	require.NoError(t, s.ApplyReview(p, model.ReviewRejected))

	assert.False(t, p.AutoSubmitEligible)
	assert.Nil(t, p.AutoSubmitEnabledAt, "waiting period must be disarmed so the sweep cannot re-enable")
	assert.NotEmpty(t, p.AutoSubmitDisableReason)

	// Rate 18/19 is still above 0.90 so the level survives, but eligibility
	// does not come back without a manual enable.
	assert.Equal(t, model.LevelExpert, p.SeniorityLevel)
	assert.False(t, s.SweepEligibility(p))
}

func TestEligibilityImpliesExpert(t *testing.T) {
	s := newTestScorer()

	// A pattern that was eligible and then demoted loses eligibility.
	p := pattern(20, 18, 0, 0)
	p.SeniorityLevel = model.LevelExpert
	now := s.Now()
	p.LastHumanReview = &now
	require.NoError(t, s.EnableAutoSubmit(p))
	require.True(t, p.AutoSubmitEligible)

	require.NoError(t, s.Demote(p))
	assert.Equal(t, model.LevelSenior, p.SeniorityLevel)
	assert.False(t, p.AutoSubmitEligible)
	assert.False(t, s.CanAutoSubmit(p))
}

func TestCanAutoSubmit_ConfidenceFloor(t *testing.T) {
	s := newTestScorer()
	p := pattern(20, 18, 0, 0)
	p.SeniorityLevel = model.LevelExpert
	p.AutoSubmitEligible = true

	p.ConfidenceScore = 0.84
	assert.False(t, s.CanAutoSubmit(p))
	p.ConfidenceScore = 0.85
	assert.True(t, s.CanAutoSubmit(p))
}

func TestPromoteDemote_OneStep(t *testing.T) {
	s := newTestScorer()
	p := pattern(1, 0, 0, 0)

	require.NoError(t, s.Promote(p))
	assert.Equal(t, model.LevelLearning, p.SeniorityLevel)
	require.NoError(t, s.Promote(p))
	assert.Equal(t, model.LevelSenior, p.SeniorityLevel)
	require.NoError(t, s.Promote(p))
	assert.Equal(t, model.LevelExpert, p.SeniorityLevel)

	err := s.Promote(p)
	assert.True(t, errors.Is(err, model.ErrInvalidState))

	require.NoError(t, s.Demote(p))
	assert.Equal(t, model.LevelSenior, p.SeniorityLevel)
	require.NoError(t, s.Demote(p))
	require.NoError(t, s.Demote(p))
	assert.Equal(t, model.LevelJunior, p.SeniorityLevel)

	err = s.Demote(p)
	assert.True(t, errors.Is(err, model.ErrInvalidState))
}

func TestEnableAutoSubmit_Preconditions(t *testing.T) {
	s := newTestScorer()
	now := s.Now()

	// Not EXPERT.
	p := pattern(20, 18, 0, 0)
	p.SeniorityLevel = model.LevelSenior
	p.LastHumanReview = &now
	err := s.EnableAutoSubmit(p)
	assert.True(t, errors.Is(err, model.ErrInvalidState))

	// EXPERT but no review recorded.
	p = pattern(20, 18, 0, 0)
	p.SeniorityLevel = model.LevelExpert
	err = s.EnableAutoSubmit(p)
	assert.True(t, errors.Is(err, model.ErrInvalidState))

	// All requirements met: immediate, no waiting period.
	p.LastHumanReview = &now
	require.NoError(t, s.EnableAutoSubmit(p))
	assert.True(t, p.AutoSubmitEligible)
}

func TestDisableAutoSubmit_AlwaysSucceeds(t *testing.T) {
	s := newTestScorer()
	p := pattern(1, 0, 0, 0)

	s.DisableAutoSubmit(p, "manually paused by operator")
	assert.False(t, p.AutoSubmitEligible)
	assert.Equal(t, "manually paused by operator", p.AutoSubmitDisableReason)
	assert.Nil(t, p.AutoSubmitEnabledAt)
}

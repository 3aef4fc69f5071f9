package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sellerdesk/trust-engine/internal/config"
)

// DefaultTrustConfig returns a config.TrustConfig with the shipped defaults.
func DefaultTrustConfig() config.TrustConfig {
	return config.TrustConfig{
		FuzzyThreshold: 0.70,

		LearningMinOccurrences: 3,
		SeniorMinReviews:       5,
		SeniorMinApprovals:     5,
		SeniorMinRate:          0.80,
		ExpertMinReviews:       10,
		ExpertMinApprovals:     10,
		ExpertMinRate:          0.90,

		AutoSubmitMinOccurrences: 5,
		AutoSubmitMinApprovals:   3,
		AutoSubmitMinRate:        0.90,
		AutoSubmitMinConfidence:  0.85,
		AutoSubmitWaitHours:      72,

		RecencyWindowDays: 30,

		ClusterWindowDays:     7,
		ClusterMinSize:        3,
		SuggestionHighCount:   15,
		SuggestionMediumCount: 8,
		SampleQuestionLimit:   5,
		ClusterConcurrency:    4,
	}
}

// ValidateConfig checks that a TrustConfig is internally consistent.
func ValidateConfig(c config.TrustConfig) error {
	var errs []string

	ratios := map[string]float64{
		"fuzzy_threshold":            c.FuzzyThreshold,
		"senior_min_rate":            c.SeniorMinRate,
		"expert_min_rate":            c.ExpertMinRate,
		"auto_submit_min_rate":       c.AutoSubmitMinRate,
		"auto_submit_min_confidence": c.AutoSubmitMinConfidence,
	}
	for name, v := range ratios {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}

	counts := map[string]int{
		"learning_min_occurrences":    c.LearningMinOccurrences,
		"senior_min_reviews":          c.SeniorMinReviews,
		"senior_min_approvals":        c.SeniorMinApprovals,
		"expert_min_reviews":          c.ExpertMinReviews,
		"expert_min_approvals":        c.ExpertMinApprovals,
		"auto_submit_min_occurrences": c.AutoSubmitMinOccurrences,
		"auto_submit_min_approvals":   c.AutoSubmitMinApprovals,
		"auto_submit_wait_hours":      c.AutoSubmitWaitHours,
		"recency_window_days":         c.RecencyWindowDays,
		"cluster_window_days":         c.ClusterWindowDays,
		"cluster_min_size":            c.ClusterMinSize,
		"sample_question_limit":       c.SampleQuestionLimit,
	}
	for name, v := range counts {
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}

	// The expert row must be at least as strict as the senior row, or the
	// top-down promotion table would never reach SENIOR.
	if c.ExpertMinReviews < c.SeniorMinReviews {
		errs = append(errs, "expert_min_reviews must be >= senior_min_reviews")
	}
	if c.ExpertMinRate < c.SeniorMinRate {
		errs = append(errs, "expert_min_rate must be >= senior_min_rate")
	}

	if c.SuggestionHighCount < c.SuggestionMediumCount {
		errs = append(errs, "suggestion_high_count must be >= suggestion_medium_count")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

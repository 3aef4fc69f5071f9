// Package matcher recognizes recurring customer questions by exact
// fingerprint lookup with a Jaccard fuzzy-match fallback.
package matcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/model"
	"github.com/sellerdesk/trust-engine/internal/store"
	"github.com/sellerdesk/trust-engine/internal/textnorm"
)

// Matcher looks up and creates canonical patterns for incoming questions.
type Matcher struct {
	st        store.Store
	threshold float64
	now       func() time.Time
}

// New creates a Matcher using the configured fuzzy threshold.
func New(st store.Store, cfg config.TrustConfig) *Matcher {
	return &Matcher{st: st, threshold: cfg.FuzzyThreshold, now: func() time.Time { return time.Now().UTC() }}
}

// Match returns the existing pattern for questionText, or nil if none
// matches. On a hit the pattern's occurrence count and last-seen time are
// bumped and the returned pattern reflects the update.
func (m *Matcher) Match(ctx context.Context, storeID, questionText string) (*model.CanonicalPattern, error) {
	hash := textnorm.Hash(questionText)

	// Exact fingerprint lookup first.
	p, err := m.st.GetPatternByHash(ctx, storeID, hash)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: lookup by hash")
	}
	if p != nil {
		return m.touch(ctx, p)
	}

	// Fuzzy fallback: best Jaccard score over the store's patterns. Ties go
	// to the first-encountered pattern; near-duplicates converge over time.
	candidates, err := m.st.ListPatterns(ctx, store.PatternFilter{StoreID: storeID})
	if err != nil {
		return nil, eris.Wrap(err, "matcher: list patterns")
	}

	qset := textnorm.TokenSet(questionText)
	var best *model.CanonicalPattern
	bestScore := 0.0
	for i := range candidates {
		score := textnorm.JaccardSets(qset, textnorm.TokenSet(candidates[i].CanonicalQuestion))
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
		}
	}

	if best == nil || bestScore < m.threshold {
		return nil, nil
	}

	zap.L().Debug("matcher: fuzzy match",
		zap.String("store_id", storeID),
		zap.String("pattern_id", best.ID),
		zap.Float64("score", bestScore),
	)
	return m.touch(ctx, best)
}

// MatchOrCreate matches questionText against the store's patterns, creating
// a new JUNIOR pattern when nothing matches. The second return value is true
// when a pattern was created.
func (m *Matcher) MatchOrCreate(ctx context.Context, storeID, questionText string) (*model.CanonicalPattern, bool, error) {
	p, err := m.Match(ctx, storeID, questionText)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		return p, false, nil
	}

	now := m.now()
	p = &model.CanonicalPattern{
		ID:                uuid.New().String(),
		StoreID:           storeID,
		PatternHash:       textnorm.Hash(questionText),
		CanonicalQuestion: questionText,
		OccurrenceCount:   1,
		SeniorityLevel:    model.LevelJunior,
		FirstSeenAt:       now,
		LastSeenAt:        now,
		UpdatedAt:         now,
	}
	if err := m.st.CreatePattern(ctx, p); err != nil {
		return nil, false, eris.Wrap(err, "matcher: create pattern")
	}

	zap.L().Info("matcher: new pattern",
		zap.String("store_id", storeID),
		zap.String("pattern_id", p.ID),
	)
	return p, true, nil
}

func (m *Matcher) touch(ctx context.Context, p *model.CanonicalPattern) (*model.CanonicalPattern, error) {
	seen := m.now()
	if err := m.st.IncrementOccurrence(ctx, p.ID, seen); err != nil {
		return nil, eris.Wrap(err, "matcher: increment occurrence")
	}
	p.OccurrenceCount++
	p.LastSeenAt = seen
	p.UpdatedAt = seen
	return p, nil
}

// Package cluster mines windows of un-patterned customer questions for
// recurring topics and turns them into knowledge suggestions.
package cluster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/model"
	"github.com/sellerdesk/trust-engine/internal/store"
	"github.com/sellerdesk/trust-engine/internal/textnorm"
)

// Clusterer groups similar un-patterned questions and merges the resulting
// clusters into the pending suggestion queue.
type Clusterer struct {
	st  store.Store
	cfg config.TrustConfig

	// Now is the clock used for window math and timestamps. Overridable
	// in tests.
	Now func() time.Time
}

// New creates a Clusterer backed by st.
func New(st store.Store, cfg config.TrustConfig) *Clusterer {
	return &Clusterer{st: st, cfg: cfg, Now: func() time.Time { return time.Now().UTC() }}
}

// Run clusters one store's recent un-patterned questions. Clusters below
// the minimum size are discarded; the rest land in the suggestion queue,
// merged into an existing pending suggestion when its title is similar
// enough.
func (c *Clusterer) Run(ctx context.Context, storeID string) error {
	since := c.Now().AddDate(0, 0, -c.cfg.ClusterWindowDays)
	questions, err := c.st.ListUnpatternedQuestions(ctx, storeID, since)
	if err != nil {
		return eris.Wrapf(err, "cluster: list questions for %s", storeID)
	}
	if len(questions) == 0 {
		return nil
	}

	clusters := c.group(questions)

	created, merged := 0, 0
	for _, cl := range clusters {
		if len(cl) < c.cfg.ClusterMinSize {
			continue
		}
		wasMerged, err := c.commit(ctx, storeID, cl)
		if err != nil {
			return err
		}
		if wasMerged {
			merged++
		} else {
			created++
		}
	}

	zap.L().Info("cluster: run complete",
		zap.String("store_id", storeID),
		zap.Int("questions", len(questions)),
		zap.Int("clusters", len(clusters)),
		zap.Int("suggestions_created", created),
		zap.Int("suggestions_merged", merged),
	)
	return nil
}

// RunAll runs clustering for every known store with bounded concurrency.
func (c *Clusterer) RunAll(ctx context.Context) error {
	storeIDs, err := c.st.ListStoreIDs(ctx)
	if err != nil {
		return eris.Wrap(err, "cluster: list stores")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.ClusterConcurrency)
	for _, id := range storeIDs {
		g.Go(func() error {
			return c.Run(gctx, id)
		})
	}
	return g.Wait()
}

// group partitions questions greedily: each question joins the first
// cluster whose seed question is similar enough, otherwise it seeds a new
// cluster. Seeds stay fixed so cluster identity does not drift mid-pass.
func (c *Clusterer) group(questions []model.CustomerQuestion) [][]model.CustomerQuestion {
	var clusters [][]model.CustomerQuestion
	seeds := make([]map[string]struct{}, 0)

	for _, q := range questions {
		set := textnorm.TokenSet(q.Text)
		placed := false
		for i, seed := range seeds {
			if textnorm.JaccardSets(set, seed) >= c.cfg.FuzzyThreshold {
				clusters[i] = append(clusters[i], q)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []model.CustomerQuestion{q})
			seeds = append(seeds, set)
		}
	}
	return clusters
}

// commit folds one qualifying cluster into the suggestion queue. It reports
// whether the cluster was merged into an existing pending suggestion.
func (c *Clusterer) commit(ctx context.Context, storeID string, cl []model.CustomerQuestion) (bool, error) {
	title := cl[0].Text
	pending, err := c.st.ListPendingSuggestions(ctx, storeID)
	if err != nil {
		return false, eris.Wrapf(err, "cluster: list pending suggestions for %s", storeID)
	}

	for i := range pending {
		s := &pending[i]
		if textnorm.Jaccard(s.SuggestedTitle, title) < c.cfg.FuzzyThreshold {
			continue
		}
		s.QuestionCount += len(cl)
		s.Priority = model.SuggestionPriorityFor(s.QuestionCount,
			c.cfg.SuggestionHighCount, c.cfg.SuggestionMediumCount)
		s.SampleQuestions = appendSamples(s.SampleQuestions, cl, c.cfg.SampleQuestionLimit)
		s.UpdatedAt = c.Now()
		if err := c.st.UpdateSuggestion(ctx, s); err != nil {
			return false, eris.Wrapf(err, "cluster: merge suggestion %s", s.ID)
		}
		return true, nil
	}

	now := c.Now()
	s := &model.KnowledgeSuggestion{
		ID:               uuid.New().String(),
		StoreID:          storeID,
		SuggestedTitle:   title,
		SuggestedContent: suggestedContent(cl),
		SampleQuestions:  appendSamples(nil, cl, c.cfg.SampleQuestionLimit),
		QuestionCount:    len(cl),
		Priority: model.SuggestionPriorityFor(len(cl),
			c.cfg.SuggestionHighCount, c.cfg.SuggestionMediumCount),
		Status:    model.SuggestionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.st.CreateSuggestion(ctx, s); err != nil {
		return false, eris.Wrapf(err, "cluster: create suggestion for %s", storeID)
	}
	return false, nil
}

// ContentPlaceholder marks a suggestion whose cluster had no answered
// question, so curators see an explicit fill-me draft instead of an empty
// field.
const ContentPlaceholder = "[Taslak] Örnek soruları inceleyip yanıt içeriğini doldurun."

// suggestedContent seeds the draft content from the first answered question
// in the cluster, falling back to the human-fill placeholder.
func suggestedContent(cl []model.CustomerQuestion) string {
	for _, q := range cl {
		if q.AnswerText != "" {
			return q.AnswerText
		}
	}
	return ContentPlaceholder
}

// appendSamples adds cluster question texts to samples up to the limit,
// skipping exact duplicates.
func appendSamples(samples []string, cl []model.CustomerQuestion, limit int) []string {
	seen := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		seen[s] = struct{}{}
	}
	for _, q := range cl {
		if len(samples) >= limit {
			break
		}
		if _, ok := seen[q.Text]; ok {
			continue
		}
		samples = append(samples, q.Text)
		seen[q.Text] = struct{}{}
	}
	return samples
}

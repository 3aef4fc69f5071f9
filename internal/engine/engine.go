// Package engine ties matching, scoring, gating and clustering together
// behind the operations the webhook server and CLI commands call.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/cluster"
	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/gate"
	"github.com/sellerdesk/trust-engine/internal/matcher"
	"github.com/sellerdesk/trust-engine/internal/model"
	"github.com/sellerdesk/trust-engine/internal/scorer"
	"github.com/sellerdesk/trust-engine/internal/store"
	"github.com/sellerdesk/trust-engine/internal/textnorm"
)

// Engine is the application facade. All pattern mutations go through
// per-pattern locks so concurrent reviews and sweeps never interleave a
// read-modify-write.
type Engine struct {
	st      store.Store
	matcher *matcher.Matcher
	scorer  *scorer.Scorer
	gate    *gate.Gate
	cluster *cluster.Clusterer

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// Now is the clock for record timestamps. Overridable in tests.
	Now func() time.Time
}

// QuestionResult is the outcome of ingesting one customer question.
type QuestionResult struct {
	QuestionID string                `json:"question_id"`
	Blocked    bool                  `json:"blocked"`
	Alerts     []model.ConflictAlert `json:"alerts,omitempty"`
}

// AnswerResult is the outcome of registering a generated answer.
type AnswerResult struct {
	Pattern    *model.CanonicalPattern `json:"pattern"`
	NewPattern bool                    `json:"new_pattern"`
	Alerts     []model.ConflictAlert   `json:"alerts,omitempty"`
}

// New creates an Engine over st with the given configuration.
func New(st store.Store, trust config.TrustConfig, gateCfg config.GateConfig) *Engine {
	return &Engine{
		st:      st,
		matcher: matcher.New(st, trust),
		scorer:  scorer.New(trust),
		gate:    gate.New(gateCfg),
		cluster: cluster.New(st, trust),
		locks:   make(map[string]*sync.Mutex),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// lock returns the mutex guarding one pattern's read-modify-write cycles.
func (e *Engine) lock(patternID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[patternID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[patternID] = l
	}
	return l
}

// OnQuestionReceived records an inbound question and runs the
// pre-generation gate. When the result is blocked the caller must not
// generate an answer; the persisted CRITICAL alert routes the question to
// a human.
func (e *Engine) OnQuestionReceived(ctx context.Context, storeID, questionText string) (*QuestionResult, error) {
	q := &model.CustomerQuestion{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		Text:      questionText,
		TextHash:  textnorm.Hash(questionText),
		CreatedAt: e.Now(),
	}
	if err := e.st.CreateQuestion(ctx, q); err != nil {
		return nil, eris.Wrap(err, "engine: record question")
	}

	res := e.gate.CheckBeforeGeneration(storeID, q.ID, questionText)
	for i := range res.Alerts {
		if err := e.st.CreateAlert(ctx, &res.Alerts[i]); err != nil {
			return nil, eris.Wrap(err, "engine: persist pre-gate alert")
		}
	}

	return &QuestionResult{
		QuestionID: q.ID,
		Blocked:    res.Blocked,
		Alerts:     res.Alerts,
	}, nil
}

// OnAnswerGenerated links a generated answer to its canonical pattern,
// creating a JUNIOR pattern on first sight, and runs the post-generation
// gate against the active knowledge base.
func (e *Engine) OnAnswerGenerated(ctx context.Context, questionID, answerText string) (*AnswerResult, error) {
	q, err := e.st.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load question %s", questionID)
	}

	p, created, err := e.matcher.MatchOrCreate(ctx, q.StoreID, q.Text)
	if err != nil {
		return nil, err
	}

	l := e.lock(p.ID)
	l.Lock()
	if !created {
		// Occurrence growth can promote JUNIOR to LEARNING without any
		// review, so recompute after every match.
		fresh, err := e.st.GetPattern(ctx, p.ID)
		if err != nil {
			l.Unlock()
			return nil, eris.Wrapf(err, "engine: reload pattern %s", p.ID)
		}
		p = fresh
	}
	e.scorer.Refresh(p)
	p.UpdatedAt = e.Now()
	if err := e.st.UpdatePatternScoring(ctx, p); err != nil {
		l.Unlock()
		return nil, eris.Wrapf(err, "engine: save pattern %s", p.ID)
	}
	l.Unlock()

	if err := e.st.LinkQuestionPattern(ctx, q.ID, p.ID, answerText); err != nil {
		return nil, eris.Wrapf(err, "engine: link question %s", q.ID)
	}

	knowledge, err := e.st.ListActiveKnowledge(ctx, q.StoreID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load knowledge for %s", q.StoreID)
	}
	alerts := e.gate.CheckAfterGeneration(q.StoreID, q.ID, q.Text, answerText, knowledge)
	for i := range alerts {
		if err := e.st.CreateAlert(ctx, &alerts[i]); err != nil {
			return nil, eris.Wrap(err, "engine: persist post-gate alert")
		}
	}

	return &AnswerResult{Pattern: p, NewPattern: created, Alerts: alerts}, nil
}

// OnHumanReview records a review outcome against a pattern and recomputes
// its seniority, confidence and auto-submit state.
func (e *Engine) OnHumanReview(ctx context.Context, patternID string, outcome model.ReviewOutcome) (*model.CanonicalPattern, error) {
	l := e.lock(patternID)
	l.Lock()
	defer l.Unlock()

	p, err := e.st.GetPattern(ctx, patternID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load pattern %s", patternID)
	}
	if err := e.scorer.ApplyReview(p, outcome); err != nil {
		return nil, err
	}
	p.UpdatedAt = e.Now()
	if err := e.st.UpdatePatternScoring(ctx, p); err != nil {
		return nil, eris.Wrapf(err, "engine: save pattern %s", patternID)
	}

	zap.L().Info("engine: review recorded",
		zap.String("pattern_id", patternID),
		zap.String("outcome", string(outcome)),
		zap.String("level", string(p.SeniorityLevel)),
		zap.Float64("confidence", p.ConfidenceScore),
	)
	return p, nil
}

// CanAutoSubmit reports whether a pattern's answer may go out without
// human review right now.
func (e *Engine) CanAutoSubmit(ctx context.Context, patternID string) (bool, error) {
	p, err := e.st.GetPattern(ctx, patternID)
	if err != nil {
		return false, eris.Wrapf(err, "engine: load pattern %s", patternID)
	}
	return e.scorer.CanAutoSubmit(p), nil
}

// CanAutoSubmitAnswer additionally checks the question: an active CRITICAL
// alert on it forces the human path regardless of pattern trust.
func (e *Engine) CanAutoSubmitAnswer(ctx context.Context, patternID, questionID string) (bool, error) {
	critical, err := e.st.HasActiveCriticalAlert(ctx, questionID)
	if err != nil {
		return false, eris.Wrapf(err, "engine: check alerts for %s", questionID)
	}
	if critical {
		return false, nil
	}
	return e.CanAutoSubmit(ctx, patternID)
}

// Promote raises a pattern one seniority level.
func (e *Engine) Promote(ctx context.Context, patternID string) (*model.CanonicalPattern, error) {
	return e.mutate(ctx, patternID, e.scorer.Promote)
}

// Demote lowers a pattern one seniority level, disabling auto-submit when
// it leaves EXPERT.
func (e *Engine) Demote(ctx context.Context, patternID string) (*model.CanonicalPattern, error) {
	return e.mutate(ctx, patternID, e.scorer.Demote)
}

// EnableAutoSubmit turns auto-submit on immediately, bypassing the
// waiting period. The pattern must be EXPERT and meet the hard
// requirements.
func (e *Engine) EnableAutoSubmit(ctx context.Context, patternID string) (*model.CanonicalPattern, error) {
	return e.mutate(ctx, patternID, e.scorer.EnableAutoSubmit)
}

// DisableAutoSubmit turns auto-submit off with an operator-supplied reason.
func (e *Engine) DisableAutoSubmit(ctx context.Context, patternID, reason string) (*model.CanonicalPattern, error) {
	return e.mutate(ctx, patternID, func(p *model.CanonicalPattern) error {
		e.scorer.DisableAutoSubmit(p, reason)
		return nil
	})
}

// mutate runs fn against a freshly loaded pattern under its lock and
// persists the result.
func (e *Engine) mutate(ctx context.Context, patternID string, fn func(*model.CanonicalPattern) error) (*model.CanonicalPattern, error) {
	l := e.lock(patternID)
	l.Lock()
	defer l.Unlock()

	p, err := e.st.GetPattern(ctx, patternID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load pattern %s", patternID)
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = e.Now()
	if err := e.st.UpdatePatternScoring(ctx, p); err != nil {
		return nil, eris.Wrapf(err, "engine: save pattern %s", patternID)
	}
	return p, nil
}

// RunHourlyEligibilitySweep flips auto-submit eligible on every pattern
// whose waiting period has elapsed and which still qualifies.
func (e *Engine) RunHourlyEligibilitySweep(ctx context.Context) (int, error) {
	candidates, err := e.st.ListAwaitingAutoSubmit(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "engine: list sweep candidates")
	}

	flipped := 0
	for i := range candidates {
		id := candidates[i].ID
		l := e.lock(id)
		l.Lock()
		p, err := e.st.GetPattern(ctx, id)
		if err != nil {
			l.Unlock()
			return flipped, eris.Wrapf(err, "engine: reload pattern %s", id)
		}
		if e.scorer.SweepEligibility(p) {
			p.UpdatedAt = e.Now()
			if err := e.st.UpdatePatternScoring(ctx, p); err != nil {
				l.Unlock()
				return flipped, eris.Wrapf(err, "engine: save pattern %s", id)
			}
			flipped++
		}
		l.Unlock()
	}

	if flipped > 0 {
		zap.L().Info("engine: eligibility sweep", zap.Int("flipped", flipped))
	}
	return flipped, nil
}

// RunDailyClustering mines un-patterned questions across all stores.
func (e *Engine) RunDailyClustering(ctx context.Context) error {
	return e.cluster.RunAll(ctx)
}

// RunClustering mines un-patterned questions for one store.
func (e *Engine) RunClustering(ctx context.Context, storeID string) error {
	return e.cluster.Run(ctx, storeID)
}

// ReviewSuggestion applies a curator decision to a pending suggestion.
// ACCEPTED and MODIFIED create a knowledge entry; for MODIFIED the given
// title and content replace the suggested ones.
func (e *Engine) ReviewSuggestion(ctx context.Context, suggestionID string, decision model.SuggestionStatus, title, content string) (*model.KnowledgeSuggestion, error) {
	s, err := e.st.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load suggestion %s", suggestionID)
	}
	if s.Status != model.SuggestionPending {
		return nil, eris.Wrapf(model.ErrInvalidState, "engine: suggestion %s already %s", suggestionID, s.Status)
	}

	switch decision {
	case model.SuggestionRejected:
		s.Status = model.SuggestionRejected
	case model.SuggestionAccepted, model.SuggestionModified:
		entryTitle, entryContent := s.SuggestedTitle, s.SuggestedContent
		if decision == model.SuggestionModified {
			entryTitle, entryContent = title, content
		}
		entry := &model.KnowledgeEntry{
			ID:        uuid.New().String(),
			StoreID:   s.StoreID,
			Title:     entryTitle,
			Content:   entryContent,
			Priority:  s.Priority,
			Active:    true,
			CreatedAt: e.Now(),
		}
		if err := e.st.CreateKnowledgeEntry(ctx, entry); err != nil {
			return nil, eris.Wrapf(err, "engine: create knowledge entry for %s", suggestionID)
		}
		s.Status = decision
		s.KnowledgeEntryID = entry.ID
	default:
		return nil, eris.Wrapf(model.ErrInvalidState, "engine: invalid decision %s", decision)
	}

	s.UpdatedAt = e.Now()
	if err := e.st.UpdateSuggestion(ctx, s); err != nil {
		return nil, eris.Wrapf(err, "engine: save suggestion %s", suggestionID)
	}
	return s, nil
}

// ResolveAlert marks an alert RESOLVED with notes and the acting reviewer.
func (e *Engine) ResolveAlert(ctx context.Context, alertID, resolvedBy, notes string) (*model.ConflictAlert, error) {
	return e.closeAlert(ctx, alertID, model.AlertResolved, resolvedBy, notes)
}

// DismissAlert marks an alert DISMISSED.
func (e *Engine) DismissAlert(ctx context.Context, alertID, resolvedBy, notes string) (*model.ConflictAlert, error) {
	return e.closeAlert(ctx, alertID, model.AlertDismissed, resolvedBy, notes)
}

func (e *Engine) closeAlert(ctx context.Context, alertID string, status model.AlertStatus, resolvedBy, notes string) (*model.ConflictAlert, error) {
	a, err := e.st.GetAlert(ctx, alertID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load alert %s", alertID)
	}
	if a.Status != model.AlertActive {
		return nil, eris.Wrapf(model.ErrInvalidState, "engine: alert %s already %s", alertID, a.Status)
	}
	now := e.Now()
	a.Status = status
	a.ResolvedBy = resolvedBy
	a.ResolutionNotes = notes
	a.ResolvedAt = &now
	if err := e.st.UpdateAlert(ctx, a); err != nil {
		return nil, eris.Wrapf(err, "engine: save alert %s", alertID)
	}
	return a, nil
}

package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/model"
	"github.com/sellerdesk/trust-engine/internal/scorer"
	"github.com/sellerdesk/trust-engine/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	gateCfg := config.GateConfig{
		LegalKeywords:        config.DefaultLegalKeywords(),
		HealthSafetyKeywords: config.DefaultHealthSafetyKeywords(),
		BrandKeywords:        config.DefaultBrandKeywords(),
		WarrantyKeywords:     config.DefaultWarrantyKeywords(),
		MaxWarrantyYears:     10,
		SnippetMaxLen:        200,
		NumberWindow:         30,
	}
	return New(st, scorer.DefaultTrustConfig(), gateCfg), st
}

// ingest runs the question+answer flow once and returns the pattern.
func ingest(t *testing.T, e *Engine, storeID, question, answer string) *model.CanonicalPattern {
	t.Helper()
	ctx := context.Background()

	qr, err := e.OnQuestionReceived(ctx, storeID, question)
	require.NoError(t, err)
	require.False(t, qr.Blocked)

	ar, err := e.OnAnswerGenerated(ctx, qr.QuestionID, answer)
	require.NoError(t, err)
	return ar.Pattern
}

func TestRepeatedQuestionGrowsOnePattern(t *testing.T) {
	e, _ := newTestEngine(t)

	p1 := ingest(t, e, "store-1", "Kargo ne zaman gelir?", "Kargonuz 2 gün içinde gelir.")
	assert.Equal(t, model.LevelJunior, p1.SeniorityLevel)
	assert.Equal(t, 1, p1.OccurrenceCount)

	p2 := ingest(t, e, "store-1", "Kargo ne zaman gelir?", "Kargonuz 2 gün içinde gelir.")
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, 2, p2.OccurrenceCount)

	// Third occurrence crosses the LEARNING threshold without any review.
	p3 := ingest(t, e, "store-1", "kargo ne zaman GELİR", "Kargonuz 2 gün içinde gelir.")
	assert.Equal(t, p1.ID, p3.ID)
	assert.Equal(t, 3, p3.OccurrenceCount)
	assert.Equal(t, model.LevelLearning, p3.SeniorityLevel)
}

func TestAnswerLinksQuestionToPattern(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	qr, err := e.OnQuestionReceived(ctx, "store-1", "Ürün orijinal mi?")
	require.NoError(t, err)
	ar, err := e.OnAnswerGenerated(ctx, qr.QuestionID, "Evet, ürünlerimiz orijinaldir.")
	require.NoError(t, err)
	assert.True(t, ar.NewPattern)

	q, err := st.GetQuestion(ctx, qr.QuestionID)
	require.NoError(t, err)
	assert.Equal(t, ar.Pattern.ID, q.PatternID)
	assert.Equal(t, "Evet, ürünlerimiz orijinaldir.", q.AnswerText)
}

func TestLegalThreatBlocksAndPersistsAlert(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	qr, err := e.OnQuestionReceived(ctx, "store-1", "İade etmezseniz dava açacağım")
	require.NoError(t, err)
	assert.True(t, qr.Blocked)
	require.Len(t, qr.Alerts, 1)

	stored, err := st.GetAlert(ctx, qr.Alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConflictLegalRisk, stored.Type)
	assert.Equal(t, model.AlertActive, stored.Status)

	critical, err := st.HasActiveCriticalAlert(ctx, qr.QuestionID)
	require.NoError(t, err)
	assert.True(t, critical)
}

func TestReviewPathToAutoSubmit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return base }
	e.scorer.Now = func() time.Time { return base }

	var p *model.CanonicalPattern
	for i := 0; i < 10; i++ {
		p = ingest(t, e, "store-1", "Garanti süresi ne kadar?", "Garanti süresi 2 yıldır.")
	}
	require.Equal(t, 10, p.OccurrenceCount)

	for i := 0; i < 10; i++ {
		var err error
		p, err = e.OnHumanReview(ctx, p.ID, model.ReviewApproved)
		require.NoError(t, err)
	}
	assert.Equal(t, model.LevelExpert, p.SeniorityLevel)
	require.NotNil(t, p.AutoSubmitEnabledAt)
	assert.False(t, p.AutoSubmitEligible)

	ok, err := e.CanAutoSubmit(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok, "waiting period not elapsed")

	// Hourly sweep after the waiting period flips eligibility.
	later := base.Add(73 * time.Hour)
	e.Now = func() time.Time { return later }
	e.scorer.Now = func() time.Time { return later }

	flipped, err := e.RunHourlyEligibilitySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)

	ok, err = e.CanAutoSubmit(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRejectionDisablesAutoSubmit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var p *model.CanonicalPattern
	for i := 0; i < 10; i++ {
		p = ingest(t, e, "store-1", "İade nasıl yapılır?", "Kargo ile iade edebilirsiniz.")
	}
	for i := 0; i < 10; i++ {
		var err error
		p, err = e.OnHumanReview(ctx, p.ID, model.ReviewApproved)
		require.NoError(t, err)
	}
	require.NotNil(t, p.AutoSubmitEnabledAt)

	p, err := e.OnHumanReview(ctx, p.ID, model.ReviewRejected)
	require.NoError(t, err)
	assert.False(t, p.AutoSubmitEligible)
	assert.Nil(t, p.AutoSubmitEnabledAt)
	assert.NotEmpty(t, p.AutoSubmitDisableReason)
}

func TestCriticalAlertForcesHumanPath(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	qr, err := e.OnQuestionReceived(ctx, "store-1", "Dava açacağım, kargom nerede?")
	require.NoError(t, err)
	require.True(t, qr.Blocked)

	p := &model.CanonicalPattern{
		ID:                 uuid.New().String(),
		StoreID:            "store-1",
		PatternHash:        "deadbeef",
		CanonicalQuestion:  "kargom nerede",
		OccurrenceCount:    20,
		ApprovalCount:      15,
		SeniorityLevel:     model.LevelExpert,
		ConfidenceScore:    0.95,
		AutoSubmitEligible: true,
		FirstSeenAt:        time.Now().UTC(),
		LastSeenAt:         time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	now := time.Now().UTC()
	p.LastHumanReview = &now
	require.NoError(t, st.CreatePattern(ctx, p))

	ok, err := e.CanAutoSubmitAnswer(ctx, p.ID, qr.QuestionID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.CanAutoSubmit(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok, "pattern alone still trusts")
}

func TestKnowledgeConflictAlertOnAnswer(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, st.CreateKnowledgeEntry(ctx, &model.KnowledgeEntry{
		ID:        uuid.New().String(),
		StoreID:   "store-1",
		Title:     "Garanti",
		Content:   "Garanti süresi 2 yıldır.",
		Priority:  model.PriorityHigh,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}))

	qr, err := e.OnQuestionReceived(ctx, "store-1", "Garanti süresi ne kadar?")
	require.NoError(t, err)
	ar, err := e.OnAnswerGenerated(ctx, qr.QuestionID, "Garanti süresi 5 yıldır.")
	require.NoError(t, err)

	require.Len(t, ar.Alerts, 1)
	assert.Equal(t, model.ConflictKnowledgeVsData, ar.Alerts[0].Type)

	stored, err := st.GetAlert(ctx, ar.Alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertActive, stored.Status)
}

func TestManualOverrides(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	p := ingest(t, e, "store-1", "Fatura kesiliyor mu?", "Evet, e-fatura gönderilir.")
	require.Equal(t, model.LevelJunior, p.SeniorityLevel)

	p, err := e.Promote(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LevelLearning, p.SeniorityLevel)

	p, err = e.Demote(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LevelJunior, p.SeniorityLevel)

	_, err = e.Demote(ctx, p.ID)
	assert.ErrorIs(t, err, model.ErrInvalidState)

	// Not EXPERT, so manual enable refuses.
	_, err = e.EnableAutoSubmit(ctx, p.ID)
	assert.ErrorIs(t, err, model.ErrInvalidState)

	p, err = e.DisableAutoSubmit(ctx, p.ID, "manual hold")
	require.NoError(t, err)
	assert.False(t, p.AutoSubmitEligible)
	assert.Equal(t, "manual hold", p.AutoSubmitDisableReason)
}

func TestReviewSuggestionAcceptCreatesKnowledge(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	s := &model.KnowledgeSuggestion{
		ID:               uuid.New().String(),
		StoreID:          "store-1",
		SuggestedTitle:   "Pil ömrü",
		SuggestedContent: "Pil 10 saat dayanır.",
		SampleQuestions:  []string{"pil ne kadar dayanır"},
		QuestionCount:    4,
		Priority:         model.PriorityLow,
		Status:           model.SuggestionPending,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, st.CreateSuggestion(ctx, s))

	reviewed, err := e.ReviewSuggestion(ctx, s.ID, model.SuggestionAccepted, "", "")
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionAccepted, reviewed.Status)
	require.NotEmpty(t, reviewed.KnowledgeEntryID)

	entries, err := st.ListActiveKnowledge(ctx, "store-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pil ömrü", entries[0].Title)
	assert.Equal(t, reviewed.KnowledgeEntryID, entries[0].ID)

	// A second decision on the same suggestion is rejected.
	_, err = e.ReviewSuggestion(ctx, s.ID, model.SuggestionRejected, "", "")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestReviewSuggestionModifiedUsesCuratorText(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	s := &model.KnowledgeSuggestion{
		ID:               uuid.New().String(),
		StoreID:          "store-1",
		SuggestedTitle:   "taslak",
		SuggestedContent: "taslak içerik",
		QuestionCount:    3,
		Priority:         model.PriorityLow,
		Status:           model.SuggestionPending,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, st.CreateSuggestion(ctx, s))

	_, err := e.ReviewSuggestion(ctx, s.ID, model.SuggestionModified, "Kargo süresi", "Kargo 3 günde teslim edilir.")
	require.NoError(t, err)

	entries, err := st.ListActiveKnowledge(ctx, "store-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Kargo süresi", entries[0].Title)
	assert.Equal(t, "Kargo 3 günde teslim edilir.", entries[0].Content)
}

func TestResolveAndDismissAlerts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	qr, err := e.OnQuestionReceived(ctx, "store-1", "Avukatıma danışacağım")
	require.NoError(t, err)
	require.Len(t, qr.Alerts, 1)
	alertID := qr.Alerts[0].ID

	a, err := e.ResolveAlert(ctx, alertID, "reviewer-1", "store refunded the order")
	require.NoError(t, err)
	assert.Equal(t, model.AlertResolved, a.Status)
	assert.Equal(t, "reviewer-1", a.ResolvedBy)
	require.NotNil(t, a.ResolvedAt)

	_, err = e.DismissAlert(ctx, alertID, "reviewer-1", "")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

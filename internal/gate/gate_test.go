package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/model"
)

func newTestGate() *Gate {
	g := New(config.GateConfig{
		LegalKeywords:        config.DefaultLegalKeywords(),
		HealthSafetyKeywords: config.DefaultHealthSafetyKeywords(),
		BrandKeywords:        config.DefaultBrandKeywords(),
		WarrantyKeywords:     config.DefaultWarrantyKeywords(),
		MaxWarrantyYears:     10,
		SnippetMaxLen:        200,
		NumberWindow:         30,
	})
	g.Now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestPreCheckLegalThreatBlocks(t *testing.T) {
	g := newTestGate()

	res := g.CheckBeforeGeneration("store-1", "q-1",
		"Ürün bozuk geldi, iade etmezseniz dava açacağım!")

	assert.True(t, res.Blocked)
	require.Len(t, res.Alerts, 1)

	alert := res.Alerts[0]
	assert.Equal(t, model.ConflictLegalRisk, alert.Type)
	assert.Equal(t, model.SeverityCritical, alert.Severity)
	assert.Equal(t, model.AlertActive, alert.Status)
	assert.Equal(t, "store-1", alert.StoreID)
	assert.Equal(t, "q-1", alert.QuestionID)
	assert.Contains(t, alert.DetectedKeywords, "dava açacağım")
	assert.NotEmpty(t, alert.ID)
}

func TestPreCheckHealthWarnsWithoutBlocking(t *testing.T) {
	g := newTestGate()

	res := g.CheckBeforeGeneration("store-1", "q-2",
		"Bu ürün alerjik reaksiyon yapar mı?")

	assert.False(t, res.Blocked)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, model.ConflictHealthSafety, res.Alerts[0].Type)
	assert.Equal(t, model.SeverityHigh, res.Alerts[0].Severity)
}

func TestPreCheckCleanQuestion(t *testing.T) {
	g := newTestGate()

	res := g.CheckBeforeGeneration("store-1", "q-3", "Kargo ne zaman gelir?")

	assert.False(t, res.Blocked)
	assert.Empty(t, res.Alerts)
}

func TestPreCheckCaseInsensitiveTurkish(t *testing.T) {
	g := newTestGate()

	// Uppercase dotted İ must still fold onto the lowercase keyword list.
	res := g.CheckBeforeGeneration("store-1", "q-4", "DAVA AÇACAĞIM, ŞİKAYET EDECEĞİM")

	assert.True(t, res.Blocked)
}

func TestPostCheckKnowledgeNumberConflict(t *testing.T) {
	g := newTestGate()

	knowledge := []model.KnowledgeEntry{{
		ID:      "k-1",
		StoreID: "store-1",
		Title:   "Garanti süresi",
		Content: "Tüm ürünlerde garanti süresi 2 yıldır.",
		Active:  true,
	}}

	alerts := g.CheckAfterGeneration("store-1", "q-5",
		"Garanti süresi ne kadar?",
		"Ürünün garanti süresi 5 yıldır.",
		knowledge)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, model.ConflictKnowledgeVsData, alert.Type)
	assert.Equal(t, model.SeverityMedium, alert.Severity)
	assert.Contains(t, alert.DetectedKeywords, "garanti")
	assert.NotEmpty(t, alert.SourceA)
	assert.NotEmpty(t, alert.SourceB)
}

func TestPostCheckAgreeingNumbersNoAlert(t *testing.T) {
	g := newTestGate()

	knowledge := []model.KnowledgeEntry{{
		ID:      "k-1",
		StoreID: "store-1",
		Content: "Garanti süresi 2 yıldır.",
		Active:  true,
	}}

	alerts := g.CheckAfterGeneration("store-1", "q-6",
		"Garanti var mı?",
		"Evet, garanti süresi 2 yıldır.",
		knowledge)

	assert.Empty(t, alerts)
}

func TestPostCheckNoSharedKeywordNoAlert(t *testing.T) {
	g := newTestGate()

	knowledge := []model.KnowledgeEntry{{
		ID:      "k-1",
		StoreID: "store-1",
		Content: "Garanti süresi 2 yıldır.",
		Active:  true,
	}}

	// The answer never mentions the knowledge keyword, so differing
	// numbers elsewhere do not trigger a conflict.
	alerts := g.CheckAfterGeneration("store-1", "q-7",
		"Kargo ne zaman gelir?",
		"Kargonuz 3 iş günü içinde teslim edilir.",
		knowledge)

	assert.Empty(t, alerts)
}

func TestPostCheckExcessiveWarrantyClaim(t *testing.T) {
	g := newTestGate()

	alerts := g.CheckAfterGeneration("store-1", "q-8",
		"Garanti var mı?",
		"Bu ürün 25 yıl garanti kapsamındadır.",
		nil)

	require.Len(t, alerts, 1)
	assert.Equal(t, model.ConflictBrand, alerts[0].Type)
	assert.Equal(t, model.SeverityLow, alerts[0].Severity)
}

func TestPostCheckWarrantyKeywordsAreConfigurable(t *testing.T) {
	g := New(config.GateConfig{
		WarrantyKeywords: []string{"ömür boyu GARANTİ"},
		MaxWarrantyYears: 10,
		SnippetMaxLen:    200,
		NumberWindow:     30,
	})

	alerts := g.CheckAfterGeneration("store-1", "q-9",
		"Garanti var mı?",
		"Bu üründe 99 yıl ömür boyu garanti vardır.",
		nil)

	require.Len(t, alerts, 1)
	assert.Equal(t, model.ConflictBrand, alerts[0].Type)

	// The default list no longer applies once replaced.
	alerts = g.CheckAfterGeneration("store-1", "q-10",
		"Garanti var mı?",
		"Warranty lasts 99 years.",
		nil)
	assert.Empty(t, alerts)
}

func TestSnippetTruncation(t *testing.T) {
	g := New(config.GateConfig{SnippetMaxLen: 10})

	assert.Equal(t, "0123456789", g.snippet("0123456789abcdef"))
	assert.Equal(t, "short", g.snippet("short"))
}

func TestNumbersAroundWindow(t *testing.T) {
	nums := numbersAround("garanti süresi 2 yıldır ve fiyatı 100 liradır sonra 999", "garanti", 25)

	assert.Equal(t, []int{2}, nums)
}

func TestWindowsAroundMultipleOccurrences(t *testing.T) {
	ws := windowsAround("aaa kw bbb kw ccc", "kw", 4)

	require.Len(t, ws, 2)
	assert.Contains(t, ws[0], "aaa kw bbb")
}

package matcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/store"
)

func newTestMatcher(t *testing.T) (*Matcher, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.TrustConfig{FuzzyThreshold: 0.70}
	return New(st, cfg), st
}

func TestMatcher_ExactMatchIsIdempotent(t *testing.T) {
	m, _ := newTestMatcher(t)
	ctx := context.Background()

	p1, created, err := m.MatchOrCreate(ctx, "store-1", "Ürün garantisi 2 yıl mı?")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, p1.OccurrenceCount)

	// Punctuation and casing variations hash identically.
	p2, created, err := m.MatchOrCreate(ctx, "store-1", "ürün garantisi 2 yıl mı")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, 2, p2.OccurrenceCount)

	p3, created, err := m.MatchOrCreate(ctx, "store-1", "Ürün garantisi 2 yıl mı?")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p3.ID)
	assert.Equal(t, 3, p3.OccurrenceCount)
}

func TestMatcher_FuzzyMatch(t *testing.T) {
	m, _ := newTestMatcher(t)
	ctx := context.Background()

	p1, _, err := m.MatchOrCreate(ctx, "store-1", "ürün garantisi kaç yıl acaba")
	require.NoError(t, err)

	// 4 of 5 union tokens shared: similarity 0.8 >= 0.7.
	p2, created, err := m.MatchOrCreate(ctx, "store-1", "ürün garantisi kaç yıl")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, 2, p2.OccurrenceCount)
}

func TestMatcher_BelowThresholdCreatesNew(t *testing.T) {
	m, _ := newTestMatcher(t)
	ctx := context.Background()

	p1, _, err := m.MatchOrCreate(ctx, "store-1", "ürün garantisi kaç yıl")
	require.NoError(t, err)

	p2, created, err := m.MatchOrCreate(ctx, "store-1", "kargo ücreti ne kadar tutar")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, p1.ID, p2.ID)
}

func TestMatcher_StoreScoped(t *testing.T) {
	m, _ := newTestMatcher(t)
	ctx := context.Background()

	p1, _, err := m.MatchOrCreate(ctx, "store-1", "iade süresi kaç gün")
	require.NoError(t, err)

	// Identical question in another store gets its own pattern.
	p2, created, err := m.MatchOrCreate(ctx, "store-2", "iade süresi kaç gün")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, p1.ID, p2.ID)
}

func TestMatcher_Match_NoPatternsReturnsNil(t *testing.T) {
	m, _ := newTestMatcher(t)

	p, err := m.Match(context.Background(), "store-1", "hiç görülmemiş soru")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMatcher_TieGoesToFirstEncountered(t *testing.T) {
	m, _ := newTestMatcher(t)
	ctx := context.Background()

	// Two patterns equally similar to the probe.
	first, _, err := m.MatchOrCreate(ctx, "store-1", "a b c d x")
	require.NoError(t, err)
	_, _, err = m.MatchOrCreate(ctx, "store-1", "a b c d y")
	require.NoError(t, err)

	got, created, err := m.MatchOrCreate(ctx, "store-1", "a b c d")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, got.ID)
}

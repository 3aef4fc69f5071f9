package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a directory with no config.yaml so defaults apply.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.InDelta(t, 0.70, cfg.Trust.FuzzyThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Trust.LearningMinOccurrences)
	assert.Equal(t, 10, cfg.Trust.ExpertMinReviews)
	assert.InDelta(t, 0.90, cfg.Trust.ExpertMinRate, 1e-9)
	assert.Equal(t, 72, cfg.Trust.AutoSubmitWaitHours)
	assert.Equal(t, 7, cfg.Trust.ClusterWindowDays)
	assert.Equal(t, 15, cfg.Trust.SuggestionHighCount)

	assert.NotEmpty(t, cfg.Gate.LegalKeywords)
	assert.NotEmpty(t, cfg.Gate.HealthSafetyKeywords)
	assert.NotEmpty(t, cfg.Gate.BrandKeywords)
	assert.NotEmpty(t, cfg.Gate.WarrantyKeywords)
	assert.Equal(t, 30, cfg.Gate.NumberWindow)
}

func TestGateConfig_LoadKeywordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	content := []byte("legal:\n  - mahkemeye vereceğim\nbrand:\n  - garanti belgesi\nwarranty:\n  - ömür boyu garanti\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	g := GateConfig{
		LegalKeywords:        DefaultLegalKeywords(),
		HealthSafetyKeywords: DefaultHealthSafetyKeywords(),
		BrandKeywords:        DefaultBrandKeywords(),
	}
	require.NoError(t, g.LoadKeywordFile(path))

	assert.Equal(t, []string{"mahkemeye vereceğim"}, g.LegalKeywords)
	assert.Equal(t, []string{"garanti belgesi"}, g.BrandKeywords)
	assert.Equal(t, []string{"ömür boyu garanti"}, g.WarrantyKeywords)
	// Lists absent from the file keep their previous values.
	assert.Equal(t, DefaultHealthSafetyKeywords(), g.HealthSafetyKeywords)
}

func TestGateConfig_LoadKeywordFile_Missing(t *testing.T) {
	var g GateConfig
	err := g.LoadKeywordFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

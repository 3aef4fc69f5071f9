// Package gate implements the conflict/risk checks that can block or flag
// answers independently of pattern seniority.
package gate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/config"
	"github.com/sellerdesk/trust-engine/internal/model"
	"github.com/sellerdesk/trust-engine/internal/textnorm"
)

// Gate runs the pre- and post-generation risk checks. Keyword lists are
// injected configuration, not globals, so they stay per-locale swappable.
type Gate struct {
	cfg config.GateConfig

	// Now is the clock used for alert timestamps. Overridable in tests.
	Now func() time.Time
}

// PreCheckResult is the outcome of the pre-generation gate.
type PreCheckResult struct {
	// Blocked means answer generation must not proceed.
	Blocked bool
	Alerts  []model.ConflictAlert
}

// New creates a Gate with the given keyword configuration.
func New(cfg config.GateConfig) *Gate {
	return &Gate{cfg: cfg, Now: func() time.Time { return time.Now().UTC() }}
}

// CheckBeforeGeneration scans the raw customer question. Any legal-risk
// keyword blocks generation with a CRITICAL alert; health/safety keywords
// warn with a HIGH alert but let generation proceed.
func (g *Gate) CheckBeforeGeneration(storeID, questionID, questionText string) PreCheckResult {
	lowered := textnorm.Lower(questionText)

	var result PreCheckResult
	if matched := matchKeywords(lowered, g.cfg.LegalKeywords); len(matched) > 0 {
		result.Blocked = true
		result.Alerts = append(result.Alerts, g.newAlert(storeID, questionID,
			model.ConflictLegalRisk, model.SeverityCritical,
			g.snippet(questionText), "", matched))

		zap.L().Warn("gate: legal risk, generation blocked",
			zap.String("store_id", storeID),
			zap.String("question_id", questionID),
			zap.Strings("keywords", matched),
		)
	}

	if matched := matchKeywords(lowered, g.cfg.HealthSafetyKeywords); len(matched) > 0 {
		result.Alerts = append(result.Alerts, g.newAlert(storeID, questionID,
			model.ConflictHealthSafety, model.SeverityHigh,
			g.snippet(questionText), "", matched))
	}

	return result
}

// CheckAfterGeneration checks a generated answer against the active
// knowledge base for numeric contradictions around shared brand-sensitive
// keywords, and the answer alone for suspicious absolute claims.
func (g *Gate) CheckAfterGeneration(storeID, questionID, questionText, answerText string, knowledge []model.KnowledgeEntry) []model.ConflictAlert {
	var alerts []model.ConflictAlert

	combined := textnorm.Lower(questionText + " " + answerText)
	answer := textnorm.Lower(answerText)

	for _, entry := range knowledge {
		content := textnorm.Lower(entry.Content)
		for _, kw := range g.cfg.BrandKeywords {
			keyword := textnorm.Lower(kw)
			if !strings.Contains(content, keyword) || !strings.Contains(combined, keyword) {
				continue
			}
			knowNums := numbersAround(content, keyword, g.cfg.NumberWindow)
			ansNums := numbersAround(answer, keyword, g.cfg.NumberWindow)
			if len(knowNums) == 0 || len(ansNums) == 0 || overlaps(knowNums, ansNums) {
				continue
			}

			alerts = append(alerts, g.newAlert(storeID, questionID,
				model.ConflictKnowledgeVsData, model.SeverityMedium,
				g.snippet(windowAround(entry.Content, keyword, g.cfg.NumberWindow)),
				g.snippet(windowAround(answerText, keyword, g.cfg.NumberWindow)),
				[]string{kw}))

			zap.L().Info("gate: knowledge/answer number conflict",
				zap.String("store_id", storeID),
				zap.String("keyword", kw),
				zap.Ints("knowledge_numbers", knowNums),
				zap.Ints("answer_numbers", ansNums),
			)
		}
	}

	if kw, ok := g.suspiciousClaim(answer); ok {
		alerts = append(alerts, g.newAlert(storeID, questionID,
			model.ConflictBrand, model.SeverityLow,
			g.snippet(answerText), "",
			[]string{kw}))
	}

	return alerts
}

// suspiciousClaim reports a brand keyword combined with an absolute claim
// that needs human verification, currently a warranty period longer than
// the configured maximum.
func (g *Gate) suspiciousClaim(answer string) (string, bool) {
	for _, kw := range g.cfg.WarrantyKeywords {
		kw = textnorm.Lower(kw)
		if !strings.Contains(answer, kw) {
			continue
		}
		for _, n := range numbersAround(answer, kw, g.cfg.NumberWindow) {
			if n > g.cfg.MaxWarrantyYears {
				return fmt.Sprintf("%s %d", kw, n), true
			}
		}
	}
	return "", false
}

func (g *Gate) newAlert(storeID, questionID string, typ model.ConflictType, sev model.AlertSeverity, sourceA, sourceB string, keywords []string) model.ConflictAlert {
	return model.ConflictAlert{
		ID:               uuid.New().String(),
		StoreID:          storeID,
		QuestionID:       questionID,
		Type:             typ,
		Severity:         sev,
		SourceA:          sourceA,
		SourceB:          sourceB,
		DetectedKeywords: keywords,
		Status:           model.AlertActive,
		CreatedAt:        g.Now(),
	}
}

// snippet truncates s to the configured bound.
func (g *Gate) snippet(s string) string {
	max := g.cfg.SnippetMaxLen
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// matchKeywords returns the keywords contained in the lowered text, in
// list order.
func matchKeywords(lowered string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lowered, textnorm.Lower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

var digits = regexp.MustCompile(`\d+`)

// numbersAround extracts all integers within the window around every
// occurrence of keyword in text.
func numbersAround(text, keyword string, window int) []int {
	var nums []int
	for _, w := range windowsAround(text, keyword, window) {
		for _, d := range digits.FindAllString(w, -1) {
			if n, err := strconv.Atoi(d); err == nil {
				nums = append(nums, n)
			}
		}
	}
	return nums
}

// windowAround returns the window around the first occurrence of keyword,
// or "" when absent. Matching is case-insensitive via locale lowering.
func windowAround(text, keyword string, window int) string {
	ws := windowsAround(textnorm.Lower(text), textnorm.Lower(keyword), window)
	if len(ws) == 0 {
		return ""
	}
	return ws[0]
}

// windowsAround returns the ±window character slices around every
// occurrence of keyword in text.
func windowsAround(text, keyword string, window int) []string {
	if keyword == "" {
		return nil
	}
	runes := []rune(text)
	kw := []rune(keyword)
	var out []string
	for i := 0; i+len(kw) <= len(runes); i++ {
		if string(runes[i:i+len(kw)]) != keyword {
			continue
		}
		start := i - window
		if start < 0 {
			start = 0
		}
		end := i + len(kw) + window
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		i += len(kw) - 1
	}
	return out
}

// overlaps reports whether the two integer lists share any value.
func overlaps(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}

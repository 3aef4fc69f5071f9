// Package store provides persistence for patterns, questions, suggestions,
// conflict alerts and knowledge entries, with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/sellerdesk/trust-engine/internal/model"
)

// PatternFilter specifies criteria for listing canonical patterns.
type PatternFilter struct {
	StoreID      string               `json:"store_id,omitempty"`
	Level        model.SeniorityLevel `json:"level,omitempty"`
	EligibleOnly bool                 `json:"eligible_only,omitempty"`
	ProductID    string               `json:"product_id,omitempty"`
	Category     string               `json:"category,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the trust engine.
type Store interface {
	// Patterns
	CreatePattern(ctx context.Context, p *model.CanonicalPattern) error
	GetPattern(ctx context.Context, id string) (*model.CanonicalPattern, error)
	// GetPatternByHash returns (nil, nil) when no pattern has the hash.
	GetPatternByHash(ctx context.Context, storeID, hash string) (*model.CanonicalPattern, error)
	ListPatterns(ctx context.Context, filter PatternFilter) ([]model.CanonicalPattern, error)
	IncrementOccurrence(ctx context.Context, id string, seenAt time.Time) error
	UpdatePatternScoring(ctx context.Context, p *model.CanonicalPattern) error
	ListAwaitingAutoSubmit(ctx context.Context) ([]model.CanonicalPattern, error)

	// Questions
	CreateQuestion(ctx context.Context, q *model.CustomerQuestion) error
	GetQuestion(ctx context.Context, id string) (*model.CustomerQuestion, error)
	LinkQuestionPattern(ctx context.Context, questionID, patternID, answerText string) error
	ListUnpatternedQuestions(ctx context.Context, storeID string, since time.Time) ([]model.CustomerQuestion, error)
	ListStoreIDs(ctx context.Context) ([]string, error)

	// Knowledge suggestions
	CreateSuggestion(ctx context.Context, s *model.KnowledgeSuggestion) error
	GetSuggestion(ctx context.Context, id string) (*model.KnowledgeSuggestion, error)
	ListPendingSuggestions(ctx context.Context, storeID string) ([]model.KnowledgeSuggestion, error)
	UpdateSuggestion(ctx context.Context, s *model.KnowledgeSuggestion) error

	// Conflict alerts
	CreateAlert(ctx context.Context, a *model.ConflictAlert) error
	GetAlert(ctx context.Context, id string) (*model.ConflictAlert, error)
	UpdateAlert(ctx context.Context, a *model.ConflictAlert) error
	HasActiveCriticalAlert(ctx context.Context, questionID string) (bool, error)

	// Knowledge base
	CreateKnowledgeEntry(ctx context.Context, e *model.KnowledgeEntry) error
	ListActiveKnowledge(ctx context.Context, storeID string) ([]model.KnowledgeEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

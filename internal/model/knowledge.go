package model

import "time"

// KnowledgeEntry is an active knowledge-base record consulted by the
// post-generation gate and created when a suggestion is accepted.
type KnowledgeEntry struct {
	ID        string             `json:"id"`
	StoreID   string             `json:"store_id"`
	Title     string             `json:"title"`
	Content   string             `json:"content"`
	Priority  SuggestionPriority `json:"priority"`
	Active    bool               `json:"active"`
	CreatedAt time.Time          `json:"created_at"`
}

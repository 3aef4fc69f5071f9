package model

import "time"

// SuggestionPriority ranks knowledge suggestions for the curation queue.
type SuggestionPriority string

const (
	PriorityLow    SuggestionPriority = "LOW"
	PriorityMedium SuggestionPriority = "MEDIUM"
	PriorityHigh   SuggestionPriority = "HIGH"
)

// SuggestionPriorityFor derives a priority from a cluster's question count
// using the configured HIGH and MEDIUM thresholds.
func SuggestionPriorityFor(questionCount, highAt, mediumAt int) SuggestionPriority {
	switch {
	case questionCount >= highAt:
		return PriorityHigh
	case questionCount >= mediumAt:
		return PriorityMedium
	}
	return PriorityLow
}

// SuggestionStatus is the review state of a knowledge suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "PENDING"
	SuggestionAccepted SuggestionStatus = "ACCEPTED"
	SuggestionRejected SuggestionStatus = "REJECTED"
	SuggestionModified SuggestionStatus = "MODIFIED"
)

// KnowledgeSuggestion is a cluster of recurring un-patterned questions
// proposed to human curators as a new knowledge-base entry.
type KnowledgeSuggestion struct {
	ID      string `json:"id"`
	StoreID string `json:"store_id"`

	SuggestedTitle   string   `json:"suggested_title"`
	SuggestedContent string   `json:"suggested_content"`
	SampleQuestions  []string `json:"sample_questions"`
	QuestionCount    int      `json:"question_count"`

	Priority SuggestionPriority `json:"priority"`
	Status   SuggestionStatus   `json:"status"`

	// Set when an ACCEPTED or MODIFIED suggestion produced a knowledge entry.
	KnowledgeEntryID string `json:"knowledge_entry_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

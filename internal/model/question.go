package model

import "time"

// CustomerQuestion is one inbound marketplace question as received. The raw
// history of these records feeds the batch clusterer's mining window.
type CustomerQuestion struct {
	ID       string `json:"id"`
	StoreID  string `json:"store_id"`
	Text     string `json:"text"`
	TextHash string `json:"text_hash"`

	// Set once a candidate answer was generated and pattern-matched.
	AnswerText string `json:"answer_text,omitempty"`
	PatternID  string `json:"pattern_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

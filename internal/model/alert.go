package model

import "time"

// ConflictType classifies the risk a conflict alert flags.
type ConflictType string

const (
	ConflictLegalRisk       ConflictType = "LEGAL_RISK"
	ConflictHealthSafety    ConflictType = "HEALTH_SAFETY"
	ConflictKnowledgeVsData ConflictType = "KNOWLEDGE_VS_DATA"
	ConflictBrand           ConflictType = "BRAND_INCONSISTENCY"
)

// AlertSeverity grades how urgently a conflict alert needs attention.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertStatus is the lifecycle state of a conflict alert. Alerts never
// auto-close; only human action moves them out of ACTIVE.
type AlertStatus string

const (
	AlertActive    AlertStatus = "ACTIVE"
	AlertResolved  AlertStatus = "RESOLVED"
	AlertDismissed AlertStatus = "DISMISSED"
)

// ConflictAlert is a flagged risk or inconsistency in a customer-facing
// answer requiring human attention.
type ConflictAlert struct {
	ID         string `json:"id"`
	StoreID    string `json:"store_id"`
	QuestionID string `json:"question_id,omitempty"`

	Type     ConflictType  `json:"type"`
	Severity AlertSeverity `json:"severity"`

	// Two labeled content snippets, each truncated to a bounded length.
	SourceA string `json:"source_a"`
	SourceB string `json:"source_b,omitempty"`

	DetectedKeywords []string `json:"detected_keywords"`

	Status          AlertStatus `json:"status"`
	ResolutionNotes string      `json:"resolution_notes,omitempty"`
	ResolvedBy      string      `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

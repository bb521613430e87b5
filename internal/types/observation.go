package types

import "gorm.io/datatypes"

// Observation types as reported by the tracing backend.
const (
	ObservationTypeAgent      = "AGENT"
	ObservationTypeGeneration = "GENERATION"
)

// WorkflowAgentName is the wrapper pseudo-agent the tracing backend records
// around every turn; it is excluded from agent rollups.
const WorkflowAgentName = "Agent workflow"

// TerminalAgentName marks a finished game when it appears as an AGENT
// observation anywhere in a session.
const TerminalAgentName = "End"

// Observation mirrors one recorded unit of work. Observations self-reference
// through ParentObservationID to form a call tree under their trace.
// LatencyMs is derived at ingest (end minus start) and is nil when either
// timestamp is missing or unparseable.
type Observation struct {
	ID                   string         `gorm:"primaryKey" json:"id"`
	TraceID              string         `gorm:"column:trace_id;not null;index" json:"trace_id"`
	ParentObservationID  *string        `gorm:"column:parent_observation_id;index" json:"parent_observation_id"`
	Type                 string         `gorm:"column:type;not null;index" json:"type"`
	Name                 *string        `gorm:"column:name;index" json:"name"`
	StartTime            *string        `gorm:"column:start_time" json:"start_time"`
	EndTime              *string        `gorm:"column:end_time" json:"end_time"`
	LatencyMs            *float64       `gorm:"column:latency_ms" json:"latency_ms"`
	Model                *string        `gorm:"column:model" json:"model"`
	TotalTokens          *int           `gorm:"column:total_tokens" json:"total_tokens"`
	PromptTokens         *int           `gorm:"column:prompt_tokens" json:"prompt_tokens"`
	CompletionTokens     *int           `gorm:"column:completion_tokens" json:"completion_tokens"`
	CalculatedTotalCost  *float64       `gorm:"column:calculated_total_cost" json:"calculated_total_cost"`
	InputJSON            datatypes.JSON `gorm:"column:input_json" json:"input_json"`
	OutputJSON           datatypes.JSON `gorm:"column:output_json" json:"output_json"`
	MetadataJSON         datatypes.JSON `gorm:"column:metadata_json" json:"metadata_json"`
	Level                *string        `gorm:"column:level" json:"level"`
	SyncedAt             string         `gorm:"column:synced_at" json:"synced_at"`
}

func (Observation) TableName() string { return "observations" }

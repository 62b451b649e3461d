package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// Run statuses. Every run starts as running and reaches exactly one terminal
// status; only the orchestrator writes the terminal transition.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// Run source labels.
const (
	RunSourceCollect = "collect"
	RunSourcePush    = "push"
)

// Run is an agent_runs row: the audit record of one pipeline execution.
type Run struct {
	ID          uuid.UUID      `db:"id"           json:"id"`
	Source      string         `db:"source"       json:"source"`
	Status      string         `db:"status"       json:"status"`
	ToolsFound  int            `db:"tools_found"  json:"tools_found"`
	ToolsSaved  int            `db:"tools_saved"  json:"tools_saved"`
	Details     types.JSONText `db:"details"      json:"details,omitempty"`
	StartedAt   time.Time      `db:"started_at"   json:"started_at"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

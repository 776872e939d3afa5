package entity

import "time"

// State is a named node in the graph of one workflow type
type State struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	WorkflowType WorkflowType `json:"workflow_type"`
	IsInitial    bool         `json:"is_initial"`
	IsFinal      bool         `json:"is_final"`
	IsActive     bool         `json:"is_active"`
	Order        int          `json:"order"`
	Color        string       `json:"color"`
	CreatedAt    time.Time    `json:"created_at"`
}

package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/content-workflow/internal/domain/entity"
)

// Payload keys shared by producers and consumers
const (
	KeyTransition   = "transition"
	KeyTransitionID = "transition_id"
	KeyFromState    = "from_state"
	KeyToState      = "to_state"
	KeyUserID       = "user_id"
	KeyAuthorID     = "author_id"
	KeyNotifyRoles  = "notify_roles"
	KeyNotifyAuthor = "notify_author"
	KeyApproverID   = "approver_id"
	KeyApproved     = "approved"
	KeyReceived     = "approvals_received"
	KeyRequired     = "approvals_required"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	EntityID      int64                  `json:"entity_id"`
	WorkflowType  entity.WorkflowType    `json:"workflow_type"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, workflowType entity.WorkflowType, entityID int64, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		EntityID:      entityID,
		WorkflowType:  workflowType,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: uuid.New().String(),
	}
}

// NewTransitionCompleted carries the notification metadata of an executed transition.
// The dispatcher consuming it decides who actually gets told.
func NewTransitionCompleted(workflowType entity.WorkflowType, entityID, authorID, userID int64, t *entity.Transition, from, to string) *Event {
	roles := append([]string{}, t.NotifyRoles...)
	return NewEvent(TypeTransitionCompleted, workflowType, entityID, map[string]interface{}{
		KeyTransition:   t.Name,
		KeyTransitionID: t.ID,
		KeyFromState:    from,
		KeyToState:      to,
		KeyUserID:       userID,
		KeyAuthorID:     authorID,
		KeyNotifyRoles:  roles,
		KeyNotifyAuthor: t.NotifyAuthor,
	})
}

// WithCorrelation returns a copy of the event linked to an existing correlation chain
func (e *Event) WithCorrelation(correlationID string) *Event {
	cp := *e
	cp.CorrelationID = correlationID
	return &cp
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// GetPayloadStrings retrieves a string slice from the payload
func (e *Event) GetPayloadStrings(key string) []string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case []string:
			return v
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

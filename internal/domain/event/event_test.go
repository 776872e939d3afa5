package event

import (
	"testing"

	"github.com/garyjia/content-workflow/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeTransitionCompleted, true},
		{TypeApprovalRecorded, true},
		{TypeApprovalRequested, true},
		{TypeApprovalDecided, true},
		{Type("instance.created"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeApprovalRecorded, entity.WorkflowTypeContent, 7, nil)

	if evt.ID == "" || evt.CorrelationID == "" {
		t.Error("NewEvent() should generate ID and correlation ID")
	}
	if evt.ID == evt.CorrelationID {
		t.Error("ID and correlation ID should differ")
	}
	if evt.Payload == nil {
		t.Error("NewEvent() should never leave payload nil")
	}
	if evt.Timestamp.IsZero() {
		t.Error("NewEvent() should stamp timestamp")
	}

	other := NewEvent(TypeApprovalRecorded, entity.WorkflowTypeContent, 7, nil)
	if other.ID == evt.ID {
		t.Error("event IDs should be unique")
	}
}

func TestNewTransitionCompleted(t *testing.T) {
	tr := &entity.Transition{
		ID:           3,
		Name:         "Publish",
		NotifyRoles:  []string{"editor", "admin"},
		NotifyAuthor: true,
	}

	evt := NewTransitionCompleted(entity.WorkflowTypeContent, 42, 5, 9, tr, "review", "published")

	if evt.Type != TypeTransitionCompleted {
		t.Errorf("Type = %v, want %v", evt.Type, TypeTransitionCompleted)
	}
	if evt.EntityID != 42 {
		t.Errorf("EntityID = %v, want 42", evt.EntityID)
	}
	if got := evt.GetPayloadString(KeyTransition); got != "Publish" {
		t.Errorf("transition = %v, want Publish", got)
	}
	if got := evt.GetPayloadString(KeyToState); got != "published" {
		t.Errorf("to_state = %v, want published", got)
	}
	if got := evt.GetPayloadInt(KeyAuthorID); got != 5 {
		t.Errorf("author_id = %v, want 5", got)
	}
	if !evt.GetPayloadBool(KeyNotifyAuthor) {
		t.Error("notify_author should be true")
	}
	if got := evt.GetPayloadStrings(KeyNotifyRoles); len(got) != 2 || got[0] != "editor" {
		t.Errorf("notify_roles = %v, want [editor admin]", got)
	}

	// The payload must not alias the transition's slice
	tr.NotifyRoles[0] = "changed"
	if got := evt.GetPayloadStrings(KeyNotifyRoles); got[0] != "editor" {
		t.Error("notify_roles should be copied into the payload")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeApprovalDecided, entity.WorkflowTypeContent, 1, map[string]interface{}{
		KeyApproved: true,
	})

	updated := original.WithPayload(KeyApproverID, int64(12))

	if _, ok := original.Payload[KeyApproverID]; ok {
		t.Error("WithPayload() should not modify the original event")
	}
	if got := updated.GetPayloadInt(KeyApproverID); got != 12 {
		t.Errorf("approver_id = %v, want 12", got)
	}
	if !updated.GetPayloadBool(KeyApproved) {
		t.Error("existing payload keys should be preserved")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestEvent_WithCorrelation(t *testing.T) {
	evt := NewEvent(TypeApprovalRecorded, entity.WorkflowTypeContent, 1, nil)
	linked := evt.WithCorrelation("chain-1")

	if linked.CorrelationID != "chain-1" {
		t.Errorf("CorrelationID = %v, want chain-1", linked.CorrelationID)
	}
	if evt.CorrelationID == "chain-1" {
		t.Error("WithCorrelation() should not modify the original event")
	}
}

func TestGetPayload_MissingKeys(t *testing.T) {
	evt := NewEvent(TypeApprovalRecorded, entity.WorkflowTypeContent, 1, map[string]interface{}{
		"number": 3.0,
		"list":   []interface{}{"a", 1, "b"},
	})

	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q", got)
	}
	if got := evt.GetPayloadInt("number"); got != 3 {
		t.Errorf("GetPayloadInt(float) = %v, want 3", got)
	}
	if got := evt.GetPayloadStrings("list"); len(got) != 2 {
		t.Errorf("GetPayloadStrings(mixed) = %v, want [a b]", got)
	}
}

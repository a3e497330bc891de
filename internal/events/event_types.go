package events

import (
	"time"

	"github.com/spec-kit/workitem-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketMoved       EventType = "ticket_moved"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventCommentAdded      EventType = "comment_added"
	EventAttachmentsAdded  EventType = "attachments_added"
	EventAttachmentRemoved EventType = "attachment_removed"
	EventReversalCreated   EventType = "reversal_created"
)

// Event represents a domain event emitted by the gateways.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int         `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title string             `json:"title"`
	State domain.TicketState `json:"state"`
}

// TicketMovedPayload payload.
type TicketMovedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo string `json:"assigned_to"`
	TeamName   string `json:"team_name,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID int    `json:"comment_id"`
	Sender    string `json:"sender"`
}

// AttachmentsAddedPayload payload.
type AttachmentsAddedPayload struct {
	FileNames []string `json:"file_names"`
}

// AttachmentRemovedPayload payload.
type AttachmentRemovedPayload struct {
	URL string `json:"url"`
}

// ReversalCreatedPayload payload.
type ReversalCreatedPayload struct {
	ReversalType domain.ReversalType `json:"reversal_type"`
	Title        string              `json:"title"`
}

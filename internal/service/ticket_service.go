package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/workitem-gateway/internal/azure"
	"github.com/spec-kit/workitem-gateway/internal/domain"
	"github.com/spec-kit/workitem-gateway/internal/events"
	"github.com/spec-kit/workitem-gateway/pkg/util"
)

// Work-item field names. Custom fields keep the Spanish names the tracking
// project was provisioned with; this file is the only place that deals with
// the untyped field dictionary.
const (
	FieldTitle       = "System.Title"
	FieldDescription = "System.Description"
	FieldState       = "System.State"
	FieldAssignedTo  = "System.AssignedTo"
	FieldAreaPath    = "System.AreaPath"

	FieldLastInDraft      = "Custom.Ultimavezenborrador"
	FieldLastRequested    = "Custom.Ultimavezsolicitado"
	FieldLastAssigned     = "Custom.Ultimavezasignado"
	FieldLastInEvaluation = "Custom.Ultimavezenevaluacion"
	FieldLastReturned     = "Custom.Ultimavezquehubodevolucion"
	FieldEvaluationEnd    = "Custom.Findeevaluacion"
	FieldIterations       = "Custom.Iteraciones"
)

// ticketWorkItemType is the work-item type used for plain tickets.
const ticketWorkItemType = "Ticket"

// stateTimestampFields maps each state to the field stamped when a ticket
// enters it.
var stateTimestampFields = map[domain.TicketState]string{
	domain.TicketStateDraft:        FieldLastInDraft,
	domain.TicketStateRequested:    FieldLastRequested,
	domain.TicketStateAssigned:     FieldLastAssigned,
	domain.TicketStateInEvaluation: FieldLastInEvaluation,
	domain.TicketStateReturned:     FieldLastReturned,
}

// TicketService owns the ticket workflow: transition validation, field
// normalization, and the single-write update protocol against the store.
type TicketService struct {
	store      azure.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      azure.Client
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Get fetches and normalizes a ticket, relations and comments included.
func (s *TicketService) Get(ctx context.Context, id int) (*domain.Ticket, error) {
	item, err := s.store.GetWorkItem(ctx, id, true)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.normalize(item, comments)
}

// Create submits a new plain ticket with the given title and description.
func (s *TicketService) Create(ctx context.Context, title, description string) (*domain.Ticket, error) {
	ops := []azure.PatchOp{
		azure.AddField(FieldTitle, title),
		azure.AddField(FieldDescription, description),
		azure.AddField(FieldState, domain.TicketStateDraft.WireValue()),
		azure.AddField(FieldLastInDraft, nowStamp()),
	}
	return s.CreateWithPayload(ctx, ticketWorkItemType, ops)
}

// CreateWithPayload submits a creation request for the given work-item type
// and field payload, returning the normalized record of the fresh item.
func (s *TicketService) CreateWithPayload(ctx context.Context, typeName string, ops []azure.PatchOp) (*domain.Ticket, error) {
	item, err := s.store.CreateWorkItem(ctx, typeName, ops)
	if err != nil {
		return nil, err
	}
	ticket, err := s.normalize(item, nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title: ticket.Title,
			State: ticket.State,
		},
	})
	return ticket, nil
}

// Move validates the requested transition against the table and, if allowed,
// submits one combined field update. The store never observes a state the
// table disallows; concurrent movers of the same ticket race last-write-wins.
func (s *TicketService) Move(ctx context.Context, id int, newState domain.TicketState, userEmail string, extra []azure.PatchOp) (*domain.Ticket, error) {
	if !newState.IsValid() {
		return nil, util.NewValidationError("unrecognized target state", map[string]any{"state": string(newState)})
	}
	// Checked before anything is read or written so the failure mode does
	// not depend on the ticket's current state.
	if newState == domain.TicketStateAssigned && userEmail == "" {
		return nil, util.NewValidationError("user_email is required when assigning", nil)
	}
	item, err := s.store.GetWorkItem(ctx, id, false)
	if err != nil {
		return nil, err
	}
	current, err := s.stateOf(item)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current, newState) {
		return nil, util.NewValidationError(
			fmt.Sprintf("cannot move ticket from %s to %s", current, newState),
			map[string]any{"current_state": string(current), "new_state": string(newState)},
		)
	}
	ops := []azure.PatchOp{
		azure.AddField(FieldState, newState.WireValue()),
	}
	if stampField, ok := stateTimestampFields[newState]; ok {
		ops = append(ops, azure.AddField(stampField, nowStamp()))
	}
	if newState == domain.TicketStateApproved || newState == domain.TicketStateRejected {
		ops = append(ops, azure.AddField(FieldEvaluationEnd, nowStamp()))
	}
	if current == domain.TicketStateInEvaluation && newState == domain.TicketStateDraft {
		// Returned for revision under the current table.
		ops = append(ops, azure.AddField(FieldIterations, intField(item.Fields, FieldIterations)+1))
	}
	if newState == domain.TicketStateAssigned {
		ops = append(ops, azure.AddField(FieldAssignedTo, userEmail))
	}
	ops = append(ops, extra...)

	updated, err := s.store.UpdateWorkItem(ctx, id, ops)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket, err := s.normalize(updated, comments)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMoved,
		TicketID: id,
		Payload:  events.TicketMovedPayload{OldState: current, NewState: newState},
	})
	if newState == domain.TicketStateAssigned {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: id,
			Payload:  events.TicketAssignedPayload{AssignedTo: userEmail},
		})
	}
	return ticket, nil
}

// AddComment appends a comment, prefixing the sender onto the text since the
// store keeps no author field for us, then returns the authoritative
// post-write record.
func (s *TicketService) AddComment(ctx context.Context, id int, senderEmail, text string) (*domain.Ticket, error) {
	comment, err := s.store.AddComment(ctx, id, senderEmail+": "+text)
	if err != nil {
		return nil, err
	}
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: id,
		Payload:  events.CommentAddedPayload{CommentID: comment.ID, Sender: senderEmail},
	})
	return ticket, nil
}

// AttachFiles uploads each file and attaches all of them in one combined
// relations update. Best effort, not atomic: a failed upload aborts the
// operation and already-uploaded files are not rolled back.
func (s *TicketService) AttachFiles(ctx context.Context, id int, filePaths []string, maxFiles int) (*domain.Ticket, error) {
	if len(filePaths) > maxFiles {
		return nil, util.NewValidationError(
			fmt.Sprintf("too many files: %d exceeds the limit of %d", len(filePaths), maxFiles),
			map[string]any{"count": len(filePaths), "max": maxFiles},
		)
	}

	ops := make([]azure.PatchOp, 0, len(filePaths))
	names := make([]string, 0, len(filePaths))
	for _, path := range filePaths {
		name := filepath.Base(path)
		file, err := os.Open(path)
		if err != nil {
			return nil, util.NewValidationError("cannot read file "+name, nil)
		}
		url, err := s.store.UploadAttachment(ctx, name, file)
		file.Close()
		if err != nil {
			return nil, err
		}
		ops = append(ops, azure.AddRelation(url, "Archivo adjunto: "+name))
		names = append(names, name)
	}

	if _, err := s.store.UpdateWorkItem(ctx, id, ops); err != nil {
		return nil, err
	}
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventAttachmentsAdded,
		TicketID: id,
		Payload:  events.AttachmentsAddedPayload{FileNames: names},
	})
	return ticket, nil
}

// RemoveAttachment resolves the attachment URL to its positional index among
// the item's relations and issues a remove-by-position update. The index is
// only as fresh as the read; a concurrent reorder can shift it.
func (s *TicketService) RemoveAttachment(ctx context.Context, id int, attachmentURL string) (*domain.Ticket, error) {
	item, err := s.store.GetWorkItem(ctx, id, true)
	if err != nil {
		return nil, err
	}
	index := -1
	for i, rel := range item.Relations {
		if rel.URL == attachmentURL {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, util.NewNotFound("attachment", map[string]any{"url": attachmentURL})
	}
	if _, err := s.store.UpdateWorkItem(ctx, id, []azure.PatchOp{azure.RemoveRelation(index)}); err != nil {
		return nil, err
	}
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventAttachmentRemoved,
		TicketID: id,
		Payload:  events.AttachmentRemovedPayload{URL: attachmentURL},
	})
	return ticket, nil
}

// normalize converts a raw work item plus its comments into the fixed Ticket
// shape. Absent fields map to zero values; an unrecognized state is rejected
// here rather than deeper in workflow logic.
func (s *TicketService) normalize(item *azure.WorkItem, comments []azure.Comment) (*domain.Ticket, error) {
	state, err := s.stateOf(item)
	if err != nil {
		return nil, err
	}
	ticket := &domain.Ticket{
		ID:                   item.ID,
		Title:                stringField(item.Fields, FieldTitle),
		Description:          stringField(item.Fields, FieldDescription),
		State:                state,
		IterationCount:       intField(item.Fields, FieldIterations),
		AssignedTo:           identityField(item.Fields, FieldAssignedTo),
		LastInDraft:          stringField(item.Fields, FieldLastInDraft),
		LastRequested:        stringField(item.Fields, FieldLastRequested),
		LastAssigned:         stringField(item.Fields, FieldLastAssigned),
		LastInEvaluation:     stringField(item.Fields, FieldLastInEvaluation),
		LastReturned:         stringField(item.Fields, FieldLastReturned),
		EvaluationFinishedAt: stringField(item.Fields, FieldEvaluationEnd),
	}
	for _, rel := range item.Relations {
		if rel.Rel != "AttachedFile" {
			continue
		}
		ticket.Attachments = append(ticket.Attachments, domain.Attachment{
			URL:     rel.URL,
			Comment: rel.Attributes.Comment,
			Name:    rel.Attributes.Name,
		})
	}
	for _, comment := range comments {
		ticket.Comments = append(ticket.Comments, domain.Comment{ID: comment.ID, Text: comment.Text})
	}
	return ticket, nil
}

func (s *TicketService) stateOf(item *azure.WorkItem) (domain.TicketState, error) {
	raw := stringField(item.Fields, FieldState)
	state, ok := domain.ParseTicketState(raw)
	if !ok {
		return "", util.NewValidationError(
			"work item carries an unrecognized state",
			map[string]any{"id": item.ID, "state": raw},
		)
	}
	return state, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func stringField(fields map[string]any, key string) string {
	if val, ok := fields[key].(string); ok {
		return val
	}
	return ""
}

// intField tolerates the store returning numbers as JSON floats or strings.
func intField(fields map[string]any, key string) int {
	switch val := fields[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// identityField reads an assignee, which the store returns either as a plain
// unique name or as an identity object.
func identityField(fields map[string]any, key string) string {
	switch val := fields[key].(type) {
	case string:
		return val
	case map[string]any:
		if unique, ok := val["uniqueName"].(string); ok {
			return unique
		}
		return ""
	default:
		return ""
	}
}

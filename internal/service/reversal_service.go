package service

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/spec-kit/workitem-gateway/internal/azure"
	"github.com/spec-kit/workitem-gateway/internal/domain"
	"github.com/spec-kit/workitem-gateway/internal/events"
	"github.com/spec-kit/workitem-gateway/pkg/util"
)

// Reversal-specific work-item fields.
const (
	FieldReversalType     = "Custom.Tipo"
	FieldCompanyName      = "Custom.Razonsocial"
	FieldNIT              = "Custom.NIT"
	FieldUsername         = "Custom.Nombredeusuario"
	FieldDocumentType     = "Custom.Tipodedocumento"
	FieldDocumentNumber   = "Custom.Numerodedocumento"
	FieldClientEmail      = "Custom.Correoelectronico"
	FieldClientPhone      = "Custom.Celular"
	FieldObligationNumber = "Custom.Numerodeobligacion"
	FieldRequestedBy      = "Custom.Solicitadopor"
	FieldErrors           = "Custom.Errores"
	FieldCorrective       = "Custom.Medidascorrectivas"
	FieldWrongPaymentDate = "Custom.Fechadelpagoerroneo"
)

// reversalWorkItemType is the work-item type backing reversal requests.
const reversalWorkItemType = "Reversiones"

// ReversalService specializes the ticket workflow for payment reversals. It
// adds the reversal payload on top of the ticket service, which keeps owning
// the transition table.
type ReversalService struct {
	tickets *TicketService
	store   azure.Client
	logger  *zap.Logger
}

// ReversalDependencies bundles collaborators for the reversal service.
type ReversalDependencies struct {
	Tickets *TicketService
	Store   azure.Client
	Logger  *zap.Logger
}

// NewReversalService constructs the service.
func NewReversalService(deps ReversalDependencies) *ReversalService {
	return &ReversalService{
		tickets: deps.Tickets,
		store:   deps.Store,
		logger:  deps.Logger,
	}
}

// ReversalCreateInput describes a reversal creation request.
type ReversalCreateInput struct {
	Client  domain.Client
	Advisor domain.Advisor
	Data    domain.ReversalData
	// Draft includes the type-specific fields at creation time instead of
	// deferring them to a later transition.
	Draft bool
}

// Create submits a new reversal work item and returns its normalized record.
func (s *ReversalService) Create(ctx context.Context, input ReversalCreateInput) (*domain.Reversal, error) {
	if err := validateReversalData(input.Data, input.Draft); err != nil {
		return nil, err
	}
	ops := buildReversalPayload(input)

	ticket, err := s.tickets.CreateWithPayload(ctx, reversalWorkItemType, ops)
	if err != nil {
		return nil, err
	}
	reversal, err := s.Get(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	s.tickets.publish(ctx, events.Event{
		Type:     events.EventReversalCreated,
		TicketID: reversal.ID,
		Payload: events.ReversalCreatedPayload{
			ReversalType: reversal.ReversalType,
			Title:        reversal.Title,
		},
	})
	return reversal, nil
}

// Get fetches and normalizes a reversal, including the payload fields the
// plain ticket projection does not carry.
func (s *ReversalService) Get(ctx context.Context, id int) (*domain.Reversal, error) {
	item, err := s.store.GetWorkItem(ctx, id, true)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.normalizeReversal(item, comments)
}

// Move reads the current iteration count, then delegates the transition to
// the ticket service, merging updated type-specific fields when supplied.
func (s *ReversalService) Move(ctx context.Context, id int, newState domain.TicketState, userEmail string, data *domain.ReversalData) (*domain.Reversal, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("moving reversal",
		zap.Int("id", id),
		zap.String("new_state", string(newState)),
		zap.Int("iteration_count", current.IterationCount))

	var extra []azure.PatchOp
	if data != nil {
		if err := validateReversalData(*data, true); err != nil {
			return nil, err
		}
		extra = append(extra, azure.AddField(FieldReversalType, data.Type.WireValue()))
		extra = append(extra, variantOps(*data)...)
	}

	if _, err := s.tickets.Move(ctx, id, newState, userEmail, extra); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// AttachFiles delegates attachment handling to the ticket service and
// returns the refreshed reversal projection.
func (s *ReversalService) AttachFiles(ctx context.Context, id int, filePaths []string, maxFiles int) (*domain.Reversal, error) {
	if _, err := s.tickets.AttachFiles(ctx, id, filePaths, maxFiles); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// GenerateTitle builds the canonical reversal title:
// RR-{NIT}-{obligationNumber}-{three random uppercase letters}.
func GenerateTitle(nit, obligationNumber string) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffix := make([]byte, 3)
	for i := range suffix {
		suffix[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("RR-%s-%s-%s", nit, obligationNumber, suffix)
}

func buildReversalPayload(input ReversalCreateInput) []azure.PatchOp {
	title := GenerateTitle(input.Client.NIT, input.Client.ObligationNumber)
	ops := []azure.PatchOp{
		azure.AddField(FieldTitle, title),
		azure.AddField(FieldState, domain.TicketStateDraft.WireValue()),
		azure.AddField(FieldLastInDraft, nowStamp()),
		azure.AddField(FieldReversalType, input.Data.Type.WireValue()),
		azure.AddField(FieldCompanyName, input.Client.CompanyName),
		azure.AddField(FieldNIT, input.Client.NIT),
		azure.AddField(FieldUsername, input.Client.Username),
		azure.AddField(FieldDocumentType, string(input.Client.DocumentType)),
		azure.AddField(FieldDocumentNumber, input.Client.DocumentNumber),
		azure.AddField(FieldClientEmail, input.Client.Email),
		azure.AddField(FieldClientPhone, input.Client.Phone),
		azure.AddField(FieldObligationNumber, input.Client.ObligationNumber),
		azure.AddField(FieldRequestedBy, input.Advisor.Email),
	}
	if input.Draft {
		ops = append(ops, variantOps(input.Data)...)
	}
	return ops
}

func variantOps(data domain.ReversalData) []azure.PatchOp {
	switch data.Type {
	case domain.ReversalTypeOperationalError:
		return []azure.PatchOp{
			azure.AddField(FieldErrors, data.ByOperational.Errors),
			azure.AddField(FieldCorrective, data.ByOperational.CorrectiveActions),
		}
	case domain.ReversalTypeClientError:
		return []azure.PatchOp{
			azure.AddField(FieldWrongPaymentDate, data.ByClient.IncorrectPaymentDate),
		}
	default:
		return nil
	}
}

// validateReversalData enforces the payload invariant: the variant present
// must match the declared type, never both, and never neither when the
// payload is expected to be complete.
func validateReversalData(data domain.ReversalData, requireVariant bool) error {
	if !data.Type.IsValid() {
		return util.NewValidationError("unrecognized reversal type", map[string]any{"type": string(data.Type)})
	}
	if data.ByOperational != nil && data.ByClient != nil {
		return util.NewValidationError("reversal payload carries both variants", nil)
	}
	switch data.Type {
	case domain.ReversalTypeOperationalError:
		if data.ByClient != nil {
			return util.NewValidationError("client-error payload on an operational-error reversal", nil)
		}
		if requireVariant && data.ByOperational == nil {
			return util.NewValidationError("operational-error payload is required", nil)
		}
	case domain.ReversalTypeClientError:
		if data.ByOperational != nil {
			return util.NewValidationError("operational-error payload on a client-error reversal", nil)
		}
		if requireVariant && data.ByClient == nil {
			return util.NewValidationError("client-error payload is required", nil)
		}
	}
	return nil
}

// normalizeReversal extends ticket normalization with the reversal fields.
func (s *ReversalService) normalizeReversal(item *azure.WorkItem, comments []azure.Comment) (*domain.Reversal, error) {
	base, err := s.tickets.normalize(item, comments)
	if err != nil {
		return nil, err
	}
	reversal := &domain.Reversal{
		Ticket:               *base,
		Errors:               stringField(item.Fields, FieldErrors),
		CorrectiveActions:    stringField(item.Fields, FieldCorrective),
		IncorrectPaymentDate: stringField(item.Fields, FieldWrongPaymentDate),
		Client: domain.Client{
			CompanyName:      stringField(item.Fields, FieldCompanyName),
			NIT:              stringField(item.Fields, FieldNIT),
			ObligationNumber: stringField(item.Fields, FieldObligationNumber),
			Username:         stringField(item.Fields, FieldUsername),
			DocumentType:     domain.DocumentType(stringField(item.Fields, FieldDocumentType)),
			DocumentNumber:   stringField(item.Fields, FieldDocumentNumber),
			Email:            stringField(item.Fields, FieldClientEmail),
			Phone:            stringField(item.Fields, FieldClientPhone),
		},
		AdvisorEmail: stringField(item.Fields, FieldRequestedBy),
	}
	if raw := stringField(item.Fields, FieldReversalType); raw != "" {
		typ, ok := domain.ParseReversalType(raw)
		if !ok {
			return nil, util.NewValidationError(
				"work item carries an unrecognized reversal type",
				map[string]any{"id": item.ID, "type": raw},
			)
		}
		reversal.ReversalType = typ
	}
	return reversal, nil
}

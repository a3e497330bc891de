package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workitem-gateway/internal/api/dto"
	"github.com/spec-kit/workitem-gateway/internal/config"
	"github.com/spec-kit/workitem-gateway/internal/domain"
	"github.com/spec-kit/workitem-gateway/internal/service"
	apperrors "github.com/spec-kit/workitem-gateway/pkg/util"
)

// ReversalsHandler manages reversal endpoints.
type ReversalsHandler struct {
	service *service.ReversalService
	upload  config.UploadConfig
}

// NewReversalsHandler constructs handler.
func NewReversalsHandler(reversalService *service.ReversalService, upload config.UploadConfig) *ReversalsHandler {
	return &ReversalsHandler{service: reversalService, upload: upload}
}

// CreateReversal POST /reversals.
func (h *ReversalsHandler) CreateReversal(c *fiber.Ctx) error {
	var req dto.CreateReversalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input, err := reversalCreateInput(req)
	if err != nil {
		return err
	}
	reversal, err := h.service.Create(c.UserContext(), *input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": reversalResponse(reversal)})
}

// GetReversal GET /reversals/:id.
func (h *ReversalsHandler) GetReversal(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	reversal, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": reversalResponse(reversal)})
}

// MoveReversal PUT /reversals/:id/move.
func (h *ReversalsHandler) MoveReversal(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.MoveReversalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	newState, ok := domain.ParseTicketState(req.NewState)
	if !ok {
		return apperrors.NewValidationError("unrecognized target state", map[string]any{"state": req.NewState})
	}
	var data *domain.ReversalData
	if req.Data != nil {
		parsed, err := reversalData(*req.Data)
		if err != nil {
			return err
		}
		data = parsed
	}
	reversal, err := h.service.Move(c.UserContext(), id, newState, req.UserEmail, data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": reversalResponse(reversal)})
}

// AttachFiles POST /reversals/:id/attachments.
func (h *ReversalsHandler) AttachFiles(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	paths, cleanup, err := saveUploadedFiles(c, h.upload)
	if err != nil {
		return err
	}
	defer cleanup()

	reversal, err := h.service.AttachFiles(c.UserContext(), id, paths, h.upload.MaxFiles)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": reversalResponse(reversal)})
}

func reversalCreateInput(req dto.CreateReversalRequest) (*service.ReversalCreateInput, error) {
	client := req.Client
	for name, value := range map[string]string{
		"client.company_name":         client.CompanyName,
		"client.nit":                  client.NIT,
		"client.obligation_number":    client.ObligationNumber,
		"client.username":             client.Username,
		"client.user_document_number": client.UserDocumentNumber,
		"client.user_email":           client.UserEmail,
		"advisor.email":               req.Advisor.Email,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, apperrors.NewValidationError(name+" required", nil)
		}
	}
	documentType := domain.DocumentType(client.UserDocumentType)
	if !documentType.IsValid() {
		return nil, apperrors.NewValidationError("unrecognized document type", map[string]any{"type": client.UserDocumentType})
	}
	data, err := reversalData(req.Data)
	if err != nil {
		return nil, err
	}
	return &service.ReversalCreateInput{
		Client: domain.Client{
			CompanyName:      client.CompanyName,
			NIT:              client.NIT,
			ObligationNumber: client.ObligationNumber,
			Username:         client.Username,
			DocumentType:     documentType,
			DocumentNumber:   client.UserDocumentNumber,
			Email:            client.UserEmail,
			Phone:            client.Phone,
		},
		Advisor: domain.Advisor{Email: req.Advisor.Email},
		Data:    *data,
		Draft:   req.Draft,
	}, nil
}

func reversalData(payload dto.ReversalDataPayload) (*domain.ReversalData, error) {
	typ, ok := domain.ParseReversalType(payload.Type)
	if !ok {
		return nil, apperrors.NewValidationError("unrecognized reversal type", map[string]any{"type": payload.Type})
	}
	data := &domain.ReversalData{Type: typ}
	if payload.ByOperational != nil {
		data.ByOperational = &domain.OperationalErrorData{
			Errors:            payload.ByOperational.Errors,
			CorrectiveActions: payload.ByOperational.CorrectiveActions,
		}
	}
	if payload.ByClient != nil {
		data.ByClient = &domain.ClientErrorData{
			IncorrectPaymentDate: payload.ByClient.IncorrectPaymentDate,
		}
	}
	return data, nil
}

func reversalResponse(reversal *domain.Reversal) dto.ReversalResponse {
	return dto.ReversalResponse{
		TicketResponse:       ticketResponse(&reversal.Ticket),
		ReversalType:         string(reversal.ReversalType),
		Errors:               reversal.Errors,
		CorrectiveActions:    reversal.CorrectiveActions,
		IncorrectPaymentDate: reversal.IncorrectPaymentDate,
		Client: dto.ClientPayload{
			CompanyName:        reversal.Client.CompanyName,
			NIT:                reversal.Client.NIT,
			ObligationNumber:   reversal.Client.ObligationNumber,
			Username:           reversal.Client.Username,
			UserDocumentType:   string(reversal.Client.DocumentType),
			UserDocumentNumber: reversal.Client.DocumentNumber,
			UserEmail:          reversal.Client.Email,
			Phone:              reversal.Client.Phone,
		},
		Advisor: dto.AdvisorPayload{Email: reversal.AdvisorEmail},
	}
}

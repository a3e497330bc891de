package handlers

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workitem-gateway/internal/api/dto"
	"github.com/spec-kit/workitem-gateway/internal/config"
	"github.com/spec-kit/workitem-gateway/internal/domain"
	"github.com/spec-kit/workitem-gateway/internal/service"
	apperrors "github.com/spec-kit/workitem-gateway/pkg/util"
)

// TicketsHandler manages plain ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	upload  config.UploadConfig
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, upload config.UploadConfig) *TicketsHandler {
	return &TicketsHandler{service: ticketService, upload: upload}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}
	ticket, err := h.service.Create(c.UserContext(), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

// MoveTicket PUT /tickets/:id/move.
func (h *TicketsHandler) MoveTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.MoveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	newState, ok := domain.ParseTicketState(req.NewState)
	if !ok {
		return apperrors.NewValidationError("unrecognized target state", map[string]any{"state": req.NewState})
	}
	ticket, err := h.service.Move(c.UserContext(), id, newState, req.UserEmail, nil)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.SenderEmail) == "" || strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("sender_email and text required", nil)
	}
	ticket, err := h.service.AddComment(c.UserContext(), id, req.SenderEmail, req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

// AttachFiles POST /tickets/:id/attachments.
func (h *TicketsHandler) AttachFiles(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	paths, cleanup, err := saveUploadedFiles(c, h.upload)
	if err != nil {
		return err
	}
	defer cleanup()

	ticket, err := h.service.AttachFiles(c.UserContext(), id, paths, h.upload.MaxFiles)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

// RemoveAttachment DELETE /tickets/:id/attachments.
func (h *TicketsHandler) RemoveAttachment(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.RemoveAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.URL == "" {
		return apperrors.NewValidationError("url required", nil)
	}
	ticket, err := h.service.RemoveAttachment(c.UserContext(), id, req.URL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

func ticketID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("ticket id must be a positive integer", nil)
	}
	return id, nil
}

// saveUploadedFiles spills multipart files into a per-request temp directory
// so the gateway can stream them to the store from disk. The returned cleanup
// removes the directory.
func saveUploadedFiles(c *fiber.Ctx, upload config.UploadConfig) ([]string, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, apperrors.NewValidationError("multipart form required", nil)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return nil, nil, apperrors.NewValidationError("at least one file required", nil)
	}

	dir, err := os.MkdirTemp(upload.TempDir, "attach-")
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	paths := make([]string, 0, len(files))
	for _, header := range files {
		if err := checkFileSize(header, upload.MaxFileSize); err != nil {
			cleanup()
			return nil, nil, err
		}
		dst := filepath.Join(dir, filepath.Base(header.Filename))
		if err := c.SaveFile(header, dst); err != nil {
			cleanup()
			return nil, nil, apperrors.NewInternalError(err)
		}
		paths = append(paths, dst)
	}
	return paths, cleanup, nil
}

func checkFileSize(header *multipart.FileHeader, max int64) error {
	if max > 0 && header.Size > max {
		return apperrors.NewValidationError(
			"file exceeds the size limit",
			map[string]any{"file": header.Filename, "size": header.Size, "max": max},
		)
	}
	return nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	comments := make([]dto.CommentResponse, 0, len(ticket.Comments))
	for _, comment := range ticket.Comments {
		comments = append(comments, dto.CommentResponse{ID: comment.ID, Text: comment.Text})
	}
	attachments := make([]dto.AttachmentResponse, 0, len(ticket.Attachments))
	for _, att := range ticket.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			URL:     att.URL,
			Comment: att.Comment,
			Name:    att.Name,
		})
	}
	return dto.TicketResponse{
		ID:                   ticket.ID,
		Title:                ticket.Title,
		Description:          ticket.Description,
		State:                string(ticket.State),
		IterationCount:       ticket.IterationCount,
		AssignedTo:           ticket.AssignedTo,
		LastInDraft:          ticket.LastInDraft,
		LastRequested:        ticket.LastRequested,
		LastAssigned:         ticket.LastAssigned,
		LastInEvaluation:     ticket.LastInEvaluation,
		LastReturned:         ticket.LastReturned,
		EvaluationFinishedAt: ticket.EvaluationFinishedAt,
		Comments:             comments,
		Attachments:          attachments,
	}
}

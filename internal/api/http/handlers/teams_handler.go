package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workitem-gateway/internal/api/dto"
	"github.com/spec-kit/workitem-gateway/internal/domain"
	"github.com/spec-kit/workitem-gateway/internal/service"
	apperrors "github.com/spec-kit/workitem-gateway/pkg/util"
)

// TeamsHandler manages team membership and assignment endpoints.
type TeamsHandler struct {
	service *service.TeamService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(teamService *service.TeamService) *TeamsHandler {
	return &TeamsHandler{service: teamService}
}

// GetMembers GET /teams/:team/members.
func (h *TeamsHandler) GetMembers(c *fiber.Ctx) error {
	members, err := h.service.GetMembers(c.UserContext(), c.Params("team"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": teamMembersResponse(members)})
}

// GetAssigned GET /teams/:team/members/:email/assigned.
func (h *TeamsHandler) GetAssigned(c *fiber.Ctx) error {
	state, err := queryState(c)
	if err != nil {
		return err
	}
	email, err := memberEmail(c)
	if err != nil {
		return err
	}
	workload, err := h.service.GetAssignedTickets(c.UserContext(), c.Params("team"), email, state)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": workloadResponse(workload)})
}

// GetAllAssigned GET /teams/:team/members/assigned.
func (h *TeamsHandler) GetAllAssigned(c *fiber.Ctx) error {
	state, err := queryState(c)
	if err != nil {
		return err
	}
	workloads, err := h.service.GetAllAssigned(c.UserContext(), c.Params("team"), state)
	if err != nil {
		return err
	}
	items := make([]dto.MemberWorkloadResponse, 0, len(workloads))
	for i := range workloads {
		items = append(items, workloadResponse(&workloads[i]))
	}
	return c.JSON(fiber.Map{"status": "success", "data": items})
}

// Assign PUT /teams/:team/members/:email/assign/:ticketId.
func (h *TeamsHandler) Assign(c *fiber.Ctx) error {
	ticketID, err := strconv.Atoi(c.Params("ticketId"))
	if err != nil || ticketID <= 0 {
		return apperrors.NewValidationError("ticket id must be a positive integer", nil)
	}
	email, err := memberEmail(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Assign(c.UserContext(), c.Params("team"), email, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "data": ticketResponse(ticket)})
}

func memberEmail(c *fiber.Ctx) (string, error) {
	email := c.Params("email")
	if email == "" {
		return "", apperrors.NewValidationError("member email required", nil)
	}
	return email, nil
}

// queryState reads the optional ?state= filter; team workload views default
// to tickets under evaluation.
func queryState(c *fiber.Ctx) (domain.TicketState, error) {
	raw := c.Query("state", string(domain.TicketStateInEvaluation))
	state, ok := domain.ParseTicketState(raw)
	if !ok {
		return "", apperrors.NewValidationError("unrecognized state", map[string]any{"state": raw})
	}
	return state, nil
}

func teamMembersResponse(members *service.TeamMembers) dto.TeamMembersResponse {
	items := make([]dto.TeamMemberResponse, 0, len(members.Members))
	for _, member := range members.Members {
		items = append(items, dto.TeamMemberResponse{Name: member.Name, Email: member.Email})
	}
	return dto.TeamMembersResponse{Count: members.Count, Members: items}
}

func workloadResponse(workload *domain.MemberWorkload) dto.MemberWorkloadResponse {
	tickets := make([]dto.TicketResponse, 0, len(workload.Tickets))
	for i := range workload.Tickets {
		tickets = append(tickets, ticketResponse(&workload.Tickets[i]))
	}
	return dto.MemberWorkloadResponse{
		Member:  dto.TeamMemberResponse{Name: workload.Member.Name, Email: workload.Member.Email},
		Count:   workload.Count,
		Tickets: tickets,
	}
}

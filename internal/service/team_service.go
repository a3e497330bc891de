package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/workitem-gateway/internal/azure"
	"github.com/spec-kit/workitem-gateway/internal/domain"
	"github.com/spec-kit/workitem-gateway/internal/events"
	"github.com/spec-kit/workitem-gateway/pkg/util"
)

// TeamService answers team membership and workload questions and assigns
// tickets to members. It deliberately does not consult the transition table:
// assignment through here is an area/assignee patch only.
type TeamService struct {
	store   azure.Client
	tickets *TicketService
	project string
	logger  *zap.Logger
}

// TeamDependencies bundles collaborators for the team service.
type TeamDependencies struct {
	Store   azure.Client
	Tickets *TicketService
	Project string
	Logger  *zap.Logger
}

// NewTeamService constructs the service.
func NewTeamService(deps TeamDependencies) *TeamService {
	return &TeamService{
		store:   deps.Store,
		tickets: deps.Tickets,
		project: deps.Project,
		logger:  deps.Logger,
	}
}

// TeamMembers is the membership projection returned to callers.
type TeamMembers struct {
	Count   int
	Members []domain.TeamMember
}

// GetMembers returns the members of the given team.
func (s *TeamService) GetMembers(ctx context.Context, teamName string) (*TeamMembers, error) {
	count, raw, err := s.store.GetTeamMembers(ctx, teamName)
	if err != nil {
		return nil, err
	}
	members := make([]domain.TeamMember, 0, len(raw))
	for _, member := range raw {
		members = append(members, domain.TeamMember{
			Name:  member.DisplayName,
			Email: member.UniqueName,
		})
	}
	return &TeamMembers{Count: count, Members: members}, nil
}

// GetAssignedTickets returns the tickets in the given state assigned to one
// member within the team's area.
func (s *TeamService) GetAssignedTickets(ctx context.Context, teamName, memberEmail string, state domain.TicketState) (*domain.MemberWorkload, error) {
	if memberEmail == "" {
		return nil, util.NewValidationError("member email is required", nil)
	}
	if !state.IsValid() {
		return nil, util.NewValidationError("unrecognized state", map[string]any{"state": string(state)})
	}
	ids, err := s.store.QueryWorkItemIDs(ctx, s.assignedQuery(teamName, memberEmail, state))
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		item, err := s.store.GetWorkItem(ctx, id, false)
		if err != nil {
			return nil, err
		}
		ticket, err := s.tickets.normalize(item, nil)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return &domain.MemberWorkload{
		Member:  domain.TeamMember{Email: memberEmail},
		Count:   len(tickets),
		Tickets: tickets,
	}, nil
}

// GetAllAssigned returns per-member workloads for every member of the team.
func (s *TeamService) GetAllAssigned(ctx context.Context, teamName string, state domain.TicketState) ([]domain.MemberWorkload, error) {
	membership, err := s.GetMembers(ctx, teamName)
	if err != nil {
		return nil, err
	}
	workloads := make([]domain.MemberWorkload, 0, len(membership.Members))
	for _, member := range membership.Members {
		workload, err := s.GetAssignedTickets(ctx, teamName, member.Email, state)
		if err != nil {
			return nil, err
		}
		workload.Member = member
		workloads = append(workloads, *workload)
	}
	return workloads, nil
}

// Assign sets the assignee and area path on a ticket. It bypasses the state
// machine on purpose: this mirrors how team leads hand out work regardless of
// where a ticket currently sits.
func (s *TeamService) Assign(ctx context.Context, teamName, memberEmail string, ticketID int) (*domain.Ticket, error) {
	if memberEmail == "" {
		return nil, util.NewValidationError("member email is required", nil)
	}
	ops := []azure.PatchOp{
		azure.AddField(FieldAssignedTo, memberEmail),
		azure.AddField(FieldAreaPath, s.areaPath(teamName)),
	}
	updated, err := s.store.UpdateWorkItem(ctx, ticketID, ops)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.normalize(updated, nil)
	if err != nil {
		return nil, err
	}
	s.tickets.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Payload:  events.TicketAssignedPayload{AssignedTo: memberEmail, TeamName: teamName},
	})
	return ticket, nil
}

func (s *TeamService) areaPath(teamName string) string {
	return s.project + "\\" + teamName
}

func (s *TeamService) assignedQuery(teamName, memberEmail string, state domain.TicketState) string {
	return fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.AssignedTo] = '%s' AND [System.State] = '%s' AND [System.AreaPath] = '%s'",
		escapeWIQL(memberEmail), escapeWIQL(state.WireValue()), escapeWIQL(s.areaPath(teamName)),
	)
}

// escapeWIQL doubles single quotes inside WIQL string literals.
func escapeWIQL(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

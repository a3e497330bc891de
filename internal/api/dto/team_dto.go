package dto

// TeamMemberResponse is a single member projection.
type TeamMemberResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TeamMembersResponse lists the members of a team.
type TeamMembersResponse struct {
	Count   int                  `json:"count"`
	Members []TeamMemberResponse `json:"members"`
}

// MemberWorkloadResponse pairs a member with their assigned tickets.
type MemberWorkloadResponse struct {
	Member  TeamMemberResponse `json:"member"`
	Count   int                `json:"count"`
	Tickets []TicketResponse   `json:"tickets"`
}

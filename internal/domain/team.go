package domain

// TeamMember is a read-only projection of a tracking-project team member.
type TeamMember struct {
	Name  string
	Email string
}

// MemberWorkload pairs a member with the tickets currently assigned to them.
type MemberWorkload struct {
	Member  TeamMember
	Count   int
	Tickets []Ticket
}

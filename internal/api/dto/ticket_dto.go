package dto

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MoveTicketRequest payload.
type MoveTicketRequest struct {
	NewState  string `json:"new_state"`
	UserEmail string `json:"user_email,omitempty"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	SenderEmail string `json:"sender_email"`
	Text        string `json:"text"`
}

// RemoveAttachmentRequest payload.
type RemoveAttachmentRequest struct {
	URL string `json:"url"`
}

// CommentResponse represents one ticket comment.
type CommentResponse struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// AttachmentResponse represents one file relation.
type AttachmentResponse struct {
	URL     string `json:"url"`
	Comment string `json:"comment"`
	Name    string `json:"name"`
}

// TicketResponse is the normalized ticket representation returned by every
// ticket endpoint.
type TicketResponse struct {
	ID                   int                  `json:"id"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	State                string               `json:"state"`
	IterationCount       int                  `json:"iteration_count"`
	AssignedTo           string               `json:"assigned_to,omitempty"`
	LastInDraft          string               `json:"last_in_draft,omitempty"`
	LastRequested        string               `json:"last_requested,omitempty"`
	LastAssigned         string               `json:"last_assigned,omitempty"`
	LastInEvaluation     string               `json:"last_in_evaluation,omitempty"`
	LastReturned         string               `json:"last_returned,omitempty"`
	EvaluationFinishedAt string               `json:"evaluation_finished_at,omitempty"`
	Comments             []CommentResponse    `json:"comments"`
	Attachments          []AttachmentResponse `json:"attachments"`
}

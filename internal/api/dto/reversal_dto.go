package dto

// ClientPayload identifies the company and person a reversal is filed for.
type ClientPayload struct {
	CompanyName        string `json:"company_name"`
	NIT                string `json:"nit"`
	ObligationNumber   string `json:"obligation_number"`
	Username           string `json:"username"`
	UserDocumentType   string `json:"user_document_type"`
	UserDocumentNumber string `json:"user_document_number"`
	UserEmail          string `json:"user_email"`
	Phone              string `json:"phone,omitempty"`
}

// AdvisorPayload is the originating agent.
type AdvisorPayload struct {
	Email string `json:"email"`
}

// OperationalErrorPayload carries the operational-error variant fields.
type OperationalErrorPayload struct {
	Errors            string `json:"errors"`
	CorrectiveActions string `json:"corrective_actions"`
}

// ClientErrorPayload carries the client-error variant fields.
type ClientErrorPayload struct {
	IncorrectPaymentDate string `json:"incorrect_payment_date"`
}

// ReversalDataPayload is the type-discriminated reversal payload.
type ReversalDataPayload struct {
	Type          string                   `json:"type"`
	ByOperational *OperationalErrorPayload `json:"by_operational,omitempty"`
	ByClient      *ClientErrorPayload      `json:"by_client,omitempty"`
}

// CreateReversalRequest payload.
type CreateReversalRequest struct {
	Client  ClientPayload       `json:"client"`
	Advisor AdvisorPayload      `json:"advisor"`
	Data    ReversalDataPayload `json:"data"`
	Draft   bool                `json:"draft,omitempty"`
}

// MoveReversalRequest payload.
type MoveReversalRequest struct {
	NewState  string               `json:"new_state"`
	UserEmail string               `json:"user_email,omitempty"`
	Data      *ReversalDataPayload `json:"data,omitempty"`
}

// ReversalResponse extends the ticket representation with reversal fields.
type ReversalResponse struct {
	TicketResponse
	ReversalType         string         `json:"reversal_type"`
	Errors               string         `json:"errors,omitempty"`
	CorrectiveActions    string         `json:"corrective_actions,omitempty"`
	IncorrectPaymentDate string         `json:"incorrect_payment_date,omitempty"`
	Client               ClientPayload  `json:"client"`
	Advisor              AdvisorPayload `json:"advisor"`
}

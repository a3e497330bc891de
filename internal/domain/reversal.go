package domain

// ReversalType enumerates the two reversal variants.
type ReversalType string

const (
	ReversalTypeOperationalError ReversalType = "OPERATIONAL_ERROR"
	ReversalTypeClientError      ReversalType = "CLIENT_ERROR"
)

// wireReversalTypes maps reversal types to the values stored on the record.
var wireReversalTypes = map[ReversalType]string{
	ReversalTypeOperationalError: "Reversion por errores operativos",
	ReversalTypeClientError:      "Reversion por errores del cliente",
}

// WireValue returns the type string written to the work-item store.
func (t ReversalType) WireValue() string {
	return wireReversalTypes[t]
}

// IsValid reports whether t is a member of the closed enumeration.
func (t ReversalType) IsValid() bool {
	_, ok := wireReversalTypes[t]
	return ok
}

// ParseReversalType resolves a raw value into a ReversalType, accepting both
// the wire spelling and the enum name.
func ParseReversalType(raw string) (ReversalType, bool) {
	for typ, wire := range wireReversalTypes {
		if wire == raw {
			return typ, true
		}
	}
	candidate := ReversalType(raw)
	if candidate.IsValid() {
		return candidate, true
	}
	return "", false
}

// DocumentType enumerates accepted client identity documents.
type DocumentType string

const (
	DocumentTypeNationalID DocumentType = "CC"
	DocumentTypePassport   DocumentType = "PASAPORTE"
)

// IsValid reports whether d is a member of the closed enumeration.
func (d DocumentType) IsValid() bool {
	return d == DocumentTypeNationalID || d == DocumentTypePassport
}

// Client identifies the company and person a reversal is filed for.
type Client struct {
	CompanyName      string
	NIT              string
	ObligationNumber string
	Username         string
	DocumentType     DocumentType
	DocumentNumber   string
	Email            string
	Phone            string
}

// Advisor is the agent who originated the request.
type Advisor struct {
	Email string
}

// OperationalErrorData carries the payload for operational-error reversals.
type OperationalErrorData struct {
	Errors            string
	CorrectiveActions string
}

// ClientErrorData carries the payload for client-error reversals.
type ClientErrorData struct {
	IncorrectPaymentDate string
}

// ReversalData is the type-discriminated payload of a reversal. Exactly one
// of the variant payloads matches Type.
type ReversalData struct {
	Type          ReversalType
	ByOperational *OperationalErrorData
	ByClient      *ClientErrorData
}

// Reversal is a ticket specialization for payment-reversal requests.
type Reversal struct {
	Ticket
	ReversalType         ReversalType
	Errors               string
	CorrectiveActions    string
	IncorrectPaymentDate string
	Client               Client
	AdvisorEmail         string
}

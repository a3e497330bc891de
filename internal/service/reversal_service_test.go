package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workitem-gateway/internal/azure/azuretest"
	"github.com/spec-kit/workitem-gateway/internal/domain"
)

func newReversalService(fake *azuretest.FakeClient) *ReversalService {
	return NewReversalService(ReversalDependencies{
		Tickets: newTicketService(fake),
		Store:   fake,
		Logger:  zap.NewNop(),
	})
}

func sampleClient() domain.Client {
	return domain.Client{
		CompanyName:      "Acme SAS",
		NIT:              "900123456",
		ObligationNumber: "OB-77",
		Username:         "jdoe",
		DocumentType:     domain.DocumentTypeNationalID,
		DocumentNumber:   "1032456789",
		Email:            "jdoe@acme.com",
		Phone:            "3001234567",
	}
}

func TestGenerateTitleFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^RR-900123456-OB-77-[A-Z]{3}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		title := GenerateTitle("900123456", "OB-77")
		assert.Regexp(t, pattern, title)
		seen[title] = true
	}
	assert.Greater(t, len(seen), 1, "suffix should vary")
}

func TestCreateWritesClientAndAdvisorFields(t *testing.T) {
	fake := azuretest.NewFakeClient()
	svc := newReversalService(fake)

	reversal, err := svc.Create(context.Background(), ReversalCreateInput{
		Client:  sampleClient(),
		Advisor: domain.Advisor{Email: "advisor@bank.com"},
		Data: domain.ReversalData{
			Type: domain.ReversalTypeOperationalError,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateDraft, reversal.State)
	assert.Equal(t, domain.ReversalTypeOperationalError, reversal.ReversalType)
	assert.Equal(t, "Acme SAS", reversal.Client.CompanyName)
	assert.Equal(t, "900123456", reversal.Client.NIT)
	assert.Equal(t, "OB-77", reversal.Client.ObligationNumber)
	assert.Equal(t, domain.DocumentTypeNationalID, reversal.Client.DocumentType)
	assert.Equal(t, "advisor@bank.com", reversal.AdvisorEmail)
	assert.Regexp(t, `^RR-900123456-OB-77-[A-Z]{3}$`, reversal.Title)

	// Not a draft: variant fields are deferred to a later transition.
	assert.Empty(t, reversal.Errors)
	assert.Empty(t, reversal.CorrectiveActions)
}

func TestCreateDraftCarriesClientErrorVariant(t *testing.T) {
	fake := azuretest.NewFakeClient()
	svc := newReversalService(fake)

	created, err := svc.Create(context.Background(), ReversalCreateInput{
		Client:  sampleClient(),
		Advisor: domain.Advisor{Email: "advisor@bank.com"},
		Data: domain.ReversalData{
			Type:     domain.ReversalTypeClientError,
			ByClient: &domain.ClientErrorData{IncorrectPaymentDate: "2024-01-01"},
		},
		Draft: true,
	})
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReversalTypeClientError, fetched.ReversalType)
	assert.Equal(t, "2024-01-01", fetched.IncorrectPaymentDate)
	assert.Empty(t, fetched.Errors)
	assert.Empty(t, fetched.CorrectiveActions)
}

func TestCreateRejectsInvalidPayloads(t *testing.T) {
	operational := &domain.OperationalErrorData{Errors: "late posting", CorrectiveActions: "retrain"}
	clientErr := &domain.ClientErrorData{IncorrectPaymentDate: "2024-01-01"}

	tests := []struct {
		name  string
		data  domain.ReversalData
		draft bool
	}{
		{
			name: "unrecognized type",
			data: domain.ReversalData{Type: "OTHER"},
		},
		{
			name: "both variants",
			data: domain.ReversalData{
				Type:          domain.ReversalTypeOperationalError,
				ByOperational: operational,
				ByClient:      clientErr,
			},
		},
		{
			name: "client payload on operational type",
			data: domain.ReversalData{Type: domain.ReversalTypeOperationalError, ByClient: clientErr},
		},
		{
			name: "operational payload on client type",
			data: domain.ReversalData{Type: domain.ReversalTypeClientError, ByOperational: operational},
		},
		{
			name:  "draft without variant",
			data:  domain.ReversalData{Type: domain.ReversalTypeClientError},
			draft: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fake := azuretest.NewFakeClient()
			svc := newReversalService(fake)

			_, err := svc.Create(context.Background(), ReversalCreateInput{
				Client:  sampleClient(),
				Advisor: domain.Advisor{Email: "advisor@bank.com"},
				Data:    test.data,
				Draft:   test.draft,
			})
			requireDomainCode(t, err, "VALIDATION_FAILED")
			assert.Empty(t, fake.Items, "nothing may be created")
		})
	}
}

func TestMoveMergesReversalData(t *testing.T) {
	fake := azuretest.NewFakeClient()
	svc := newReversalService(fake)

	created, err := svc.Create(context.Background(), ReversalCreateInput{
		Client:  sampleClient(),
		Advisor: domain.Advisor{Email: "advisor@bank.com"},
		Data:    domain.ReversalData{Type: domain.ReversalTypeOperationalError},
	})
	require.NoError(t, err)

	moved, err := svc.Move(context.Background(), created.ID, domain.TicketStateRequested, "", &domain.ReversalData{
		Type: domain.ReversalTypeOperationalError,
		ByOperational: &domain.OperationalErrorData{
			Errors:            "posted to the wrong obligation",
			CorrectiveActions: "double-check obligation numbers",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateRequested, moved.State)
	assert.Equal(t, "posted to the wrong obligation", moved.Errors)
	assert.Equal(t, "double-check obligation numbers", moved.CorrectiveActions)
}

func TestMoveRejectsMismatchedReversalData(t *testing.T) {
	fake := azuretest.NewFakeClient()
	svc := newReversalService(fake)

	created, err := svc.Create(context.Background(), ReversalCreateInput{
		Client:  sampleClient(),
		Advisor: domain.Advisor{Email: "advisor@bank.com"},
		Data:    domain.ReversalData{Type: domain.ReversalTypeClientError},
	})
	require.NoError(t, err)
	updatesBefore := len(fake.UpdateCalls)

	_, err = svc.Move(context.Background(), created.ID, domain.TicketStateRequested, "", &domain.ReversalData{
		Type:          domain.ReversalTypeClientError,
		ByOperational: &domain.OperationalErrorData{Errors: "x", CorrectiveActions: "y"},
	})
	requireDomainCode(t, err, "VALIDATION_FAILED")
	assert.Len(t, fake.UpdateCalls, updatesBefore)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/timbale/registration-service/internal/domain"
	"github.com/timbale/registration-service/internal/kafka"
	"github.com/timbale/registration-service/internal/sheets"
	"github.com/timbale/registration-service/internal/siigo"
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBilling struct {
	mu sync.Mutex

	authErr   error
	existing  map[string]bool
	existsErr error
	createErr map[string]error

	existsCalls []string
	createCalls []string
}

func (f *fakeBilling) Authenticate(_ context.Context) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "tok-123", nil
}

func (f *fakeBilling) CustomerExists(_ context.Context, identification, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls = append(f.existsCalls, identification)
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[identification], nil
}

func (f *fakeBilling) CreateCustomer(_ context.Context, reg domain.RegistrationRequest, token string) (*siigo.CustomerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, reg.Identification)
	if err := f.createErr[reg.Identification]; err != nil {
		return nil, err
	}
	return &siigo.CustomerResponse{ID: "cust-" + reg.Identification, Identification: reg.Identification}, nil
}

type fakeMailer struct {
	mu         sync.Mutex
	deliver    bool
	recipients []string
}

func (f *fakeMailer) SendWelcomeEmail(recipient, firstName, customerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipients = append(f.recipients, recipient)
	return f.deliver
}

type fakeProducer struct {
	events chan kafka.RegistrationEvent
}

func (f *fakeProducer) PublishRegistrationEvent(_ context.Context, event kafka.RegistrationEvent) error {
	f.events <- event
	return nil
}

func (f *fakeProducer) Close() error { return nil }

// failingSheet wraps a gateway so either operation can be forced to fail
type failingSheet struct {
	sheets.Gateway
	readErr   error
	appendErr error
}

func (f *failingSheet) ReadRows(ctx context.Context, readRange string) ([][]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Gateway.ReadRows(ctx, readRange)
}

func (f *failingSheet) AppendRow(ctx context.Context, row []string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Gateway.AppendRow(ctx, row)
}

func testRegistration(identification string) domain.RegistrationRequest {
	return domain.RegistrationRequest{
		FirstName:      "Ana",
		LastName:       "Lopez",
		Email:          identification + "@example.com",
		Phone:          "3001234567",
		Identification: identification,
	}
}

func newTestService(billing *fakeBilling, sheet sheets.Gateway, mail *fakeMailer) *RegistrationService {
	return NewRegistrationService(billing, sheet, mail, nil, nil, "A1:AE100", logger.New(logger.ERROR))
}

func TestRegisterUser(t *testing.T) {
	t.Run("existing customer short-circuits without a create call", func(t *testing.T) {
		billing := &fakeBilling{existing: map[string]bool{"CC1001": true}}
		sheet := sheets.NewMemoryGateway(nil)
		mail := &fakeMailer{deliver: true}
		svc := newTestService(billing, sheet, mail)

		outcome, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusExisting, outcome.Status)
		assert.Empty(t, outcome.CustomerID)
		assert.Empty(t, billing.createCalls, "no create for an existing customer")
		assert.Empty(t, sheet.Rows(), "no sheet append for an existing customer")
		assert.Empty(t, mail.recipients, "no welcome email for an existing customer")
	})

	t.Run("new customer is created, recorded and welcomed exactly once", func(t *testing.T) {
		billing := &fakeBilling{}
		sheet := sheets.NewMemoryGateway(nil)
		mail := &fakeMailer{deliver: true}
		svc := newTestService(billing, sheet, mail)

		outcome, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusNew, outcome.Status)
		assert.Equal(t, "cust-CC1001", outcome.CustomerID)
		assert.Empty(t, outcome.Warning)

		assert.Equal(t, []string{"CC1001"}, billing.existsCalls)
		assert.Equal(t, []string{"CC1001"}, billing.createCalls, "exactly one create call")

		rows := sheet.Rows()
		require.Len(t, rows, 1)
		assert.Equal(t, "CC1001", rows[0][4])

		assert.Equal(t, []string{"CC1001@example.com"}, mail.recipients)
	})

	t.Run("failed welcome email degrades to a warning, not an error", func(t *testing.T) {
		billing := &fakeBilling{}
		sheet := sheets.NewMemoryGateway(nil)
		mail := &fakeMailer{deliver: false}
		svc := newTestService(billing, sheet, mail)

		outcome, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.NoError(t, err, "registration succeeds even when the email does not")

		assert.Equal(t, domain.StatusNew, outcome.Status)
		assert.Equal(t, "cust-CC1001", outcome.CustomerID)
		assert.Equal(t, domain.ErrEmailNotSent.Error(), outcome.Warning)
	})

	t.Run("invalid registration fails before any provider call", func(t *testing.T) {
		billing := &fakeBilling{}
		svc := newTestService(billing, sheets.NewMemoryGateway(nil), &fakeMailer{deliver: true})

		reg := testRegistration("CC1001")
		reg.Identification = ""

		_, err := svc.RegisterUser(context.Background(), reg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.Empty(t, billing.existsCalls)
		assert.Empty(t, billing.createCalls)
	})

	t.Run("authentication failure aborts the flow", func(t *testing.T) {
		billing := &fakeBilling{authErr: domain.ErrAuthFailed}
		svc := newTestService(billing, sheets.NewMemoryGateway(nil), &fakeMailer{deliver: true})

		_, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAuthFailed))
		assert.Empty(t, billing.existsCalls)
	})

	t.Run("existence check failure propagates instead of creating blindly", func(t *testing.T) {
		billing := &fakeBilling{existsErr: domain.NewBillingError(http.StatusForbidden, "scope missing", nil)}
		svc := newTestService(billing, sheets.NewMemoryGateway(nil), &fakeMailer{deliver: true})

		_, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.Error(t, err)
		assert.Empty(t, billing.createCalls, "an unknown existence state must not trigger a create")
	})

	t.Run("sheet append failure reports the created customer", func(t *testing.T) {
		billing := &fakeBilling{}
		sheet := &failingSheet{Gateway: sheets.NewMemoryGateway(nil), appendErr: errors.New("quota exceeded")}
		mail := &fakeMailer{deliver: true}
		svc := newTestService(billing, sheet, mail)

		_, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cust-CC1001", "the caller learns which record was already created")
		assert.Empty(t, mail.recipients, "no welcome email when the row was not recorded")
	})

	t.Run("publishes a registration event after a create", func(t *testing.T) {
		billing := &fakeBilling{}
		producer := &fakeProducer{events: make(chan kafka.RegistrationEvent, 1)}
		svc := NewRegistrationService(billing, sheets.NewMemoryGateway(nil), &fakeMailer{deliver: true},
			producer, nil, "A1:AE100", logger.New(logger.ERROR))

		outcome, err := svc.RegisterUser(context.Background(), testRegistration("CC1001"))
		require.NoError(t, err)
		require.Equal(t, domain.StatusNew, outcome.Status)

		select {
		case event := <-producer.events:
			assert.Equal(t, "CC1001", event.Identification)
			assert.Equal(t, "cust-CC1001", event.SiigoCustomerID)
			assert.Equal(t, "new", event.Status)
			assert.True(t, event.EmailSent)
		case <-time.After(time.Second):
			t.Fatal("no registration event was published")
		}
	})
}

func TestProcessSheet(t *testing.T) {
	t.Run("one pass handles new, existing, malformed and failing rows", func(t *testing.T) {
		rows := [][]string{
			{"Ana", "Lopez", "ana@example.com", "3001111111", "ID1"},
			{"bad-row"},
			{"Carlos", "Diaz", "carlos@example.com", "3002222222", "ID2"},
			{"Elena", "Ruiz", "elena@example.com", "3003333333", "ID3"},
		}
		billing := &fakeBilling{
			existing:  map[string]bool{"ID2": true},
			createErr: map[string]error{"ID3": fmt.Errorf("%w: connection refused", domain.ErrServiceUnavailable)},
		}
		sheet := sheets.NewMemoryGateway(rows)
		svc := newTestService(billing, sheet, &fakeMailer{deliver: true})

		summary, err := svc.ProcessSheet(context.Background())
		require.NoError(t, err, "a failing row never aborts the batch")

		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 1, summary.Existing)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Failed)

		assert.Equal(t, []string{"ID1", "ID2", "ID3"}, billing.existsCalls, "every valid row is checked")
		assert.Equal(t, []string{"ID1", "ID3"}, billing.createCalls, "existing rows are not re-created")
	})

	t.Run("rerunning the batch creates nothing new", func(t *testing.T) {
		rows := [][]string{
			{"Ana", "Lopez", "ana@example.com", "3001111111", "ID1"},
		}
		billing := &fakeBilling{existing: map[string]bool{}}
		sheet := sheets.NewMemoryGateway(rows)
		svc := newTestService(billing, sheet, &fakeMailer{deliver: true})

		summary, err := svc.ProcessSheet(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Created)

		// The provider now knows ID1, as the real API would after the create.
		billing.existing["ID1"] = true

		summary, err = svc.ProcessSheet(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Created)
		assert.Equal(t, []string{"ID1"}, billing.createCalls, "still exactly one create in total")
	})

	t.Run("a sheet read failure aborts the pass", func(t *testing.T) {
		sheet := &failingSheet{Gateway: sheets.NewMemoryGateway(nil), readErr: errors.New("credentials rejected")}
		svc := newTestService(&fakeBilling{}, sheet, &fakeMailer{deliver: true})

		_, err := svc.ProcessSheet(context.Background())
		require.Error(t, err)
	})
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/timbale/registration-service/internal/domain"
	"github.com/timbale/registration-service/internal/kafka"
	"github.com/timbale/registration-service/internal/mailer"
	"github.com/timbale/registration-service/internal/metrics"
	"github.com/timbale/registration-service/internal/sheets"
	"github.com/timbale/registration-service/internal/siigo"
	"github.com/timbale/registration-service/pkg/logger"
)

// BillingClient is the slice of the Siigo client the orchestrator needs
type BillingClient interface {
	Authenticate(ctx context.Context) (string, error)
	CustomerExists(ctx context.Context, identification, token string) (bool, error)
	CreateCustomer(ctx context.Context, reg domain.RegistrationRequest, token string) (*siigo.CustomerResponse, error)
}

// BatchSummary reports what a sheet reconciliation pass did
type BatchSummary struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RegistrationService orchestrates a single user registration: authenticate,
// check existence, create the Siigo customer, record the row, send the
// welcome email. The same flow serves the HTTP handlers and the scheduled
// sheet reconciliation.
type RegistrationService struct {
	billing   BillingClient
	sheet     sheets.Gateway
	mail      mailer.Sender
	producer  kafka.Producer              // may be nil, publishing is optional
	metrics   metrics.RegistrationMetrics // may be nil in tests
	readRange string
	log       *logger.Logger
}

// NewRegistrationService wires the orchestrator
func NewRegistrationService(
	billing BillingClient,
	sheet sheets.Gateway,
	mail mailer.Sender,
	producer kafka.Producer,
	m metrics.RegistrationMetrics,
	readRange string,
	log *logger.Logger,
) *RegistrationService {
	if producer == nil {
		log.Warnw("Kafka producer is nil, registration events will not be published")
	}
	return &RegistrationService{
		billing:   billing,
		sheet:     sheet,
		mail:      mail,
		producer:  producer,
		metrics:   m,
		readRange: readRange,
		log:       log,
	}
}

// RegisterUser runs the full registration flow for one request.
//
// A customer already present in Siigo terminates the flow with an "existing"
// outcome and no create call. After a successful create there is no rollback:
// the Siigo record persists even if the sheet append or the email fails.
func (s *RegistrationService) RegisterUser(ctx context.Context, reg domain.RegistrationRequest) (*domain.RegistrationOutcome, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	s.log.Infow("Starting registration", "identification", reg.Identification)
	start := time.Now()

	token, err := s.billing.Authenticate(ctx)
	if err != nil {
		s.trackOutcome("failed", start)
		return nil, err
	}

	exists, err := s.billing.CustomerExists(ctx, reg.Identification, token)
	if err != nil {
		s.trackOutcome("failed", start)
		return nil, fmt.Errorf("existence check failed: %w", err)
	}
	if exists {
		s.log.Infow("Customer already registered in Siigo", "identification", reg.Identification)
		s.trackOutcome("existing", start)
		return &domain.RegistrationOutcome{
			Status:  domain.StatusExisting,
			Message: "user is already registered",
		}, nil
	}

	record, err := s.billing.CreateCustomer(ctx, reg, token)
	if err != nil {
		s.trackOutcome("failed", start)
		return nil, err
	}
	s.log.Infow("Siigo customer created", "identification", reg.Identification, "siigo_customer_id", record.ID)

	if err := s.sheet.AppendRow(ctx, reg.ToSheetRow()); err != nil {
		// The Siigo record persists; the caller sees which stage failed.
		s.trackOutcome("failed", start)
		return nil, fmt.Errorf("customer %s created but sheet update failed: %w", record.ID, err)
	}

	outcome := &domain.RegistrationOutcome{
		Status:     domain.StatusNew,
		CustomerID: record.ID,
		Message:    "user registered successfully",
	}

	emailSent := s.mail.SendWelcomeEmail(reg.Email, reg.FirstName, record.ID)
	if !emailSent {
		s.log.Warnw("Customer registered but welcome email failed", "identification", reg.Identification)
		outcome.Warning = domain.ErrEmailNotSent.Error()
		if s.metrics != nil {
			s.metrics.IncEmailFailed()
		}
	}

	s.trackOutcome("new", start)

	if s.producer != nil {
		go s.publishRegistrationEvent(context.WithoutCancel(ctx), kafka.RegistrationEvent{
			Identification:  reg.Identification,
			SiigoCustomerID: record.ID,
			Email:           reg.Email,
			Status:          string(outcome.Status),
			EmailSent:       emailSent,
			Timestamp:       time.Now(),
		})
	}

	return outcome, nil
}

// ProcessSheet runs the reconciliation batch: every structurally valid row is
// pushed through RegisterUser, and one row's failure never aborts the rest.
// Re-running the batch is idempotent because of the provider-side existence
// check.
func (s *RegistrationService) ProcessSheet(ctx context.Context) (BatchSummary, error) {
	var summary BatchSummary

	rows, err := s.sheet.ReadRows(ctx, s.readRange)
	if err != nil {
		return summary, fmt.Errorf("failed to read sheet: %w", err)
	}
	s.log.Infow("Starting sheet reconciliation", "rows", len(rows))

	for i, row := range rows {
		reg, err := domain.RegistrationFromRow(row)
		if err != nil {
			s.log.Warnw("Skipping malformed sheet row", "row", i+1, "error", err)
			if s.metrics != nil {
				s.metrics.IncRowSkipped()
			}
			summary.Skipped++
			continue
		}

		outcome, err := s.RegisterUser(ctx, reg)
		if err != nil {
			s.log.Errorw("Failed to process sheet row", "row", i+1, "identification", reg.Identification, "error", err)
			summary.Failed++
			continue
		}

		switch outcome.Status {
		case domain.StatusNew:
			summary.Created++
		case domain.StatusExisting:
			summary.Existing++
		}
	}

	s.log.Infow("Sheet reconciliation finished",
		"created", summary.Created, "existing", summary.Existing,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// publishRegistrationEvent sends the event without blocking the response
func (s *RegistrationService) publishRegistrationEvent(ctx context.Context, event kafka.RegistrationEvent) {
	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.producer.PublishRegistrationEvent(publishCtx, event); err != nil {
		s.log.Errorw("Failed to publish registration event",
			"identification", event.Identification, "error", err)
	}
}

// trackOutcome records the outcome counter and run duration
func (s *RegistrationService) trackOutcome(status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncRegistration(status)
	s.metrics.ObserveRegistrationDuration(time.Since(start).Seconds())
}

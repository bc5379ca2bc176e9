package domain

import (
	"fmt"
	"strings"
)

// MinRowColumns is the minimum number of spreadsheet columns a row needs to
// describe a registration: name, surname, email, phone, identification.
const MinRowColumns = 5

// RegistrationRequest is a single user registration submission, built either
// from an inbound webhook payload or from a spreadsheet row. Immutable once
// constructed.
type RegistrationRequest struct {
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Identification string `json:"identification" validate:"required"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
}

// FullName returns the commercial name used for the Siigo customer record
func (r RegistrationRequest) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Validate checks the fields a registration cannot be processed without.
// The identification is the natural key for the Siigo existence check.
func (r RegistrationRequest) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(r.FirstName) == "" {
		errs.Add("first_name", "must not be empty")
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs.Add("last_name", "must not be empty")
	}
	if strings.TrimSpace(r.Email) == "" {
		errs.Add("email", "must not be empty")
	}
	if strings.TrimSpace(r.Phone) == "" {
		errs.Add("phone", "must not be empty")
	}
	if strings.TrimSpace(r.Identification) == "" {
		errs.Add("identification", "must not be empty")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// RegistrationFromRow maps a raw spreadsheet row to a RegistrationRequest.
// Column order matches the intake form sheet: first name, last name, email,
// phone, identification, then optional address and city.
func RegistrationFromRow(row []string) (RegistrationRequest, error) {
	if len(row) < MinRowColumns {
		return RegistrationRequest{}, fmt.Errorf("%w: got %d columns, need at least %d", ErrIncompleteRow, len(row), MinRowColumns)
	}

	req := RegistrationRequest{
		FirstName:      strings.TrimSpace(row[0]),
		LastName:       strings.TrimSpace(row[1]),
		Email:          strings.TrimSpace(row[2]),
		Phone:          strings.TrimSpace(row[3]),
		Identification: strings.TrimSpace(row[4]),
	}
	if len(row) > 5 {
		req.Address = strings.TrimSpace(row[5])
	}
	if len(row) > 6 {
		req.City = strings.TrimSpace(row[6])
	}

	if err := req.Validate(); err != nil {
		return RegistrationRequest{}, err
	}
	return req, nil
}

// ToSheetRow renders the registration as a spreadsheet row in intake order
func (r RegistrationRequest) ToSheetRow() []string {
	return []string{r.FirstName, r.LastName, r.Email, r.Phone, r.Identification, r.Address, r.City}
}

// RegistrationStatus tags the terminal state of a registration run
type RegistrationStatus string

const (
	// StatusExisting means the identification was already registered in Siigo
	StatusExisting RegistrationStatus = "existing"
	// StatusNew means a Siigo customer record was created by this run
	StatusNew RegistrationStatus = "new"
)

// RegistrationOutcome is the per-request result returned to callers and
// written to the log. Not persisted anywhere else.
type RegistrationOutcome struct {
	Status     RegistrationStatus `json:"status"`
	CustomerID string             `json:"siigo_customer_id,omitempty"`
	Message    string             `json:"message,omitempty"`
	// Warning is set when the customer was created but a non-critical follow-up
	// step (the welcome email) failed.
	Warning string `json:"warning,omitempty"`
}

package siigo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/timbale/registration-service/internal/domain"

	"github.com/google/uuid"
)

// CustomerResponse is the Siigo customer record returned on creation and
// lookup. The orchestrator only ever reads the external identifier; the
// record itself is owned by Siigo.
type CustomerResponse struct {
	ID             string   `json:"id"`
	Identification string   `json:"identification"`
	Name           []string `json:"name"`
	CommercialName string   `json:"commercial_name"`
	Phone          string   `json:"phone"`
	Address        string   `json:"address"`
	City           string   `json:"city"`
}

// customerQueryResponse is the envelope of the customer listing endpoint
type customerQueryResponse struct {
	Results []CustomerResponse `json:"results"`
}

// CustomerExists queries Siigo for a customer with the given identification
// number. An empty result set means the customer does not exist; any
// transport or provider error propagates, never a silent false.
func (c *Client) CustomerExists(ctx context.Context, identification, token string) (bool, error) {
	c.log.Debug("Checking Siigo for existing customer %s", identification)

	endpoint := c.baseURL + "/customers?identification=" + url.QueryEscape(identification)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build customer lookup request: %w", err)
	}
	c.createHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("customer lookup failed: %w", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return false, fmt.Errorf("failed to read customer lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, classifyResponse(resp, body)
	}

	var out customerQueryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("malformed customer lookup response: %w", err)
	}

	return len(out.Results) > 0, nil
}

// CreateCustomer creates a customer record in Siigo. One idempotency key is
// generated per logical request and reused on every HTTP retry of it, so a
// retried POST cannot produce a duplicate record on the provider side.
func (c *Client) CreateCustomer(ctx context.Context, reg domain.RegistrationRequest, token string) (*CustomerResponse, error) {
	c.log.Debug("Creating Siigo customer for identification %s", reg.Identification)

	payload, err := json.Marshal(buildCustomerPayload(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal customer payload: %w", err)
	}

	idempotencyKey := uuid.New().String()

	var out CustomerResponse
	err = c.exec.Do(ctx, "create_customer", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customers", bytes.NewReader(payload))
		if err != nil {
			return domain.NewBillingError(0, "failed to build customer creation request", err)
		}
		c.createHeaders(req, token)
		req.Header.Set("idempotency-key", idempotencyKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("customer creation request failed: %w", err)
		}

		body, err := readBody(resp)
		if err != nil {
			return fmt.Errorf("failed to read customer creation response: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return classifyResponse(resp, body)
		}

		if err := json.Unmarshal(body, &out); err != nil {
			return domain.NewBillingError(resp.StatusCode, "malformed customer creation response", err)
		}
		if out.ID == "" {
			return domain.NewBillingError(resp.StatusCode, "customer creation response missing id", nil)
		}
		return nil
	}, domain.ErrServiceUnavailable)
	if err != nil {
		return nil, err
	}

	c.log.Info("Successfully created Siigo customer with ID: %s", out.ID)
	return &out, nil
}

// buildCustomerPayload maps a registration onto the Siigo customer schema.
// id_type 13 is the Colombian cedula de ciudadania.
func buildCustomerPayload(reg domain.RegistrationRequest) map[string]interface{} {
	return map[string]interface{}{
		"type":            "Customer",
		"person_type":     "Person",
		"id_type":         "13",
		"identification":  reg.Identification,
		"name":            []string{reg.FirstName, reg.LastName},
		"commercial_name": reg.FullName(),
		"email":           reg.Email,
		"phone":           reg.Phone,
		"address":         reg.Address,
		"city":            reg.City,
	}
}

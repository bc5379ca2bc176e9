package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/timbale/registration-service/internal/domain"
	"github.com/timbale/registration-service/internal/services"
	"github.com/timbale/registration-service/pkg/logger"
	"github.com/timbale/registration-service/pkg/req"
	"github.com/timbale/registration-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// RegistrationService is the slice of the orchestrator the handlers use
type RegistrationService interface {
	RegisterUser(ctx context.Context, reg domain.RegistrationRequest) (*domain.RegistrationOutcome, error)
	ProcessSheet(ctx context.Context) (services.BatchSummary, error)
}

// RegistrationHandler handles the inbound registration webhooks
type RegistrationHandler struct {
	service RegistrationService
	log     *logger.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(service RegistrationService, log *logger.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		log:     log,
	}
}

// Register handles POST /register and POST /register-from-timbale
func (h *RegistrationHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	requestBody, err := req.Decode[domain.RegistrationRequest](c.Request.Body)
	if err != nil {
		h.log.Errorw("Failed to decode registration payload", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request format", ErrorCode: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	if err := req.IsValid(requestBody); err != nil {
		h.log.Warnw("Registration payload validation failed", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request data", ErrorCode: http.StatusUnprocessableEntity, Details: err.Error()}, http.StatusUnprocessableEntity)
		c.Abort()
		return
	}

	outcome, err := h.service.RegisterUser(ctx, requestBody)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res.JsonResponse(c.Writer, outcome, http.StatusOK)
}

// ProcessSheet handles POST /process-sheet: the batch runs in the background
// and the request is acknowledged immediately.
func (h *RegistrationHandler) ProcessSheet(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())

	go func() {
		if _, err := h.service.ProcessSheet(ctx); err != nil {
			h.log.Errorw("Background sheet processing failed", "error", err)
		}
	}()

	res.JsonResponse(c.Writer, map[string]string{"message": "sheet processing started in background"}, http.StatusAccepted)
}

// writeError maps orchestration errors to HTTP responses: authentication
// failures to 401, Siigo client errors to their own status with the provider
// message, exhausted transports to 503, validation to 422, everything else to
// a generic 500.
func (h *RegistrationHandler) writeError(c *gin.Context, err error) {
	h.log.Errorw("Registration failed", "error", err)

	var billingErr *domain.BillingError

	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Could not authenticate with Siigo API", ErrorCode: http.StatusUnauthorized}, http.StatusUnauthorized)
	case errors.As(err, &billingErr):
		status := billingErr.StatusCode
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Siigo API error: " + billingErr.Message, ErrorCode: status}, status)
	case errors.Is(err, domain.ErrServiceUnavailable):
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Siigo API is unavailable, please retry later", ErrorCode: http.StatusServiceUnavailable}, http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrInvalidInput):
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: err.Error(), ErrorCode: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity)
	default:
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Internal server error", ErrorCode: http.StatusInternalServerError}, http.StatusInternalServerError)
	}
	c.Abort()
}

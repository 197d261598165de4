// AngelaMos | 2026
// handler.go

package otp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/diplomate/backend/internal/core"
)

type SendRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the unauthenticated send endpoint. Verification
// is not exposed on its own: codes are consumed by registration.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/otp/send", h.Send)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	// The code itself never leaves through this response.
	if _, err := h.service.Issue(r.Context(), req.Email); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, map[string]any{"otp_sent": true})
}

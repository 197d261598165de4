// AngelaMos | 2026
// handler.go

package purchase

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/middleware"
)

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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/purchases", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Submit)
		r.Get("/mine", h.ListMine)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/purchases", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/approve", h.Approve)
		r.Post("/{orderID}/reject", h.Reject)
	})
}

// Submit accepts a multipart form: the order fields plus the payment
// proof image under "proof".
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// A little slack over the proof cap for the other form fields.
	if err := r.ParseMultipartForm(int64(h.service.cfg.MaxProofBytes) + 64*1024); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	req := SubmitRequest{
		FolderID:          r.FormValue("folder_id"),
		BuyerName:         r.FormValue("buyer_name"),
		Phone:             r.FormValue("phone"),
		AccountHolderName: r.FormValue("account_holder_name"),
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		core.BadRequest(w, "payment proof image is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only temp file

	order, err := h.service.Submit(
		r.Context(),
		userID,
		req,
		file,
		header.Filename,
		header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToOrderResponse(order))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	orders, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{"purchases": ToOrderResponseList(orders)})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := ListOrdersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Status:   r.URL.Query().Get("status"),
	}

	orders, total, err := h.service.ListOrders(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(
		w,
		ToOrderResponseList(orders),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "purchase")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToOrderResponse(order))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	reviewerID := middleware.GetUserID(r.Context())

	order, err := h.service.Approve(r.Context(), orderID, reviewerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "purchase")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToOrderResponse(order))
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	reviewerID := middleware.GetUserID(r.Context())

	var req RejectRequest
	if r.Body != nil {
		// Empty body means the default reason.
		//nolint:errcheck // absent body falls back to default reason
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	order, err := h.service.Reject(r.Context(), orderID, reviewerID, req.Reason)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "purchase")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToOrderResponse(order))
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

package incidents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vicops/vicops/internal/platform/httpx"
	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
)

// Handler wires incident endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers incident routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIncidentsRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIncidentsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermIncidentsUpdate))
		r.Post("/{id}/resolve", h.resolve)
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

type incidentResponse struct {
	ID          int64     `json:"id"`
	CenterID    int64     `json:"center_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	ReportedBy  int64     `json:"reported_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(in Incident) incidentResponse {
	return incidentResponse{
		ID:          in.ID,
		CenterID:    in.CenterID,
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		Status:      in.Status,
		ReportedBy:  in.ReportedBy,
		CreatedAt:   in.CreatedAt,
		UpdatedAt:   in.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list incidents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]incidentResponse, 0, len(list))
	for _, in := range list {
		out = append(out, toResponse(in))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"incidents":  out,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	in, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get incident", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(in))
}

type createRequest struct {
	CenterID    int64  `json:"center_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Severity    string `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	in, err := h.service.Create(r.Context(), Incident{
		CenterID:    req.CenterID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		ReportedBy:  principal.ID,
	})
	if err != nil {
		h.respondErr(w, "create incident", 0, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(in))
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	in, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		h.respondErr(w, "resolve incident", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(in))
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, id int64, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Int64("incident_id", id), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

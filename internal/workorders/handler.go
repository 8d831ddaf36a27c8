package workorders

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

// Handler wires work order endpoints.
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

// MountRoutes registers work order routes. The status endpoint uses the
// ownership override: the assigned technician may progress their own
// order, everyone else needs work-orders:update.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWorkOrdersRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWorkOrdersCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWorkOrdersUpdate))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireOwnerOr(rbac.ActionWorkOrderProgress, h.assigneeFromPath))
		r.Patch("/{id}/status", h.progress)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWorkOrdersDelete))
		r.Delete("/{id}", h.delete)
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

// assigneeFromPath resolves the work order's assignee for the ownership
// check. An unassigned order resolves to zero, which matches nobody.
func (h *Handler) assigneeFromPath(r *http.Request) (int64, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, err
	}
	return h.service.AssignedTo(r.Context(), id)
}

type workOrderResponse struct {
	ID           int64     `json:"id"`
	CenterID     int64     `json:"center_id"`
	VehiclePlate string    `json:"vehicle_plate"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	AssignedTo   int64     `json:"assigned_to,omitempty"`
	ReportedBy   int64     `json:"reported_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(wo WorkOrder) workOrderResponse {
	return workOrderResponse{
		ID:           wo.ID,
		CenterID:     wo.CenterID,
		VehiclePlate: wo.VehiclePlate,
		Description:  wo.Description,
		Status:       wo.Status,
		AssignedTo:   wo.AssignedTo,
		ReportedBy:   wo.ReportedBy,
		CreatedAt:    wo.CreatedAt,
		UpdatedAt:    wo.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list work orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]workOrderResponse, 0, len(list))
	for _, wo := range list {
		out = append(out, toResponse(wo))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"work_orders": out,
		"pagination":  shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	wo, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, "get work order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(wo))
}

type createRequest struct {
	CenterID     int64  `json:"center_id" validate:"required,gt=0"`
	VehiclePlate string `json:"vehicle_plate" validate:"required"`
	Description  string `json:"description" validate:"required"`
	AssignedTo   int64  `json:"assigned_to"`
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
	wo, err := h.service.Create(r.Context(), WorkOrder{
		CenterID:     req.CenterID,
		VehiclePlate: req.VehiclePlate,
		Description:  req.Description,
		AssignedTo:   req.AssignedTo,
		ReportedBy:   principal.ID,
	})
	if err != nil {
		h.respondErr(w, r, "create work order", 0, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(wo))
}

type updateRequest struct {
	Description string `json:"description" validate:"required"`
	Status      string `json:"status" validate:"required"`
	AssignedTo  int64  `json:"assigned_to"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	wo, err := h.service.Update(r.Context(), WorkOrder{
		ID:          id,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		h.respondErr(w, r, "update work order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(wo))
}

type progressRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req progressRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	wo, err := h.service.Progress(r.Context(), id, req.Status)
	if err != nil {
		h.respondErr(w, r, "progress work order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(wo))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, r, "delete work order", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, id int64, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Int64("work_order_id", id), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

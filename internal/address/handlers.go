package address

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/locale"
)

// Handler exposes one address kind over HTTP. Billing and shipping are
// mounted as two handlers sharing a Service.
type Handler struct {
	Svc    *Service
	Kind   db.AddressKind
	Locale locale.Context
}

// NewHandler constructs a Handler for kind.
func NewHandler(svc *Service, kind db.AddressKind, fallback locale.Context) *Handler {
	return &Handler{Svc: svc, Kind: kind, Locale: fallback}
}

// Routes mounts the address endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
}

func (h *Handler) prelude(w http.ResponseWriter, r *http.Request, withID bool) (uuid.UUID, uuid.UUID, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "address service not configured", nil)
		return uuid.Nil, uuid.Nil, false
	}
	user, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, uuid.Nil, false
	}
	if !withID {
		return user, uuid.Nil, true
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", string(h.Kind)+" address not found", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return user, id, true
}

// List handles GET on the collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.prelude(w, r, false)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	views, total, err := h.Svc.List(r.Context(), user, h.Kind, page, perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Create handles POST on the collection.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.prelude(w, r, false)
	if !ok {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.Create(r.Context(), user, h.Kind, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get handles GET on one address.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.prelude(w, r, true)
	if !ok {
		return
	}
	view, err := h.Svc.Get(r.Context(), user, h.Kind, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Update handles PATCH on one address.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.prelude(w, r, true)
	if !ok {
		return
	}
	var p Patch
	if err := common.DecodeJSON(r, &p); err != nil {
		common.WriteError(w, err)
		return
	}
	lc, found := locale.From(r.Context())
	if !found {
		lc = h.Locale
	}
	view, err := h.Svc.Update(r.Context(), user, h.Kind, id, lc, p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

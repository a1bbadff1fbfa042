package settings

import (
	"net/http"

	"github.com/noah-isme/backend-storefront/internal/common"
)

// Handler exposes the admin settings endpoints.
type Handler struct {
	Svc *Service
}

// Get handles GET /api/v1/admin/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Patch handles PATCH /api/v1/admin/settings.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := common.DecodeJSON(r, &p); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.Update(r.Context(), p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

package geo

import (
	"net/http"

	"github.com/noah-isme/backend-storefront/internal/common"
)

// Handler exposes the public reference data endpoints.
type Handler struct {
	dir *Directory
}

// NewHandler constructs a Handler.
func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

// Countries handles GET /api/v1/countries.
func (h *Handler) Countries(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dir.Snapshot(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap.Countries})
}

// Regions handles GET /api/v1/regions.
func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dir.Snapshot(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap.Regions})
}

// Currencies handles GET /api/v1/currencies.
func (h *Handler) Currencies(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dir.Snapshot(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap.Currencies})
}

// ABOUTME: Profile lookup and viewer menu settings handlers
// ABOUTME: Lookup gathers who a profile's horoscope and details were sent to

package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type menusRequest struct {
	Menus json.RawMessage `json:"menus"`
}

type menusResponse struct {
	Menus []string `json:"menus"`
}

// handleLookup handles GET /api/lookup?id=. With server debug enabled,
// ?debug=1 returns the cause of a server error.
func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		sendJSONError(w, http.StatusBadRequest, "Profile ID required")
		return
	}

	result, err := h.store.Lookup(r.Context(), id)
	if err != nil {
		h.writeErrorDetail(w, r, err, h.debug && q.Get("debug") == "1")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetViewerMenus handles GET /api/settings/viewer-menus. It always
// answers with a list; storage problems yield the defaults.
func (h *Handler) handleGetViewerMenus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, menusResponse{Menus: h.settings.AllowedMenus(r.Context())})
}

// handleSetViewerMenus handles PUT /api/settings/viewer-menus.
func (h *Handler) handleSetViewerMenus(w http.ResponseWriter, r *http.Request) {
	var req menusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var menus []string
	trimmed := strings.TrimSpace(string(req.Menus))
	if !strings.HasPrefix(trimmed, "[") || json.Unmarshal(req.Menus, &menus) != nil {
		sendJSONError(w, http.StatusBadRequest, "menus must be an array")
		return
	}

	if err := h.settings.SetAllowedMenus(r.Context(), menus); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w)
}

// Package http exposes the whitelist service as a JSON API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/milsim-hq/rosterd/internal/observability"
	"github.com/milsim-hq/rosterd/internal/platform/httpx"
	"github.com/milsim-hq/rosterd/internal/roles"
	"github.com/milsim-hq/rosterd/internal/whitelist"
)

// Handler wires HTTP endpoints for whitelist management.
type Handler struct {
	logger   *slog.Logger
	service  *whitelist.Service
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *whitelist.Service, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers whitelist routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAll)
	r.Get("/roles", h.listRoles)
	r.Get("/{role}", h.listRole)
	r.Post("/{role}", h.add)
	r.Delete("/{role}/{steamUID}", h.remove)
}

type roleResponse struct {
	Role        string   `json:"role"`
	Description string   `json:"description,omitempty"`
	SteamUIDs   []string `json:"steam_uids"`
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list whitelist", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(h.service.Roles()))
	for _, role := range h.service.Roles() {
		out = append(out, roleResponse{
			Role:        role.Code,
			Description: role.Description,
			SteamUIDs:   doc.IDs(role.Code),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	type roleInfo struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	roles := h.service.Roles()
	out := make([]roleInfo, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleInfo{Code: role.Code, Description: role.Description})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) listRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	force := r.URL.Query().Get("refresh") == "1"
	ids, err := h.service.List(r.Context(), role, force)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: role, SteamUIDs: ids})
}

type addRequest struct {
	SteamUID   string `json:"steam_uid" validate:"required,numeric"`
	PlayerName string `json:"player_name" validate:"max=100"`
	Notes      string `json:"notes" validate:"max=500"`
	AddedBy    string `json:"added_by" validate:"max=100"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role := chi.URLParam(r, "role")
	meta := whitelist.Meta{Actor: req.AddedBy, PlayerName: req.PlayerName, Notes: req.Notes}
	if err := h.service.Add(r.Context(), role, req.SteamUID, meta); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordMutation(roles.Normalize(role), "add")
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"role":      role,
		"steam_uid": req.SteamUID,
		"status":    "whitelisted",
	})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	uid := chi.URLParam(r, "steamUID")
	meta := whitelist.Meta{Actor: r.URL.Query().Get("performed_by")}
	if err := h.service.Remove(r.Context(), role, uid, meta); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordMutation(roles.Normalize(role), "remove")
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":      role,
		"steam_uid": uid,
		"status":    "removed",
	})
}

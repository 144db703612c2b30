package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

type settingsView struct {
	Settings     domain.ChatSettings `json:"settings"`
	Theme        domain.Theme        `json:"theme"`
	SidebarWidth int                 `json:"sidebar_width"`
}

func (rt *Router) getSettings(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Settings == nil {
		unavailable(w, "settings")
		return
	}
	ctx := r.Context()
	settings, err := rt.svc.Settings.Settings(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	theme, err := rt.svc.Settings.Theme(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	width, err := rt.svc.Settings.SidebarWidth(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsView{Settings: settings, Theme: theme, SidebarWidth: width})
}

func (rt *Router) updateSettings(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Settings == nil {
		unavailable(w, "settings")
		return
	}
	var body domain.ChatSettings
	if err := decodeValidate(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := rt.svc.Settings.Update(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (rt *Router) toggleTheme(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Settings == nil {
		unavailable(w, "settings")
		return
	}
	theme, err := rt.svc.Settings.ToggleTheme(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Theme{"theme": theme})
}

type sidebarWidthBody struct {
	Width int `json:"width" validate:"required"`
}

func (rt *Router) setSidebarWidth(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Settings == nil {
		unavailable(w, "settings")
		return
	}
	var body sidebarWidthBody
	if err := decodeValidate(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	width, err := rt.svc.Settings.SetSidebarWidth(r.Context(), body.Width)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"width": width})
}

type modelsView struct {
	domain.ModelList
	SelectedModel string `json:"selected_model,omitempty"`
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Models == nil {
		unavailable(w, "models")
		return
	}
	list := rt.svc.Models.List(r.Context())
	view := modelsView{ModelList: list}
	if len(list.Models) > 0 {
		selected, err := rt.svc.Models.EnsureSelected(r.Context(), list.Models)
		if err != nil {
			slog.Warn("model_selection_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		view.SelectedModel = selected
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) generateImage(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Images == nil {
		unavailable(w, "image generation")
		return
	}
	var req domain.ImageRequest
	if err := decodeValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := rt.svc.Images.Generate(r.Context(), req)
	if rt.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		rt.metrics.RecordImageRequest(rt.metrics.Service(), string(req.Provider), status)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/kirillkom/local-ai-chat/internal/config"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
	"github.com/kirillkom/local-ai-chat/internal/observability/metrics"
)

// Services groups the inbound ports the router dispatches to. Nil services
// leave their routes answering 503.
type Services struct {
	Processor     ports.DocumentProcessor
	Uploads       ports.FileUploader
	Conversations ports.ConversationService
	Chat          ports.ChatService
	Titles        ports.TitleService
	Models        ports.ModelCatalog
	Settings      ports.SettingsService
	Images        ports.ImageService
}

type Router struct {
	cfg     config.Config
	svc     Services
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, svc Services, m *metrics.HTTPServerMetrics) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.Defaults().MaxUploadBytes
	}
	return &Router{cfg: cfg, svc: svc, metrics: m}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /api/process-file", rt.processFile)
	mux.HandleFunc("POST /api/chat", rt.relayChat)
	mux.HandleFunc("GET /api/models", rt.listModels)
	mux.HandleFunc("POST /api/summarize", rt.summarize)
	mux.HandleFunc("POST /api/generate-image", rt.generateImage)

	mux.HandleFunc("GET /v1/conversations", rt.listConversations)
	mux.HandleFunc("POST /v1/conversations", rt.createConversation)
	mux.HandleFunc("GET /v1/conversations/{id}", rt.getConversation)
	mux.HandleFunc("DELETE /v1/conversations/{id}", rt.deleteConversation)
	mux.HandleFunc("PUT /v1/conversations/{id}/messages", rt.saveMessages)
	mux.HandleFunc("POST /v1/conversations/{id}/chat", rt.sendMessage)
	mux.HandleFunc("POST /v1/conversations/{id}/title", rt.retitle)
	mux.HandleFunc("GET /v1/conversations/{id}/files", rt.listFiles)
	mux.HandleFunc("POST /v1/conversations/{id}/files", rt.uploadFiles)
	mux.HandleFunc("DELETE /v1/conversations/{id}/files", rt.clearFiles)
	mux.HandleFunc("DELETE /v1/conversations/{id}/files/{fileID}", rt.removeFile)

	mux.HandleFunc("GET /v1/settings", rt.getSettings)
	mux.HandleFunc("PUT /v1/settings", rt.updateSettings)
	mux.HandleFunc("POST /v1/settings/theme/toggle", rt.toggleTheme)
	mux.HandleFunc("PUT /v1/settings/sidebar-width", rt.setSidebarWidth)

	var onRateLimited, onOverload func()
	if rt.metrics != nil {
		onRateLimited = rt.metrics.RecordRateLimited
		onOverload = rt.metrics.RecordBackpressureReject
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait, onOverload)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onRateLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.metrics.Service(), handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func unavailable(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: what + " is not configured"})
}

package httpadapter

import (
	"net/http"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func (rt *Router) listConversations(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Conversations == nil {
		unavailable(w, "conversations")
		return
	}
	items, err := rt.svc.Conversations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}

type createConversationBody struct {
	Model string `json:"model"`
}

func (rt *Router) createConversation(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Conversations == nil {
		unavailable(w, "conversations")
		return
	}
	var body createConversationBody
	if r.ContentLength != 0 {
		if err := decodeValidate(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	conv, err := rt.svc.Conversations.Create(r.Context(), body.Model)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (rt *Router) getConversation(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Conversations == nil {
		unavailable(w, "conversations")
		return
	}
	conv, err := rt.svc.Conversations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (rt *Router) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Conversations == nil {
		unavailable(w, "conversations")
		return
	}
	if err := rt.svc.Conversations.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveMessagesBody struct {
	Messages []domain.Message `json:"messages" validate:"dive"`
}

func (rt *Router) saveMessages(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Conversations == nil {
		unavailable(w, "conversations")
		return
	}
	var body saveMessagesBody
	if err := decodeValidate(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := rt.svc.Conversations.SaveMessages(r.Context(), r.PathValue("id"), body.Messages)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (rt *Router) retitle(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Titles == nil {
		unavailable(w, "titles")
		return
	}
	title, err := rt.svc.Titles.Retitle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

type summarizeBody struct {
	Messages []domain.Message `json:"messages" validate:"dive"`
}

func (rt *Router) summarize(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Titles == nil {
		unavailable(w, "titles")
		return
	}
	var body summarizeBody
	if err := decodeValidate(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": rt.svc.Titles.Summarize(r.Context(), body.Messages)})
}

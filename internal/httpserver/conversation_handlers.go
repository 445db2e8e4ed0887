package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/config"
	"worklink/internal/domain"
	"worklink/internal/service"
)

type conversationCreateRequest struct {
	ParticipantID string `json:"participant_id"`
}

func handleCreateConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		var req conversationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ParticipantID == "" {
			writeError(w, fmt.Errorf("participant_id is required: %w", domain.ErrInvalidInput))
			return
		}

		conv, err := convSvc.GetOrCreateDirect(r.Context(), principal.ID, req.ParticipantID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}

func handleListConversations(convSvc *service.ConversationService, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		page := parsePage(r, cfg.DefaultPageSize, cfg.MaxPageSize)
		views, total, err := convSvc.ListForParticipant(r.Context(), principal.ID, page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newPageResponse(views, len(views), page, total))
	}
}

func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		id, err := objectIDParam(r, "conversationID")
		if err != nil {
			writeError(w, err)
			return
		}
		conv, err := convSvc.GetForParticipant(r.Context(), id, principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleMarkConversationRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		id, err := objectIDParam(r, "conversationID")
		if err != nil {
			writeError(w, err)
			return
		}
		marked, err := msgSvc.MarkConversationRead(r.Context(), id, principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"marked": marked})
	}
}

func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s: %w", name, domain.ErrInvalidInput)
	}
	return id, nil
}

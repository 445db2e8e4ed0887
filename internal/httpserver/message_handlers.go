package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/config"
	"worklink/internal/domain"
	"worklink/internal/service"
)

type messageCreateRequest struct {
	Content     string              `json:"content"`
	MessageType string              `json:"message_type"`
	ReplyTo     string              `json:"reply_to,omitempty"`
	SharedPost  string              `json:"shared_post,omitempty"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

func handleSendMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		convID, err := objectIDParam(r, "conversationID")
		if err != nil {
			writeError(w, err)
			return
		}
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("invalid JSON body: %w", domain.ErrInvalidInput))
			return
		}

		in := service.SendInput{
			ConversationID: convID,
			Content:        req.Content,
			MessageType:    domain.MessageType(req.MessageType),
			SharedPost:     req.SharedPost,
			Attachments:    req.Attachments,
		}
		if req.ReplyTo != "" {
			replyTo, err := primitive.ObjectIDFromHex(req.ReplyTo)
			if err != nil {
				writeError(w, fmt.Errorf("invalid reply_to: %w", domain.ErrInvalidInput))
				return
			}
			in.ReplyTo = &replyTo
		}

		msg, err := msgSvc.Send(r.Context(), in, principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleListMessages(msgSvc *service.MessageService, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		convID, err := objectIDParam(r, "conversationID")
		if err != nil {
			writeError(w, err)
			return
		}
		page := parsePage(r, cfg.DefaultPageSize, cfg.MaxPageSize)
		msgs, total, err := msgSvc.ViewConversation(r.Context(), convID, principal.ID, page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newPageResponse(msgs, len(msgs), page, total))
	}
}

type messageEditRequest struct {
	Content string `json:"content"`
}

func handleEditMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		msgID, err := objectIDParam(r, "messageID")
		if err != nil {
			writeError(w, err)
			return
		}
		var req messageEditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("invalid JSON body: %w", domain.ErrInvalidInput))
			return
		}

		msg, err := msgSvc.Edit(r.Context(), msgID, principal.ID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		msgID, err := objectIDParam(r, "messageID")
		if err != nil {
			writeError(w, err)
			return
		}
		if err := msgSvc.SoftDelete(r.Context(), msgID, principal.ID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleGlobalUnreadCount(reads *service.ReadStateTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		count, err := reads.GlobalUnreadCount(r.Context(), principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
	}
}

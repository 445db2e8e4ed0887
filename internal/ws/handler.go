package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"worklink/internal/domain"
	"worklink/internal/security"
	"worklink/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// extractToken pulls the bearer token from the Authorization header or, for
// browser clients that cannot set headers on the upgrade, from the
// Sec-WebSocket-Protocol list ("bearer, <token>").
func extractToken(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1], nil
		}
	}

	return "", fmt.Errorf("missing bearer token")
}

// MakeHandler returns the HTTP handler for the /ws endpoint. Authenticates
// the principal, registers the socket in the hub and dispatches inbound
// events:
//   - message   -> persist & fan out new_message to other participants
//   - mark_read -> idempotent mark-read + messageRead to the reader
//   - typing    -> forwarded to other participants, never persisted
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
	log *zap.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin:  checkOrigin,
		Subprotocols: []string{"bearer"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		principal, err := security.PrincipalFromClaims(claims)
		if err != nil {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx := r.Context()
		connID := hub.Register(principal.ID, conn)
		defer func() {
			hub.Unregister(principal.ID, connID)
			if !hub.Online(principal.ID) {
				hub.BroadcastToAll("user_offline", map[string]any{"principal_id": principal.ID})
			}
		}()
		hub.BroadcastToAll("user_online", map[string]any{"principal_id": principal.ID})

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			eventType, _ := payload["type"].(string)
			switch eventType {

			case "message":
				convID, ok := conversationID(payload)
				if !ok {
					sendError(conn, "message requires a valid conversation_id")
					continue
				}
				content, _ := payload["content"].(string)
				msgType, _ := payload["message_type"].(string)
				_, err := msgSvc.Send(ctx, service.SendInput{
					ConversationID: convID,
					Content:        content,
					MessageType:    domain.MessageType(msgType),
				}, principal.ID)
				if err != nil {
					log.Warn("ws send failed", zap.String("principal", principal.ID), zap.Error(err))
					sendError(conn, "failed to send message")
				}

			case "mark_read":
				convID, ok := conversationID(payload)
				if !ok {
					continue
				}
				if _, err := msgSvc.MarkConversationRead(ctx, convID, principal.ID); err != nil {
					log.Warn("ws mark_read failed", zap.String("principal", principal.ID), zap.Error(err))
					sendError(conn, "failed to mark messages as read")
				}

			case "typing":
				convID, ok := conversationID(payload)
				if !ok {
					continue
				}
				conv, err := convSvc.GetForParticipant(ctx, convID, principal.ID)
				if err != nil {
					sendError(conn, "not allowed for this conversation")
					continue
				}
				for _, p := range conv.Participants {
					if p == principal.ID {
						continue
					}
					hub.SendToPrincipal(p, "typing", map[string]any{
						"conversation_id": convID.Hex(),
						"principal_id":    principal.ID,
					})
				}

			default:
				log.Debug("unknown ws event", zap.String("event", eventType), zap.String("principal", principal.ID))
			}
		}
	}
}

func conversationID(payload map[string]any) (primitive.ObjectID, bool) {
	hex, _ := payload["conversation_id"].(string)
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(map[string]any{
		"type":  "error",
		"error": msg,
	})
}

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"worklink/internal/config"
	"worklink/internal/security"
	"worklink/internal/service"
	mongostore "worklink/internal/store/mongo"
	"worklink/internal/ws"
)

// NewRouter constructs the main HTTP router and wires repositories, services
// and middleware.
func NewRouter(cfg *config.Config, db *mongo.Database, hub *ws.Hub, tokens *security.TokenService, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	convRepo := mongostore.NewConversationRepo(db)
	msgRepo := mongostore.NewMessageRepo(db)
	connRepo := mongostore.NewConnectionRepo(db)

	// Services
	gate := service.NewConnectionGate(connRepo)
	connSvc := service.NewConnectionService(connRepo)
	reads := service.NewReadStateTracker(convRepo, msgRepo)
	broadcaster := service.NewBroadcaster(hub, log)
	convSvc := service.NewConversationService(convRepo, msgRepo, gate)
	msgSvc := service.NewMessageService(convRepo, msgRepo, reads, broadcaster, log)

	sendLimiter := newLimiterPool(cfg.SendRatePerSecond, cfg.SendBurst)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", handleCreateConversation(convSvc))
			r.Get("/", handleListConversations(convSvc, cfg))
			r.Get("/{conversationID}", handleGetConversation(convSvc))
			r.Post("/{conversationID}/read", handleMarkConversationRead(msgSvc))
			r.Get("/{conversationID}/messages", handleListMessages(msgSvc, cfg))
			r.With(sendRateLimit(sendLimiter)).Post("/{conversationID}/messages", handleSendMessage(msgSvc))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/unread-count", handleGlobalUnreadCount(reads))
			r.Patch("/{messageID}", handleEditMessage(msgSvc))
			r.Delete("/{messageID}", handleDeleteMessage(msgSvc))
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", handleListConnections(connSvc, cfg))
			r.Get("/mutual/{otherID}", handleMutualConnections(gate))
			r.Post("/{recipientID}", handleRequestConnection(connSvc))
			r.Put("/{connectionID}/accept", handleRespondConnection(connSvc, true))
			r.Put("/{connectionID}/decline", handleRespondConnection(connSvc, false))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokens, convSvc, msgSvc, cfg.CORSOrigins, log))

	return r
}

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"worklink/internal/config"
	"worklink/internal/service"
)

func handleRequestConnection(connSvc *service.ConnectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		recipientID := chi.URLParam(r, "recipientID")

		conn, err := connSvc.Request(r.Context(), principal.ID, recipientID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conn)
	}
}

func handleRespondConnection(connSvc *service.ConnectionService, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		id, err := objectIDParam(r, "connectionID")
		if err != nil {
			writeError(w, err)
			return
		}

		conn, err := connSvc.Respond(r.Context(), id, principal.ID, accept)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conn)
	}
}

func handleListConnections(connSvc *service.ConnectionService, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		page := parsePage(r, cfg.DefaultPageSize, cfg.MaxPageSize)
		conns, total, err := connSvc.ListAccepted(r.Context(), principal.ID, page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newPageResponse(conns, len(conns), page, total))
	}
}

func handleMutualConnections(gate *service.ConnectionGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentPrincipal(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{Code: "unauthorized", Message: "unauthorized"}})
			return
		}
		otherID := chi.URLParam(r, "otherID")

		mutual, err := gate.MutualConnections(r.Context(), principal.ID, otherID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"mutual_connections": mutual,
			"count":              len(mutual),
		})
	}
}

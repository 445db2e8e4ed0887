package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"worklink/internal/domain"
)

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorInfo `json:"error"`
}

// writeJSON sends a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Internal
// failures are reported generically; nothing from the storage layer leaks.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrNotConnected):
		status, code = http.StatusForbidden, "not_connected"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrGone):
		status, code = http.StatusGone, "gone"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorInfo{
			Code:    "internal",
			Message: "internal server error",
		}})
		return
	}
	writeJSON(w, status, errorBody{Error: errorInfo{Code: code, Message: err.Error()}})
}

// pageResponse is the envelope every list endpoint returns.
type pageResponse struct {
	Items       any   `json:"items"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	HasMore     bool  `json:"has_more"`
}

func newPageResponse(items any, itemCount int, page domain.Page, total int64) pageResponse {
	totalPages := 0
	if page.Size > 0 {
		totalPages = int((total + int64(page.Size) - 1) / int64(page.Size))
	}
	return pageResponse{
		Items:       items,
		CurrentPage: page.Number,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasMore:     int64(page.Skip()+itemCount) < total,
	}
}

// parsePage reads ?page and ?page_size with defaults and an upper bound.
func parsePage(r *http.Request, defaultSize, maxSize int) domain.Page {
	page := domain.Page{Number: 1, Size: defaultSize}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			page.Number = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			page.Size = n
		}
	}
	if page.Size > maxSize {
		page.Size = maxSize
	}
	return page
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bitway/bitway-api/internal/api/middleware"
	"github.com/bitway/bitway-api/internal/api/problem"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = middleware.MaxBodyBytes

// RespondJSON writes a success envelope.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	problem.OK(w, r, status, message, data)
}

// RespondError writes an error envelope.
func RespondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	problem.Write(w, r, status, code, message, nil)
}

// RespondServiceError maps a service error onto the envelope.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	problem.FromError(w, r, err)
}

// decodeJSON reads a JSON body into dst. It answers 400 itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Request body is required")
			return false
		}
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return false
	}
	return true
}

func requestActor(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return middleware.Principal{}, false
	}
	return p, true
}

func parseUUID(w http.ResponseWriter, r *http.Request, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-"+field, "Invalid "+field)
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	return parseUUID(w, r, chi.URLParam(r, name), name)
}

// pagination reads page and perPage, falling back to per_page.
func pagination(r *http.Request) (page, perPage int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	perPageRaw := q.Get("perPage")
	if perPageRaw == "" {
		perPageRaw = q.Get("per_page")
	}
	perPage, _ = strconv.Atoi(perPageRaw)
	return page, perPage
}

func requestKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

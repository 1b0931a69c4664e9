package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grattia/grattia-backend/api/middleware"
	pkgerrors "github.com/grattia/grattia-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	return parseContextUUID(middleware.UserIDFromContext(r.Context()), "user scope missing")
}

func currentCompanyID(r *http.Request) (uuid.UUID, error) {
	return parseContextUUID(middleware.CompanyIDFromContext(r.Context()), "company scope missing")
}

func currentProfileID(r *http.Request) (uuid.UUID, error) {
	return parseContextUUID(middleware.ProfileIDFromContext(r.Context()), "membership scope missing")
}

func parseContextUUID(raw, missingMsg string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, missingMsg)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "malformed token scope")
	}
	return id, nil
}

func pathParam(r *http.Request, param string) string {
	return chi.URLParam(r, param)
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": param})
	}
	return id, nil
}

// clientIP extracts the caller address, trusting the load balancer headers
// when present.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

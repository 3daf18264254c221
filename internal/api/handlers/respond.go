package handlers

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
)

func respondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to write response")
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	respondWithJSON(w, r, statusCode, map[string]string{
		"error": message,
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// retryAfterSeconds rounds d up to whole seconds. A blocked client never sees 0.
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

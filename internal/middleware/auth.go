package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choreboard/internal/apperr"
	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/model"
)

const (
	SensorIDHeader  = "X-Sensor-ID"
	SensorKeyHeader = "X-Sensor-Key"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// SensorLookup loads a registered sensor. *store.SensorStore satisfies it.
type SensorLookup interface {
	GetByID(ctx context.Context, id string) (*model.Sensor, error)
}

// MembershipResolver returns the household a user belongs to.
type MembershipResolver interface {
	MemberOf(ctx context.Context, userID string) (string, error)
}

// RequireUser verifies the bearer token and puts the caller's user id in
// the request's AuthContext.
func RequireUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, withCaller(r, auth.AuthContext{UserID: userID}))
		})
	}
}

// RequireSensor authenticates a sensor by id and key and scopes the request
// to the sensor's household.
func RequireSensor(sensors SensorLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SensorIDHeader)
			key := r.Header.Get(SensorKeyHeader)
			if id == "" || key == "" {
				unauthorized(w)
				return
			}

			sn, err := sensors.GetByID(r.Context(), id)
			if err != nil {
				logger.Error("failed to load sensor", "sensor_id", id, "error", err)
				http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				return
			}
			if sn == nil || !auth.CheckSensorKey(sn.KeyHash, key) {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, withCaller(r, auth.AuthContext{SensorID: sn.ID, HouseholdID: sn.HouseholdID}))
		})
	}
}

// RequireMember allows the request only if the authenticated user belongs
// to the household named by the {id} path value.
func RequireMember(members MembershipResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || ac.UserID == "" {
				unauthorized(w)
				return
			}

			householdID, err := members.MemberOf(r.Context(), ac.UserID)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			case err != nil:
				logger.Error("failed to resolve membership", "user", ac.UserID, "error", err)
				http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				return
			}
			if householdID != r.PathValue("id") {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			ac.HouseholdID = householdID
			next.ServeHTTP(w, withCaller(r, ac))
		})
	}
}

// UserKey keys rate limits by the authenticated user, falling back to the
// client address.
func UserKey(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + RealIP(r)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

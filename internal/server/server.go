package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choreboard/internal/auth"
	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/handler"
	"github.com/dukerupert/choreboard/internal/household"
	"github.com/dukerupert/choreboard/internal/middleware"
	"github.com/dukerupert/choreboard/internal/shopping"
	"github.com/dukerupert/choreboard/internal/stats"
	"github.com/dukerupert/choreboard/internal/store"
	ws "github.com/dukerupert/choreboard/internal/websocket"
)

// Options holds the transport settings the server needs.
type Options struct {
	JWTSecret      []byte
	JWTIssuer      string
	JoinLimit      int
	JoinWindow     time.Duration
	AllowedOrigins []string
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	registry    *household.Registry
	householdH  *handler.HouseholdHandler
	choreH      *handler.ChoreHandler
	statsH      *handler.StatsHandler
	shoppingH   *handler.ShoppingHandler
	sensorH     *handler.SensorHandler
	sensorStore *store.SensorStore
	verifier    *auth.TokenVerifier
	joinLimiter *middleware.RateLimiter
	opts        Options
	logger      *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	userStore := store.NewUserStore(db)
	choreStore := store.NewChoreStore(db)
	shoppingStore := store.NewShoppingStore(db)
	sensorStore := store.NewSensorStore(db)

	registry := household.NewRegistry(householdStore, userStore, logger)
	manager := chore.NewManager(choreStore, householdStore, logger)
	aggregator := stats.NewAggregator(householdStore, choreStore)
	list := shopping.NewList(shoppingStore, householdStore, logger)

	httpLogger := logger.With("component", "http")

	return &Server{
		db:          db,
		hub:         hub,
		registry:    registry,
		householdH:  handler.NewHouseholdHandler(registry, hub, httpLogger),
		choreH:      handler.NewChoreHandler(manager, hub, httpLogger),
		statsH:      handler.NewStatsHandler(aggregator, httpLogger),
		shoppingH:   handler.NewShoppingHandler(list, hub, httpLogger),
		sensorH:     handler.NewSensorHandler(sensorStore, httpLogger),
		sensorStore: sensorStore,
		verifier:    auth.NewTokenVerifier(opts.JWTSecret, opts.JWTIssuer),
		joinLimiter: middleware.NewRateLimiter(opts.JoinLimit, opts.JoinWindow),
		opts:        opts,
		logger:      logger,
	}
}

// RateLimiter returns the join rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.joinLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Sensor routes, authenticated by sensor key
	sensorMux := http.NewServeMux()
	sensorMux.HandleFunc("POST /api/sensor/chores", s.choreH.SensorCreate)
	sensorMux.HandleFunc("POST /api/sensor/shopping", s.shoppingH.SensorAdd)
	outerMux.Handle("/api/sensor/", middleware.RequireSensor(s.sensorStore, s.logger)(sensorMux))

	// Everything else needs a user token
	userMux := http.NewServeMux()
	s.registerUserRoutes(userMux)
	outerMux.Handle("/", middleware.RequireUser(s.verifier)(userMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// member restricts a household route to members of that household.
func (s *Server) member(h http.HandlerFunc) http.Handler {
	return middleware.RequireMember(s.registry, s.logger)(h)
}

func (s *Server) registerUserRoutes(mux *http.ServeMux) {
	// Member record
	mux.HandleFunc("GET /api/me", s.householdH.GetMe)
	mux.HandleFunc("PUT /api/me", s.householdH.UpdateMe)

	// Households
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.Handle("POST /api/households/join",
		middleware.RateLimit(s.joinLimiter, middleware.UserKey)(http.HandlerFunc(s.householdH.Join)))
	mux.Handle("GET /api/households/{id}", s.member(s.householdH.Get))

	// Chores
	mux.Handle("GET /api/households/{id}/chores", s.member(s.choreH.List))
	mux.Handle("GET /api/households/{id}/chores/board", s.member(s.choreH.Board))
	mux.Handle("POST /api/households/{id}/chores", s.member(s.choreH.Create))
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)

	// Stats
	mux.Handle("GET /api/households/{id}/stats", s.member(s.statsH.Get))

	// Shopping list
	mux.Handle("GET /api/households/{id}/shopping", s.member(s.shoppingH.List))
	mux.Handle("POST /api/households/{id}/shopping", s.member(s.shoppingH.Add))
	mux.Handle("DELETE /api/households/{id}/shopping/{itemId}", s.member(s.shoppingH.Remove))

	// Sensors
	mux.Handle("GET /api/households/{id}/sensors", s.member(s.sensorH.List))
	mux.Handle("POST /api/households/{id}/sensors", s.member(s.sensorH.Register))
	mux.Handle("DELETE /api/households/{id}/sensors/{sensorId}", s.member(s.sensorH.Delete))

	// Change feed
	mux.Handle("GET /api/households/{id}/ws",
		s.member(ws.HandleWebSocket(s.hub, s.opts.AllowedOrigins, s.logger.With("component", "websocket"))))
}

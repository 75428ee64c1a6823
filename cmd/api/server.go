package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"estateflow/agent"
	"estateflow/auth"
	"estateflow/property"
	"estateflow/report"
	"estateflow/user"
)

type ctxKey string

const (
	ctxKeyUserID    ctxKey = "user_id"
	ctxKeyRole      ctxKey = "role"
	ctxKeyRequestID ctxKey = "request_id"
)

type userService interface {
	Create(ctx context.Context, params user.CreateParams) (user.User, error)
	Update(ctx context.Context, id int64, params user.UpdateParams) (user.User, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

type agentService interface {
	Create(ctx context.Context, params agent.CreateParams) (agent.Agent, error)
	Update(ctx context.Context, id int64, params agent.UpdateParams) (agent.Agent, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]agent.Agent, error)
}

type propertyService interface {
	Create(ctx context.Context, params property.CreateParams) (property.Property, error)
	Update(ctx context.Context, id int64, params property.UpdateParams) (property.Property, error)
	UpdateStatus(ctx context.Context, id int64, status property.Status) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]property.Property, error)
	AvailableByCity(ctx context.Context, city string) ([]property.Property, error)
	CheckPrice(ctx context.Context, id int64) (float64, error)
}

type reportService interface {
	TotalSales(ctx context.Context, agentID int64) (float64, error)
	TotalCommission(ctx context.Context, agentID int64) (float64, error)
}

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Account, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (int64, string, error)
}

// Server wires the domain services to the HTTP surface.
type Server struct {
	users       userService
	agents      agentService
	properties  propertyService
	reports     reportService
	auth        authService
	requireAuth bool
}

// Routes builds the request multiplexer with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)

	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.Handle("POST /add_user", s.mutating(s.handleAddUser))
	mux.Handle("PUT /update_user/{id}", s.mutating(s.handleUpdateUser))
	mux.Handle("DELETE /delete_user/{id}", s.destructive(s.handleDeleteUser))

	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.Handle("POST /add_agent", s.mutating(s.handleAddAgent))
	mux.Handle("PUT /update_agent/{id}", s.mutating(s.handleUpdateAgent))
	mux.Handle("DELETE /delete_agent/{id}", s.destructive(s.handleDeleteAgent))

	mux.HandleFunc("GET /properties", s.handleListProperties)
	mux.Handle("POST /add_property", s.mutating(s.handleAddProperty))
	mux.Handle("PUT /update_property/{id}", s.mutating(s.handleUpdateProperty))
	mux.Handle("PUT /update_property_status/{id}", s.mutating(s.handleUpdatePropertyStatus))
	mux.Handle("DELETE /delete_property/{id}", s.destructive(s.handleDeleteProperty))

	mux.HandleFunc("GET /available_properties/{city}", s.handleAvailableProperties)
	mux.HandleFunc("GET /check_property/{id}", s.handleCheckProperty)

	mux.HandleFunc("GET /calc_total_sales/{agent_id}", s.handleTotalSales)
	mux.HandleFunc("GET /get_total_commission/{agent_id}", s.handleTotalCommission)

	return s.withRequestLog(mux)
}

// withRequestLog tags every request with a generated id and logs the outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, requestID)))
		log.Printf("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(start), requestID)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// mutating guards create/update endpoints: any authenticated account when
// AUTH_REQUIRED is on, open otherwise.
func (s *Server) mutating(next http.HandlerFunc) http.Handler {
	return s.authenticate(next, false)
}

// destructive guards delete endpoints: admin-only when AUTH_REQUIRED is on.
func (s *Server) destructive(next http.HandlerFunc) http.Handler {
	return s.authenticate(next, true)
}

func (s *Server) authenticate(next http.HandlerFunc, adminOnly bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAuth {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, role, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if adminOnly && role != "admin" {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyRole, role)
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Real Estate DBMS API is running!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses:
// missing entities and duplicates are distinguishable client faults, failed
// validation is a bad request, anything else is a server fault.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, agent.ErrNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, property.ErrAgentNotFound),
		errors.Is(err, report.ErrAgentNotFound),
		errors.Is(err, auth.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrDuplicateUsername),
		errors.Is(err, agent.ErrDuplicateAgent),
		errors.Is(err, agent.ErrDuplicateUsername),
		errors.Is(err, auth.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, agent.ErrInvalidInput),
		errors.Is(err, property.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

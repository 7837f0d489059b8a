// Package devserver is an in-memory implementation of the xydo REST API for
// local development and end-to-end tests of the client.
package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"xydo.org/internal/auth"
	"xydo.org/internal/obs"
)

const issuer = "xydo-devserver"

// Options configures a Server.
type Options struct {
	Version  string
	Secret   string
	TokenTTL time.Duration
	// RequireVerification refuses logins of unverified accounts and stops
	// registration from signing the new user in.
	RequireVerification bool
	RateBurst           int
	RatePerSecond       float64
}

// Server is the HTTP layer over a Directory.
type Server struct {
	mux    *http.ServeMux
	dir    *Directory
	signer *auth.Signer
	opts   Options
}

func New(dir *Directory, opts Options) (*Server, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	signer, err := auth.NewSigner(opts.Secret, issuer, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	s := &Server{
		mux:    http.NewServeMux(),
		dir:    dir,
		signer: signer,
		opts:   opts,
	}
	s.routes()
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.opts.RatePerSecond > 0 && s.opts.RateBurst > 0 {
		h = RateLimit(h, s.opts.RateBurst, s.opts.RatePerSecond)
	}
	h = CORS(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.Handle("GET /metrics", obs.Handler())

	s.mux.HandleFunc("POST /api/auth/register", s.register)
	s.mux.HandleFunc("POST /api/auth/login", s.login)
	s.mux.HandleFunc("GET /api/auth/logout", s.logout)
	s.mux.Handle("GET /api/auth/me", s.authed(s.me))
	s.mux.HandleFunc("POST /api/auth/verify", s.verify)

	s.mux.Handle("GET /api/users", s.authed(s.listUsers, auth.RoleAdmin, auth.RoleCoach))
	s.mux.Handle("GET /api/users/{id}", s.authed(s.getUser))
	s.mux.Handle("PUT /api/users/{id}", s.authed(s.updateUser))
	s.mux.Handle("DELETE /api/users/{id}", s.authed(s.deleteUser, auth.RoleAdmin))

	staff := []auth.Role{auth.RoleCoach, auth.RoleAdmin}
	for _, c := range []string{Teams, Content, Videos, Messages} {
		writers := staff
		if c == Messages {
			writers = nil
		}
		s.mux.Handle("GET /api/"+c, s.authed(s.listDocs(c)))
		s.mux.Handle("GET /api/"+c+"/{id}", s.authed(s.getDoc(c)))
		s.mux.Handle("POST /api/"+c, s.authed(s.createDoc(c), writers...))
		s.mux.Handle("PUT /api/"+c+"/{id}", s.authed(s.updateDoc(c), writers...))
		s.mux.Handle("DELETE /api/"+c+"/{id}", s.authed(s.deleteDoc(c), writers...))
	}
	s.mux.Handle("POST /api/messages/{id}/reply", s.authed(s.replyMessage))
	s.mux.Handle("POST /api/messages/{id}/like", s.authed(s.likeMessage))
	s.mux.Handle("PUT /api/messages/{id}/pin", s.authed(s.pinMessage, staff...))

	s.mux.Handle("POST /api/feedback", s.authed(s.createDoc(Feedback)))
	s.mux.Handle("GET /api/feedback", s.authed(s.listDocs(Feedback), staff...))

	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Route not found")
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": issuer,
		"version": s.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// envelope is the response shape every endpoint shares.
type envelope struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(data any) envelope { return envelope{Success: true, Data: data} }

func okList[T any](items []T) envelope {
	n := len(items)
	return envelope{Success: true, Count: &n, Data: items}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorWith(w, r, code, msg, nil)
}

func writeErrorWith(w http.ResponseWriter, r *http.Request, code int, msg string, extra map[string]any) {
	payload := map[string]any{
		"success": false,
		"error":   msg,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, ErrEmailTaken):
		writeError(w, r, http.StatusBadRequest, "User already exists")
	default:
		obs.Error("devserver store", map[string]any{"error": err.Error(), "request_id": RequestIDFromContext(r.Context())})
		writeError(w, r, http.StatusInternalServerError, "Server error")
	}
}

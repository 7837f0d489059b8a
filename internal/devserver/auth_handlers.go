package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"xydo.org/internal/audit"
	"xydo.org/internal/auth"
	"xydo.org/internal/session"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

type authedHandler func(w http.ResponseWriter, r *http.Request, user session.User)

// authed resolves the bearer token to a user. With roles given, only those
// roles may pass.
func (s *Server) authed(next authedHandler, roles ...auth.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		claims, err := s.signer.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		user, err := s.dir.GetUser(r.Context(), claims.SubjectID())
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "User no longer exists")
			return
		}
		if len(roles) > 0 && !hasRole(user.Role, roles) {
			writeError(w, r, http.StatusForbidden, "User role "+string(user.Role)+" is not authorized to access this route")
			return
		}
		next(w, r, user)
	})
}

func hasRole(r auth.Role, allowed []auth.Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func auditContext(r *http.Request, userID string) context.Context {
	return audit.WithUserID(audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context())), userID)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Team     string `json:"team"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Please provide name, email and password")
		return
	}
	if err := auth.CheckPasswordPolicy(req.Password); err != nil {
		writeError(w, r, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	role := auth.DefaultRole
	if req.Role != "" {
		parsed, err := auth.ParseRole(req.Role)
		if err != nil || parsed == auth.RoleAdmin {
			writeError(w, r, http.StatusBadRequest, "Invalid role")
			return
		}
		role = parsed
	}

	user, err := s.dir.CreateUser(r.Context(), NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Team:     req.Team,
		Verified: !s.opts.RequireVerification,
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(auditContext(r, user.ID), audit.EventRegister, map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})

	if s.opts.RequireVerification {
		writeJSON(w, http.StatusCreated, envelope{
			Success: true,
			Data:    user,
			Message: "Registration successful! Please check your email to verify your account.",
		})
		return
	}
	s.issue(w, r, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Please provide an email and password")
		return
	}

	user, err := s.dir.Authenticate(r.Context(), req.Email, req.Password, s.opts.RequireVerification)
	switch {
	case errors.Is(err, ErrNotVerified):
		writeErrorWith(w, r, http.StatusForbidden, "Please verify your email before logging in",
			map[string]any{"requiresVerification": true})
		return
	case err != nil:
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	_ = audit.LogEvent(auditContext(r, user.ID), audit.EventLogin, map[string]any{"email": user.Email})
	s.issue(w, r, http.StatusOK, user)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, code int, user session.User) {
	token, _, err := s.signer.GenerateToken(user.ID, user.Role)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, code, envelope{Success: true, Token: token, Data: user})
}

// logout is stateless: tokens simply expire.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	_ = audit.LogEvent(auditContext(r, ""), audit.EventLogout, nil)
	writeJSON(w, http.StatusOK, ok(map[string]any{}))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, user session.User) {
	writeJSON(w, http.StatusOK, ok(user))
}

// verify stands in for the emailed verification link.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if err := s.dir.MarkVerified(r.Context(), email); err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Email verified"})
}

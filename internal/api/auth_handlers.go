package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "Operator login",
		Description: "Checks the operator credentials and sets the session cookie",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/auth/logout",
		Summary:     "Logout",
		Description: "Overwrites the session cookie with an expired one",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/auth/session",
		Summary:     "Current session",
		Description: "Returns the operator behind the session cookie",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleGetSession)
}

// === DTOs ===

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Username string `json:"username,omitempty" maxLength:"256" doc:"Operator username"`
	Password string `json:"password,omitempty" maxLength:"1024" doc:"Operator password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// OKResponse acknowledges a state change.
type OKResponse struct {
	OK bool `json:"ok" doc:"Always true"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	OK        bool      `json:"ok" doc:"Always true"`
	ExpiresAt time.Time `json:"expiresAt" doc:"When the session expires"`
}

// LoginOutput sets the session cookie.
type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      LoginResponse
}

// LogoutOutput clears the session cookie.
type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      OKResponse
}

// SessionResponse describes the current session.
type SessionResponse struct {
	Username  string    `json:"username" doc:"Operator username"`
	Role      string    `json:"role" doc:"Always admin"`
	ExpiresAt time.Time `json:"expiresAt" doc:"When the session expires"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// === Handlers ===

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	session, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Username:  input.Body.Username,
		Password:  input.Body.Password,
		IPAddress: clientIP(ctx),
	})
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		SetCookie: auth.SessionCookie(session.Token, s.cfg.SecureCookies),
		Body:      LoginResponse{OK: true, ExpiresAt: session.ExpiresAt},
	}, nil
}

func (s *Server) handleLogout(_ context.Context, _ *struct{}) (*LogoutOutput, error) {
	return &LogoutOutput{
		SetCookie: auth.ExpiredSessionCookie(s.cfg.SecureCookies),
		Body:      OKResponse{OK: true},
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	principal, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	return &SessionOutput{
		Body: SessionResponse{
			Username:  principal.Subject,
			Role:      principal.Role,
			ExpiresAt: principal.ExpiresAt,
		},
	}, nil
}

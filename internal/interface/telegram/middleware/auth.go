// Package middleware contains Telegram bot middlewares for request processing.
// These middlewares run on every incoming message before it reaches the
// router: rate limiting, the admin gate, panic recovery and metrics.
package middleware

import (
	"context"
	"log/slog"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT KEYS
// Used to pass data through the request context.
// ══════════════════════════════════════════════════════════════════════════════

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDContextKey is the context key for the Telegram user ID.
	UserIDContextKey contextKey = "user_id"

	// RequestIDContextKey is the context key for request tracing.
	RequestIDContextKey contextKey = "request_id"
)

// ContextWithUserID stores the Telegram user ID in the context.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the Telegram user ID, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(UserIDContextKey).(int64); ok {
		return id
	}
	return 0
}

// ContextWithRequestID stores a request ID in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, requestID)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH MIDDLEWARE
// Gates admin-only commands on the persisted admin set. Gated commands first
// give the first private user a chance to become admin.
// ══════════════════════════════════════════════════════════════════════════════

// AdminPolicy is the part of the admin policy the gate needs.
type AdminPolicy interface {
	BootstrapFirstAdminIfEmpty(ctx context.Context, username string, private bool) (bool, error)
	IsAdmin(ctx context.Context, username string) bool
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// AdminCommands maps each admin-only command to the message a non-admin
	// receives. An empty message denies silently.
	AdminCommands map[string]string

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultAuthConfig returns a config with no gated commands.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		AdminCommands: make(map[string]string),
		Logger:        slog.Default(),
	}
}

// AuthMiddleware decides whether a command may run for a user.
type AuthMiddleware struct {
	policy AdminPolicy
	config AuthConfig
	logger *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware with the given configuration.
func NewAuthMiddleware(policy AdminPolicy, config AuthConfig) *AuthMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.AdminCommands == nil {
		config.AdminCommands = make(map[string]string)
	}
	return &AuthMiddleware{
		policy: policy,
		config: config,
		logger: config.Logger.With("component", "auth_middleware"),
	}
}

// AuthRequest describes the command being authorized.
type AuthRequest struct {
	Username string
	Private  bool
	Command  string
}

// AuthResult represents the result of the admin check.
type AuthResult struct {
	// IsAdmin indicates if the user is in the admin set.
	IsAdmin bool

	// ShouldContinue indicates if request processing should continue.
	ShouldContinue bool

	// ResponseMessage is the message to send if the command is denied.
	// Empty means deny silently.
	ResponseMessage string
}

// Authenticate checks a command against the admin set. Commands that are not
// gated always continue.
func (m *AuthMiddleware) Authenticate(ctx context.Context, req AuthRequest) *AuthResult {
	denial, gated := m.config.AdminCommands[req.Command]
	if !gated {
		return &AuthResult{ShouldContinue: true}
	}

	if _, err := m.policy.BootstrapFirstAdminIfEmpty(ctx, req.Username, req.Private); err != nil {
		m.logger.Error("admin bootstrap failed", "command", req.Command, "error", err)
	}

	if m.policy.IsAdmin(ctx, req.Username) {
		return &AuthResult{IsAdmin: true, ShouldContinue: true}
	}

	m.logger.Debug("admin command denied",
		"command", req.Command,
		"user_id", UserIDFromContext(ctx),
	)
	return &AuthResult{ResponseMessage: denial}
}

// IsGated reports whether a command requires admin rights.
func (m *AuthMiddleware) IsGated(command string) bool {
	_, ok := m.config.AdminCommands[command]
	return ok
}

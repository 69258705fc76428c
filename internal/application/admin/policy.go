// Package admin implements the identity and admin policy: first-admin
// bootstrap, membership checks and the admin-only settings setters.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/settings"
)

// Policy gates privileged operations on the persisted admin set.
//
// Bootstrap is serialized by a process-local mutex only. Two processes
// sharing a store can still both seed an admin on their first message; the
// last writer wins.
type Policy struct {
	repo   settings.Repository
	mu     sync.Mutex
	logger *slog.Logger
}

// NewPolicy creates a Policy.
func NewPolicy(repo settings.Repository, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{repo: repo, logger: logger.With("component", "admin_policy")}
}

// IdentityTag derives the user's handle tag. Empty for handle-less users.
func (p *Policy) IdentityTag(username string) string {
	return settings.IdentityTag(username)
}

// BootstrapFirstAdminIfEmpty makes the user the sole admin when the admin set
// is empty, the chat is private and the user has a handle. It reports whether
// the user was seeded. Once any admin exists it is a no-op.
func (p *Policy) BootstrapFirstAdminIfEmpty(ctx context.Context, username string, private bool) (bool, error) {
	if !private {
		return false, nil
	}
	tag := settings.IdentityTag(username)
	if tag == "" {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.repo.Settings(ctx)
	if s.HasAdmins() {
		return false, nil
	}
	if err := p.repo.SaveSettings(ctx, s.WithAdmin(tag)); err != nil {
		return false, fmt.Errorf("admin: bootstrap %s: %w", tag, err)
	}

	p.logger.Warn("first admin bootstrapped", "admin", tag)
	return true, nil
}

// IsAdmin reports whether the user is in the admin set.
func (p *Policy) IsAdmin(ctx context.Context, username string) bool {
	tag := settings.IdentityTag(username)
	if tag == "" {
		return false
	}
	return p.repo.Settings(ctx).IsAdmin(tag)
}

// AddAdmin validates a typed handle and adds it to the admin set.
func (p *Policy) AddAdmin(ctx context.Context, text string) (string, error) {
	tag, err := roster.NormalizeHandle(text)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.repo.Settings(ctx)
	if err := p.repo.SaveSettings(ctx, s.WithAdmin(tag)); err != nil {
		return "", fmt.Errorf("admin: add %s: %w", tag, err)
	}
	p.logger.Info("admin added", "admin", tag)
	return tag, nil
}

// SetBroadcastTarget validates a typed chat id and stores it.
func (p *Policy) SetBroadcastTarget(ctx context.Context, text string) (int64, error) {
	id, err := settings.ParseChatID(text)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.repo.Settings(ctx)
	if err := p.repo.SaveSettings(ctx, s.WithBroadcastTarget(id)); err != nil {
		return 0, fmt.Errorf("admin: set broadcast target: %w", err)
	}
	p.logger.Info("broadcast target set", "chat_id", id)
	return id, nil
}

// BroadcastTarget returns the configured target or shared.ErrNoBroadcastTarget.
func (p *Policy) BroadcastTarget(ctx context.Context) (int64, error) {
	return p.repo.Settings(ctx).BroadcastTarget()
}

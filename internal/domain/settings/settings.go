// Package settings holds the organization-wide settings record: the single
// broadcast target and the flat admin allow-list.
package settings

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/classhub/classbot/internal/domain/shared"
)

// Settings is the persisted settings record.
type Settings struct {
	// ChatID is the broadcast target. Nil until an admin configures it.
	ChatID *int64 `json:"chat_id"`

	// Admins is the allow-list of "@handle" strings.
	Admins []string `json:"admins"`
}

// Default returns the settings used when nothing is stored yet.
func Default() Settings {
	return Settings{Admins: []string{}}
}

// Repository persists the settings record.
type Repository interface {
	Settings(ctx context.Context) Settings
	SaveSettings(ctx context.Context, s Settings) error
}

// HasAdmins reports whether the admin set has been bootstrapped.
func (s Settings) HasAdmins() bool {
	return len(s.Admins) > 0
}

// IsAdmin reports whether tag is in the admin set. Tags match exactly.
func (s Settings) IsAdmin(tag string) bool {
	if tag == "" {
		return false
	}
	return slices.Contains(s.Admins, tag)
}

// WithAdmin returns a copy with tag added to the admin set, kept sorted and unique.
func (s Settings) WithAdmin(tag string) Settings {
	out := s
	out.Admins = slices.Clone(s.Admins)
	if !s.IsAdmin(tag) {
		out.Admins = append(out.Admins, tag)
	}
	slices.Sort(out.Admins)
	return out
}

// WithBroadcastTarget returns a copy with the broadcast target set.
func (s Settings) WithBroadcastTarget(chatID int64) Settings {
	out := s
	out.Admins = slices.Clone(s.Admins)
	out.ChatID = &chatID
	return out
}

// BroadcastTarget returns the configured target.
func (s Settings) BroadcastTarget() (int64, error) {
	if s.ChatID == nil {
		return 0, shared.ErrNoBroadcastTarget
	}
	return *s.ChatID, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

// IdentityTag derives the stable "@handle" for a Telegram username.
// Users without a public username have an empty tag.
func IdentityTag(username string) string {
	username = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return ""
	}
	return "@" + username
}

var chatIDPattern = regexp.MustCompile(`^-?\d{4,20}$`)

// ParseChatID parses a chat identifier such as "-1001234567890".
// The whole trimmed input must be an optionally negative 4 to 20 digit number.
func ParseChatID(text string) (int64, error) {
	m := strings.TrimSpace(text)
	if !chatIDPattern.MatchString(m) {
		return 0, shared.ErrInvalidChatID
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, shared.WrapError("settings", "ParseChatID", shared.ErrInvalidFormat, "chat id out of range", err)
	}
	return id, nil
}

package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/domain/shared"
)

func TestIdentityTag(t *testing.T) {
	assert.Equal(t, "@anna", IdentityTag("anna"))
	assert.Equal(t, "@anna", IdentityTag("@anna"))
	assert.Equal(t, "", IdentityTag(""))
	assert.Equal(t, "", IdentityTag("  "))
}

func TestSettings_WithAdmin(t *testing.T) {
	s := Default()
	assert.False(t, s.HasAdmins())

	s = s.WithAdmin("@zed").WithAdmin("@amy").WithAdmin("@amy")
	assert.Equal(t, []string{"@amy", "@zed"}, s.Admins)
	assert.True(t, s.IsAdmin("@amy"))
	assert.False(t, s.IsAdmin("@AMY"), "tags match exactly")
	assert.False(t, s.IsAdmin(""))
	assert.False(t, s.IsAdmin("@bob"))
}

func TestSettings_WithAdminDoesNotAlias(t *testing.T) {
	base := Settings{Admins: []string{"@b"}}
	_ = base.WithAdmin("@a")
	assert.Equal(t, []string{"@b"}, base.Admins)
}

func TestSettings_BroadcastTarget(t *testing.T) {
	s := Default()
	_, err := s.BroadcastTarget()
	assert.True(t, errors.Is(err, shared.ErrNoBroadcastTarget))

	s = s.WithBroadcastTarget(-100123456)
	id, err := s.BroadcastTarget()
	require.NoError(t, err)
	assert.Equal(t, int64(-100123456), id)
}

func TestParseChatID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"-1001234567890", -1001234567890, true},
		{"  123456 ", 123456, true},
		{"chat: 123456", 0, false},
		{"123", 0, false},
		{"hello", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseChatID(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			assert.True(t, shared.IsValidation(err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

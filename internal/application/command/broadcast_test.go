package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/domain/shared"
)

type staticTarget struct {
	id  int64
	err error
}

func (s staticTarget) BroadcastTarget(context.Context) (int64, error) { return s.id, s.err }

type sent struct {
	chatID  int64
	text    string
	path    string
	html    bool
	isPhoto bool
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, html bool) error {
	f.sent = append(f.sent, sent{chatID: chatID, text: text, html: html})
	return f.err
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID int64, path, caption string, html bool) error {
	f.sent = append(f.sent, sent{chatID: chatID, text: caption, path: path, html: html, isPhoto: true})
	return f.err
}

func TestBroadcast_SendHTMLNormalizesNewlines(t *testing.T) {
	s := &fakeSender{}
	h := NewBroadcastHandler(staticTarget{id: -100}, s, nil)

	target, err := h.SendHTML(context.Background(), `<b>Hi</b>\nline`)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), target)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "<b>Hi</b>\nline", s.sent[0].text)
	assert.True(t, s.sent[0].html)
}

func TestBroadcast_NoTarget(t *testing.T) {
	s := &fakeSender{}
	h := NewBroadcastHandler(staticTarget{err: shared.ErrNoBroadcastTarget}, s, nil)

	_, err := h.SendTest(context.Background())
	assert.ErrorIs(t, err, shared.ErrNoBroadcastTarget)
	assert.Empty(t, s.sent)
}

func TestBroadcast_SendPhotoAlwaysRemovesFile(t *testing.T) {
	for _, sendErr := range []error{nil, errors.New("telegram down")} {
		path := filepath.Join(t.TempDir(), "p.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		s := &fakeSender{err: sendErr}
		h := NewBroadcastHandler(staticTarget{id: 1}, s, nil)

		err := h.SendPhoto(context.Background(), 7, path, "  cap\\nnext ")
		if sendErr != nil {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}

		require.Len(t, s.sent, 1)
		assert.Equal(t, int64(7), s.sent[0].chatID)
		assert.Equal(t, "cap\nnext", s.sent[0].text)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	}
}

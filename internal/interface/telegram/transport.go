package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/classhub/classbot/internal/infrastructure/external/telegram"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// Adapts the Bot API client to the ports of the application layer and renders
// presenter replies as Bot API messages.
// ══════════════════════════════════════════════════════════════════════════════

// Transport sends and downloads through the Bot API.
type Transport struct {
	client *telegram.Client
}

// NewTransport creates a Transport.
func NewTransport(client *telegram.Client) *Transport {
	return &Transport{client: client}
}

// SendText posts text to a chat. HTML is retried as plain text when the
// markup is rejected.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string, html bool) error {
	params := telegram.SendMessageParams{ChatID: chatID, Text: text}
	if html {
		params.ParseMode = telegram.ParseModeHTML
	}
	_, err := t.client.SendFormatted(ctx, params)
	return err
}

// SendPhoto uploads the file at path with a caption.
func (t *Transport) SendPhoto(ctx context.Context, chatID int64, path, caption string, html bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	params := telegram.SendPhotoParams{
		ChatID:   chatID,
		Photo:    f,
		FileName: filepath.Base(path),
		Caption:  caption,
	}
	if html {
		params.ParseMode = telegram.ParseModeHTML
	}
	_, err = t.client.SendPhotoFormatted(ctx, params)
	return err
}

// DownloadPhoto stores a Telegram file at path. A partial file is removed.
func (t *Transport) DownloadPhoto(ctx context.Context, fileID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	_, err = t.client.DownloadFile(ctx, fileID, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Reply sends a presenter reply to chatID. Nil replies are skipped.
func (t *Transport) Reply(ctx context.Context, chatID int64, reply *presenter.Reply) error {
	if reply == nil || reply.Text == "" {
		return nil
	}
	params := telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        reply.Text,
		ReplyMarkup: keyboardMarkup(reply.Keyboard),
	}
	if reply.HTML {
		params.ParseMode = telegram.ParseModeHTML
	}
	_, err := t.client.SendFormatted(ctx, params)
	return err
}

func keyboardMarkup(k *presenter.ReplyKeyboard) *telegram.ReplyKeyboardMarkup {
	if k == nil {
		return nil
	}
	rows := make([][]telegram.KeyboardButton, 0, len(k.Rows))
	for _, labels := range k.Rows {
		row := make([]telegram.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, telegram.KeyboardButton{Text: label})
		}
		rows = append(rows, row)
	}
	return &telegram.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: k.Resize}
}

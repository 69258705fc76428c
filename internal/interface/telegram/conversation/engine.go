package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classhub/classbot/internal/application/admin"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/settings"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// Entry commands. Each one resets the caller's dialog.
const (
	CmdStart   = "start"
	CmdMenu    = "menu"
	CmdCancel  = "cancel"
	CmdPhoto   = "si"
	CmdJokeAdd = "joke_add"
)

// PhotoDownloader fetches a Telegram file into a local path.
type PhotoDownloader interface {
	DownloadPhoto(ctx context.Context, fileID, path string) error
}

// Input is one incoming message as the engine sees it.
type Input struct {
	UserID   int64
	Username string
	ChatID   int64
	Private  bool

	// Command is the lowercased command name without slash, empty for
	// plain messages.
	Command string

	// Text is the message text. Empty for photos and other media.
	Text string

	// PhotoFileID is the largest size of an attached photo.
	PhotoFileID string
	Caption     string
}

// Deps are the application services the dialogs drive.
type Deps struct {
	Policy    *admin.Policy
	Duty      *query.GetDutyHandler
	Roster    *command.RosterHandler
	Schedule  *command.ReplaceScheduleHandler
	Jokes     *command.AddJokeHandler
	Broadcast *command.BroadcastHandler
	Photos    PhotoDownloader
}

// Config tunes the engine.
type Config struct {
	// TempDir receives downloaded photos until they are sent.
	TempDir string

	// HomeworkTTLDays is shown in the greeting and help.
	HomeworkTTLDays int
}

// Engine runs the dialog state machine. Callers must serialize inputs of the
// same user; inputs of different users may run concurrently.
type Engine struct {
	deps     Deps
	config   Config
	sessions *Sessions
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, config Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	return &Engine{
		deps:     deps,
		config:   config,
		sessions: NewSessions(),
		logger:   logger.With("component", "conversation"),
	}
}

// IsEntry reports whether a command is handled by the engine.
func IsEntry(cmd string) bool {
	switch cmd {
	case CmdStart, CmdMenu, CmdCancel, CmdPhoto, CmdJokeAdd:
		return true
	}
	return false
}

// State returns the current state of a user in a chat.
func (e *Engine) State(chatID, userID int64) State {
	if s, ok := e.sessions.Get(Key{ChatID: chatID, UserID: userID}); ok {
		return s
	}
	return Menu{}
}

// Handle advances the dialog of the input's user. A nil reply means the
// input is ignored.
func (e *Engine) Handle(ctx context.Context, in Input) (*presenter.Reply, error) {
	if in.Command != "" {
		return e.handleEntry(ctx, in)
	}

	k := keyOf(in)
	st, ok := e.sessions.Get(k)
	if !ok {
		if !in.Private {
			return nil, nil
		}
		st = Menu{}
	}

	switch s := st.(type) {
	case Menu:
		return e.handleMenu(ctx, in)
	case AwaitingBroadcastChat:
		return e.handleBroadcastChat(ctx, in)
	case AwaitingAdminHandle:
		return e.handleAdminHandle(ctx, in)
	case AwaitingStudentHandles:
		return e.handleStudentHandle(ctx, in, s)
	case AwaitingScheduleDay:
		return e.handleScheduleDay(ctx, in, s)
	case AwaitingJokeText:
		return e.handleJokeText(ctx, in)
	case AwaitingBroadcastTarget:
		return e.handleBroadcastTarget(in)
	case AwaitingPhoto:
		return e.handlePhoto(ctx, in, s)
	case AwaitingCaption:
		return e.handleCaption(ctx, in, s)
	default:
		return nil, fmt.Errorf("conversation: unknown state %T", st)
	}
}

// ExpireIdle ends sessions idle for longer than maxIdle and removes the
// photos they hold. It returns the number of sessions ended.
func (e *Engine) ExpireIdle(maxIdle time.Duration) int {
	removed := e.sessions.RemoveIdle(maxIdle)
	for _, s := range removed {
		e.removeTemp(tempFile(s))
	}
	if len(removed) > 0 {
		e.logger.Info("idle sessions expired", "count", len(removed))
	}
	return len(removed)
}

// Close ends every session and removes pending photos.
func (e *Engine) Close() {
	for _, s := range e.sessions.RemoveAll() {
		e.removeTemp(tempFile(s))
	}
}

// ════════════════════════════════════════════════════════════════════════════
// ENTRY COMMANDS
// ════════════════════════════════════════════════════════════════════════════

func (e *Engine) handleEntry(ctx context.Context, in Input) (*presenter.Reply, error) {

	switch in.Command {
	case CmdStart, CmdMenu:
		e.bootstrap(ctx, in)
		e.transition(in, Menu{})
		text := presenter.MsgMenuOpened
		if in.Command == CmdStart {
			text = presenter.Start(e.config.HomeworkTTLDays)
		}
		return presenter.Text(text).WithMenu(e.isAdmin(ctx, in)), nil

	case CmdCancel:
		e.transition(in, Menu{})
		return presenter.Text(presenter.MsgCancelled).WithMenu(e.isAdmin(ctx, in)), nil

	case CmdPhoto:
		e.bootstrap(ctx, in)
		if !e.isAdmin(ctx, in) {
			return nil, nil
		}
		if !in.Private {
			return presenter.Text(presenter.MsgPhotoPrivateOnly), nil
		}
		target, err := e.deps.Policy.BroadcastTarget(ctx)
		if err != nil {
			e.transition(in, AwaitingBroadcastTarget{})
			return presenter.Text(presenter.MsgPhotoAskTarget), nil
		}
		e.transition(in, AwaitingPhoto{Target: target})
		return presenter.Text(presenter.PhotoTargetKnown(target)), nil

	case CmdJokeAdd:
		e.bootstrap(ctx, in)
		if !in.Private {
			return presenter.Text(presenter.MsgJokeAddPrivate), nil
		}
		if !e.isAdmin(ctx, in) {
			return presenter.Text(presenter.MsgAdminsOnly), nil
		}
		e.transition(in, AwaitingJokeText{})
		return presenter.Text(presenter.MsgJokeAddPrompt), nil
	}

	return nil, nil
}

// ════════════════════════════════════════════════════════════════════════════
// MENU
// ════════════════════════════════════════════════════════════════════════════

func (e *Engine) handleMenu(ctx context.Context, in Input) (*presenter.Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil
	}

	switch text {
	case presenter.ButtonSchedule:
		return presenter.Text(presenter.MsgScheduleHint), nil
	case presenter.ButtonDuty:
		return presenter.Text(e.deps.Duty.Handle(ctx).Message()), nil
	case presenter.ButtonHomework:
		return presenter.Text(presenter.MsgHomeworkHint), nil
	case presenter.ButtonHelp:
		return presenter.Text(presenter.Help(e.config.HomeworkTTLDays)), nil
	}

	adminAction := isAdminButton(text)
	if !adminAction && !in.Private {
		return nil, nil
	}

	e.bootstrap(ctx, in)
	if !e.isAdmin(ctx, in) {
		return presenter.Text(presenter.MsgAck), nil
	}

	switch text {
	case presenter.ButtonAddChat:
		e.transition(in, AwaitingBroadcastChat{})
		return presenter.Text(presenter.MsgChatIDPrompt), nil

	case presenter.ButtonAddAdmin:
		e.transition(in, AwaitingAdminHandle{})
		return presenter.Text(presenter.MsgAdminPrompt), nil

	case presenter.ButtonAddStudents:
		e.transition(in, AwaitingStudentHandles{})
		return presenter.Text(presenter.MsgStudentsPrompt), nil

	case presenter.ButtonEditSchedule:
		e.transition(in, AwaitingScheduleDay{})
		return presenter.Text(presenter.ScheduleStepPrompt(0)), nil

	case presenter.ButtonTestBroadcast:
		if _, err := e.deps.Broadcast.SendTest(ctx); err != nil {
			if errors.Is(err, shared.ErrNoBroadcastTarget) {
				return presenter.Text(presenter.MsgNoBroadcastTgt), nil
			}
			return nil, err
		}
		return presenter.Text(presenter.MsgTestSent), nil

	case presenter.ButtonAddJoke:
		e.transition(in, AwaitingJokeText{})
		return presenter.Text(presenter.MsgJokeMenuPrompt), nil
	}

	return presenter.Text(presenter.MsgUnknownInput), nil
}

func isAdminButton(text string) bool {
	switch text {
	case presenter.ButtonAddChat, presenter.ButtonAddAdmin, presenter.ButtonAddStudents,
		presenter.ButtonEditSchedule, presenter.ButtonTestBroadcast, presenter.ButtonAddJoke:
		return true
	}
	return false
}

// ════════════════════════════════════════════════════════════════════════════
// ADMIN DIALOGS
// ════════════════════════════════════════════════════════════════════════════

func (e *Engine) handleBroadcastChat(ctx context.Context, in Input) (*presenter.Reply, error) {
	if in.Text == "" {
		return nil, nil
	}
	id, err := e.deps.Policy.SetBroadcastTarget(ctx, in.Text)
	if errors.Is(err, shared.ErrInvalidChatID) {
		return presenter.Text(presenter.MsgChatIDInvalid), nil
	}
	if err != nil {
		return nil, err
	}
	e.transition(in, Menu{})
	return presenter.Text(presenter.BroadcastTargetSaved(id)).WithMenu(e.isAdmin(ctx, in)), nil
}

func (e *Engine) handleAdminHandle(ctx context.Context, in Input) (*presenter.Reply, error) {
	if in.Text == "" {
		return nil, nil
	}
	tag, err := e.deps.Policy.AddAdmin(ctx, in.Text)
	if errors.Is(err, shared.ErrInvalidHandle) {
		return presenter.Text(presenter.MsgAdminBadHandle), nil
	}
	if err != nil {
		return nil, err
	}
	e.transition(in, Menu{})
	return presenter.Text(presenter.AdminAdded(tag)).WithMenu(e.isAdmin(ctx, in)), nil
}

func (e *Engine) handleStudentHandle(ctx context.Context, in Input, s AwaitingStudentHandles) (*presenter.Reply, error) {
	if in.Text == "" {
		return nil, nil
	}
	if roster.IsEndWord(in.Text) {
		e.transition(in, Menu{})
		return presenter.Text(presenter.StudentsDone(s.Added)).WithMenu(e.isAdmin(ctx, in)), nil
	}

	entry, err := e.deps.Roster.Add(ctx, in.Text)
	if errors.Is(err, shared.ErrInvalidHandle) {
		return presenter.Text(presenter.MsgStudentsInvalid), nil
	}
	if err != nil {
		return nil, err
	}
	e.transition(in, AwaitingStudentHandles{Added: s.Added + 1})
	return presenter.Text(presenter.StudentAdded(entry)), nil
}

func (e *Engine) handleScheduleDay(ctx context.Context, in Input, s AwaitingScheduleDay) (*presenter.Reply, error) {
	if in.Text == "" {
		return nil, nil
	}
	s.Draft[s.Step] = strings.TrimSpace(in.Text)
	s.Step++

	if s.Step < len(s.Draft) {
		e.transition(in, s)
		return presenter.Text(presenter.ScheduleStepPrompt(s.Step)), nil
	}

	if _, err := e.deps.Schedule.Handle(ctx, s.Draft); err != nil {
		return nil, err
	}
	e.transition(in, Menu{})
	return presenter.Text(presenter.MsgScheduleSaved).WithMenu(e.isAdmin(ctx, in)), nil
}

func (e *Engine) handleJokeText(ctx context.Context, in Input) (*presenter.Reply, error) {
	if in.Text == "" {
		return nil, nil
	}
	err := e.deps.Jokes.Handle(ctx, in.Text)
	if errors.Is(err, shared.ErrEmptyValue) {
		return presenter.Text(presenter.MsgJokeMenuPrompt), nil
	}
	if err != nil {
		return nil, err
	}
	e.transition(in, Menu{})
	return presenter.Text(presenter.MsgJokeAdded).WithMenu(e.isAdmin(ctx, in)), nil
}

// ════════════════════════════════════════════════════════════════════════════
// PHOTO BROADCAST
// ════════════════════════════════════════════════════════════════════════════

func (e *Engine) handleBroadcastTarget(in Input) (*presenter.Reply, error) {
	if in.Text == "" {
		return nil, nil
	}
	id, err := settings.ParseChatID(in.Text)
	if err != nil {
		return presenter.Text(presenter.MsgChatIDInvalid), nil
	}
	e.transition(in, AwaitingPhoto{Target: id})
	return presenter.Text(presenter.MsgPhotoAskPhoto), nil
}

func (e *Engine) handlePhoto(ctx context.Context, in Input, s AwaitingPhoto) (*presenter.Reply, error) {
	if in.PhotoFileID == "" {
		return presenter.Text(presenter.MsgPhotoWrongInput), nil
	}

	path, err := e.download(ctx, in)
	if err != nil {
		return nil, err
	}

	if caption := strings.TrimSpace(in.Caption); caption != "" {
		return e.sendPhoto(ctx, in, s.Target, path, caption), nil
	}

	e.transition(in, AwaitingCaption{Target: s.Target, PhotoPath: path})
	return presenter.Text(presenter.MsgPhotoAccepted), nil
}

func (e *Engine) handleCaption(ctx context.Context, in Input, s AwaitingCaption) (*presenter.Reply, error) {
	if in.Text == "" {
		return presenter.Text(presenter.MsgCaptionWrongType), nil
	}
	return e.sendPhoto(ctx, in, s.Target, s.PhotoPath, in.Text), nil
}

// sendPhoto posts the photo and ends the dialog. The file is gone afterwards
// whatever the outcome.
func (e *Engine) sendPhoto(ctx context.Context, in Input, target int64, path, caption string) *presenter.Reply {
	err := e.deps.Broadcast.SendPhoto(ctx, target, path, caption)
	e.transition(in, Menu{})
	if err != nil {
		e.logger.Error("photo broadcast failed", "chat_id", target, "error", err)
		return presenter.Text(presenter.MsgPhotoSendFailed).WithMenu(e.isAdmin(ctx, in))
	}
	return presenter.Text(presenter.MsgPhotoSent).WithMenu(e.isAdmin(ctx, in))
}

func (e *Engine) download(ctx context.Context, in Input) (string, error) {
	if err := os.MkdirAll(e.config.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("conversation: temp dir: %w", err)
	}
	path := filepath.Join(e.config.TempDir, fmt.Sprintf("si_%d_%s.jpg", in.UserID, uuid.NewString()))
	if err := e.deps.Photos.DownloadPhoto(ctx, in.PhotoFileID, path); err != nil {
		e.removeTemp(path)
		return "", fmt.Errorf("conversation: download photo: %w", err)
	}
	return path, nil
}

// ════════════════════════════════════════════════════════════════════════════
// HELPERS
// ════════════════════════════════════════════════════════════════════════════

// transition stores next and removes any photo the previous state held
// that next no longer refers to. Menu ends a private session; group chats
// keep it so menu buttons are answered after an entry command.
func (e *Engine) transition(in Input, next State) {
	k := keyOf(in)
	stored := next
	if _, menu := next.(Menu); menu && in.Private {
		stored = nil
	}
	prev := e.sessions.Swap(k, stored)
	if prev == nil {
		return
	}
	if old := tempFile(prev); old != "" && old != tempFile(next) {
		e.removeTemp(old)
	}
	if prev.Name() != next.Name() {
		e.logger.Debug("dialog transition", "chat_id", k.ChatID, "user_id", k.UserID,
			"from", prev.Name(), "to", next.Name())
	}
}

func (e *Engine) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("failed to remove temp photo", "path", path, "error", err)
	}
}

func (e *Engine) bootstrap(ctx context.Context, in Input) {
	if _, err := e.deps.Policy.BootstrapFirstAdminIfEmpty(ctx, in.Username, in.Private); err != nil {
		e.logger.Error("admin bootstrap failed", "user_id", in.UserID, "error", err)
	}
}

func (e *Engine) isAdmin(ctx context.Context, in Input) bool {
	return e.deps.Policy.IsAdmin(ctx, in.Username)
}

func keyOf(in Input) Key {
	return Key{ChatID: in.ChatID, UserID: in.UserID}
}

// Package conversation drives the multi-step chat dialogs: a per-user state
// machine whose states carry exactly the scratch data they need.
package conversation

import "github.com/classhub/classbot/internal/domain/schedule"

// State is one node of the dialog state machine. The concrete types below are
// the only implementations.
type State interface {
	Name() string
	isState()
}

// Menu is the idle state. It is never stored: reaching it ends the session.
type Menu struct{}

// AwaitingBroadcastChat waits for the chat id to store as broadcast target.
type AwaitingBroadcastChat struct{}

// AwaitingAdminHandle waits for the @handle of a new admin.
type AwaitingAdminHandle struct{}

// AwaitingStudentHandles loops over @handles until an end word arrives.
type AwaitingStudentHandles struct {
	Added int
}

// AwaitingScheduleDay collects one text per canonical weekday. Step is the
// index of the day being asked for; Draft holds the days answered so far.
type AwaitingScheduleDay struct {
	Step  int
	Draft [len(schedule.CanonicalDays)]string
}

// AwaitingJokeText waits for a joke.
type AwaitingJokeText struct{}

// AwaitingBroadcastTarget waits for the chat id a photo broadcast goes to.
type AwaitingBroadcastTarget struct{}

// AwaitingPhoto waits for the photo to broadcast to Target.
type AwaitingPhoto struct {
	Target int64
}

// AwaitingCaption holds a downloaded photo until its caption arrives.
type AwaitingCaption struct {
	Target    int64
	PhotoPath string
}

func (Menu) Name() string                    { return "menu" }
func (AwaitingBroadcastChat) Name() string   { return "awaiting_broadcast_chat" }
func (AwaitingAdminHandle) Name() string     { return "awaiting_admin_handle" }
func (AwaitingStudentHandles) Name() string  { return "awaiting_student_handles" }
func (AwaitingScheduleDay) Name() string     { return "awaiting_schedule_day" }
func (AwaitingJokeText) Name() string        { return "awaiting_joke_text" }
func (AwaitingBroadcastTarget) Name() string { return "awaiting_broadcast_target" }
func (AwaitingPhoto) Name() string           { return "awaiting_photo" }
func (AwaitingCaption) Name() string         { return "awaiting_caption" }

func (Menu) isState()                    {}
func (AwaitingBroadcastChat) isState()   {}
func (AwaitingAdminHandle) isState()     {}
func (AwaitingStudentHandles) isState()  {}
func (AwaitingScheduleDay) isState()     {}
func (AwaitingJokeText) isState()        {}
func (AwaitingBroadcastTarget) isState() {}
func (AwaitingPhoto) isState()           {}
func (AwaitingCaption) isState()         {}

// tempFile returns the downloaded artifact a state owns, if any.
func tempFile(s State) string {
	if c, ok := s.(AwaitingCaption); ok {
		return c.PhotoPath
	}
	return ""
}

package board

import "time"

// MaxNotifications bounds the notification history kept per board.
const MaxNotifications = 20

// Level grades a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a transient user-visible message about an operation.
type Notification struct {
	Level     Level     `json:"level"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Notifier receives every notification the board raises. It is called with
// the board locked and must not call back into the board.
type Notifier interface {
	Notify(orgID string, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(orgID string, n Notification)

func (f NotifierFunc) Notify(orgID string, n Notification) { f(orgID, n) }

func appendBounded(list []Notification, n Notification) []Notification {
	next := make([]Notification, 0, MaxNotifications)
	if len(list) >= MaxNotifications {
		list = list[len(list)-MaxNotifications+1:]
	}
	next = append(next, list...)
	return append(next, n)
}

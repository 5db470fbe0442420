package models

import "time"

// ActivityEvent names an entry in the user activity log.
type ActivityEvent string

const (
	EventLogin          ActivityEvent = "login"
	EventLoginFailed    ActivityEvent = "login_failed"
	EventRegistered     ActivityEvent = "registered"
	EventUpdated        ActivityEvent = "updated"
	EventDeleted        ActivityEvent = "deleted"
	EventForgotUsername ActivityEvent = "forgot_username"
	EventForgotPassword ActivityEvent = "forgot_password"
	EventPasswordReset  ActivityEvent = "password_reset"
)

type Activity struct {
	ID         string
	UserID     string
	UserName   string
	Event      ActivityEvent
	Metadata   map[string]any
	OccurredAt time.Time
}

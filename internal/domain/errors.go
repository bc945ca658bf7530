package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes and stable error codes
// via a single mapError function.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadySending  = errors.New("campaign is already sending")
	ErrAlreadySent     = errors.New("campaign has already been sent")
	ErrNoSubscribers   = errors.New("no subscribed recipients")
	ErrInvalidStatus   = errors.New("operation not allowed in the campaign's current status")
	ErrScheduleInPast  = errors.New("scheduled time must be in the future")
	ErrInvalidSubject  = errors.New("subject must not be empty")
	ErrInvalidContent  = errors.New("content must not be empty")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidAction   = errors.New("action must be open or click")
	ErrSchedulerClosed = errors.New("trigger scheduler has been stopped")
)

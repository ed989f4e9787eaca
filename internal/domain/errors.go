package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a training session has not been initialized.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrCaseNotFound indicates the case content could not be loaded.
	ErrCaseNotFound = errors.New("case not found")
	// ErrNoActiveAttempt is returned when an action arrives before a case attempt was started.
	ErrNoActiveAttempt = errors.New("no active case attempt")
	// ErrAttemptFinished is returned when acting on an attempt whose diagnosis was already submitted.
	ErrAttemptFinished = errors.New("case attempt already finished")
	// ErrUnknownSection indicates an action was sent for a section the trainer does not know.
	ErrUnknownSection = errors.New("unknown action section")
	// ErrEmptyKey indicates an action or diagnosis was submitted without a value.
	ErrEmptyKey = errors.New("empty action key")
	// ErrUnknownHostAction indicates an unsupported host control.
	ErrUnknownHostAction = errors.New("unknown host action")
	// ErrNotHost is returned when a host control comes from a participant connection.
	ErrNotHost = errors.New("host role required")
)

package lex_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
	ErrTooManyFiles       = errors.New("maximum number of files reached")
	ErrDeviceDenied       = errors.New("device access denied")
	ErrRecorderBusy       = errors.New("a recording is already in progress")
	ErrNoRecording        = errors.New("no recording available")
	ErrRateLimited        = errors.New("rate limited")
	ErrSessionFinished    = errors.New("intake session already finished")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}

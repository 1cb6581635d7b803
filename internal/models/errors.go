package models

import (
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy shared by the artifact and audio pipelines.
var (
	ErrSourceUnresolvable   = errors.New("source unresolvable")
	ErrTransferFailed       = errors.New("transfer failed")
	ErrValidationFailed     = errors.New("validation failed")
	ErrSizeTooSmall         = errors.New("artifact too small")
	ErrNoMatchingEntry      = errors.New("no matching entry")
	ErrCorruptContainer     = errors.New("corrupt container")
	ErrUnsupportedFormat    = errors.New("unsupported audio format")
	ErrUnsupportedExtension = errors.New("unsupported file type")
	ErrModelNotLoaded       = errors.New("model not loaded")
	ErrNotFound             = errors.New("not found")
)

// NoMatchingEntryError lists what a container held when nothing matched.
type NoMatchingEntryError struct {
	Container string
	Suffixes  []string
	Entries   []string
}

func (e *NoMatchingEntryError) Error() string {
	shown := e.Entries
	if len(shown) > 20 {
		shown = shown[:20]
	}
	return fmt.Sprintf("no entry matching %v in %s; found these %d files instead: %s",
		e.Suffixes, e.Container, len(e.Entries), strings.Join(shown, ", "))
}

func (e *NoMatchingEntryError) Unwrap() error { return ErrNoMatchingEntry }

package stations

import (
	"fmt"
	"unicode/utf8"
)

// StepError names the station a transcription failed in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// trim shortens s to at most max bytes without splitting a rune.
func trim(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

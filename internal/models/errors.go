package models

import "errors"

// Custom errors
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidOutcome = errors.New("invalid outcome")
	ErrEmptyHistory   = errors.New("history is empty")
)

// ParseOutcome maps the labels used by upstream feeds onto an Outcome
func ParseOutcome(label string) (Outcome, error) {
	switch label {
	case "High", "high", "HIGH", "Tài", "Tai", "tai", "T":
		return OutcomeHigh, nil
	case "Low", "low", "LOW", "Xỉu", "Xiu", "xiu", "X":
		return OutcomeLow, nil
	default:
		return "", ErrInvalidOutcome
	}
}

package score

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks
var (
	ErrRange           = errors.New("value out of range")
	ErrInvalidArgument = errors.New("invalid argument")
)

// RangeError reports a field value outside its legal domain
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// Unwrap allows errors.Is(err, ErrRange)
func (e *RangeError) Unwrap() error {
	return ErrRange
}

// InvalidArgumentError reports a malformed argument to a score operation
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// Unwrap allows errors.Is(err, ErrInvalidArgument)
func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// CheckRange returns a RangeError when v lies outside [lo, hi]
func CheckRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &RangeError{Field: field, Value: v, Min: lo, Max: hi}
	}
	return nil
}

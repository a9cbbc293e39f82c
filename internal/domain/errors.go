package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is; the stage that raised them is carried
// by StageError.
var (
	ErrMalformedTimestamp  = errors.New("malformed timestamp")
	ErrEmptySeries         = errors.New("empty series")
	ErrInsufficientData    = errors.New("insufficient data for percentiles")
	ErrInsufficientSamples = errors.New("insufficient samples for regression")
	ErrEmptyFeatureSet     = errors.New("empty feature set")
	ErrUnknownCovariate    = errors.New("unknown covariate")
)

// Stage names reported in StageError.
const (
	StageLoad       = "load"
	StageRepair     = "repair"
	StageClip       = "clip"
	StageRegression = "regression"
)

// StageError reports a precondition failure in one cleaning or evaluation stage.
type StageError struct {
	Stage string
	Msg   string
	Err   error
}

func (e *StageError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Msg, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, kind error, format string, args ...any) error {
	return &StageError{Stage: stage, Msg: fmt.Sprintf(format, args...), Err: kind}
}

// Package saga runs ordered actions paired with compensations and undoes
// committed work in reverse order when a later step fails.
package saga

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNilAction is returned when a step has no action.
	ErrNilAction = errors.New("saga: nil action")
	// ErrActionPanic is returned when a step's action panicked.
	ErrActionPanic = errors.New("saga: action panicked")
)

// Step pairs an action with the compensation that undoes it.
// Compensate may be nil for steps with nothing to undo.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports which step of a unit failed.
type StepError struct {
	Step string
	Err  error
	// CompensationErr is set when undoing the unit's earlier steps also failed.
	CompensationErr error
}

func (e *StepError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("saga: step %s: %v (compensation: %v)", e.Step, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("saga: step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Saga keeps the compensation log of committed units.
// It is not safe for concurrent use; a run owns its saga.
type Saga struct {
	log []Step
}

// New constructs an empty saga.
func New() *Saga {
	return &Saga{}
}

// Execute runs the steps of one unit in order. When a step fails, the steps
// of this unit that already ran are compensated in reverse order and a
// *StepError is returned; nothing is added to the log. When every step
// succeeds the unit's compensations are appended to the log.
func (s *Saga) Execute(ctx context.Context, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if step.Action == nil {
			return s.fail(ctx, step.Name, ErrNilAction, done)
		}
		if err := run(ctx, step.Action); err != nil {
			return s.fail(ctx, step.Name, err, done)
		}
		done = append(done, step)
	}
	s.log = append(s.log, done...)
	return nil
}

// run converts a panicking action into an error so the unit is still undone.
func run(ctx context.Context, action func(ctx context.Context) error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanic, recovered)
		}
	}()
	return action(ctx)
}

func (s *Saga) fail(ctx context.Context, name string, err error, done []Step) error {
	return &StepError{Step: name, Err: err, CompensationErr: undo(ctx, done)}
}

// Committed returns the number of committed steps.
func (s *Saga) Committed() int {
	return len(s.log)
}

// Compensate undoes every committed step in reverse order. Every
// compensation is attempted; failures are joined into the returned error.
// The log is cleared afterwards.
func (s *Saga) Compensate(ctx context.Context) error {
	err := undo(ctx, s.log)
	s.log = nil
	return err
}

func undo(ctx context.Context, steps []Step) error {
	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}

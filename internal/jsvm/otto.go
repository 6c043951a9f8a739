package jsvm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robertkrimen/otto"
)

var errHalt = errors.New("jsvm: halt")

// OttoEvaluator evaluates snippets with the otto interpreter.
type OttoEvaluator struct {
	opts Options
}

// NewOtto returns an otto-backed evaluator.
func NewOtto(opts Options) *OttoEvaluator {
	return &OttoEvaluator{opts: opts}
}

// Evaluate implements Evaluator.
func (e *OttoEvaluator) Evaluate(ctx context.Context, snippet, arg string) (result string, err error) {
	start := time.Now()
	defer func() { logEvaluation(EngineOtto, arg, start, err) }()

	ctx, cancel := withTimeout(ctx, e.opts.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt <- func() { panic(errHalt) }
		case <-done:
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if r == errHalt {
				err = fmt.Errorf("jsvm: otto interrupted: %w", ctx.Err())
				return
			}
			panic(r)
		}
	}()

	if _, err := vm.Run(snippet); err != nil {
		return "", fmt.Errorf("jsvm: otto run: %w", err)
	}
	entry := e.opts.entry()
	fn, err := vm.Get(entry)
	if err != nil || !fn.IsFunction() {
		return "", fmt.Errorf("%w: %s", ErrNoEntry, entry)
	}
	value, err := fn.Call(otto.UndefinedValue(), arg)
	if err != nil {
		return "", fmt.Errorf("jsvm: otto call %s: %w", entry, err)
	}
	if value.IsUndefined() || value.IsNull() {
		return "", nil
	}
	result, err = value.ToString()
	if err != nil {
		return "", fmt.Errorf("jsvm: %s did not return a string: %w", entry, err)
	}
	return result, nil
}

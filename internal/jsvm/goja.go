package jsvm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// GojaEvaluator evaluates snippets with the goja interpreter.
type GojaEvaluator struct {
	opts Options
}

// NewGoja returns a goja-backed evaluator.
func NewGoja(opts Options) *GojaEvaluator {
	return &GojaEvaluator{opts: opts}
}

// Evaluate implements Evaluator.
func (e *GojaEvaluator) Evaluate(ctx context.Context, snippet, arg string) (result string, err error) {
	start := time.Now()
	defer func() { logEvaluation(EngineGoja, arg, start, err) }()

	ctx, cancel := withTimeout(ctx, e.opts.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	vm := goja.New()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := vm.RunString(snippet); err != nil {
		return "", gojaError("run", err)
	}
	entry := e.opts.entry()
	fn, ok := goja.AssertFunction(vm.Get(entry))
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoEntry, entry)
	}
	res, err := fn(goja.Undefined(), vm.ToValue(arg))
	if err != nil {
		return "", gojaError("call "+entry, err)
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return "", nil
	}
	return res.String(), nil
}

func gojaError(op string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return fmt.Errorf("jsvm: goja interrupted: %w", cause)
		}
	}
	return fmt.Errorf("jsvm: goja %s: %w", op, err)
}

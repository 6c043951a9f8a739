// Package jsvm evaluates small, self-contained JavaScript snippets in a
// sandboxed interpreter. Each evaluation runs in a fresh VM, so evaluators are
// safe for concurrent use and keep no state between calls.
package jsvm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ytget/mangadl/internal/logger"
)

// DefaultEntry is the function a snippet must declare unless configured otherwise.
const DefaultEntry = "getDescramblingKey"

// Engine names an interpreter backend.
type Engine string

const (
	EngineOtto Engine = "otto"
	EngineGoja Engine = "goja"
)

// ErrNoEntry is returned when the snippet does not declare the entry function.
var ErrNoEntry = errors.New("jsvm: entry function not defined")

// Evaluator runs snippet, then calls its entry function with arg and returns
// the result as a string. Undefined and null results yield "".
type Evaluator interface {
	Evaluate(ctx context.Context, snippet, arg string) (string, error)
}

// Options configures an evaluator.
type Options struct {
	// Entry is the function called after the snippet has run.
	Entry string
	// Timeout bounds one evaluation on top of the caller's context. Zero
	// means the context alone decides.
	Timeout time.Duration
}

func (o Options) entry() string {
	if o.Entry == "" {
		return DefaultEntry
	}
	return o.Entry
}

// New returns the evaluator for engine.
func New(engine Engine, opts Options) (Evaluator, error) {
	switch engine {
	case EngineOtto, "":
		return NewOtto(opts), nil
	case EngineGoja:
		return NewGoja(opts), nil
	default:
		return nil, fmt.Errorf("jsvm: unknown engine %q", engine)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func logEvaluation(engine Engine, arg string, start time.Time, err error) {
	fields := map[string]interface{}{
		"engine":  string(engine),
		"arg":     arg,
		"elapsed": time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.WithComponent(logger.ComponentJSVM).Debug("evaluation failed", fields)
		return
	}
	logger.WithComponent(logger.ComponentJSVM).Trace("evaluation done", fields)
}

// Package errors adds slog annotations and source locations to errors while staying compatible with the standard
// library errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

// sentinelError is a comparable error without a stack. Two sentinels with the same message are still different errors.
type sentinelError struct {
	msg string
}

func (e *sentinelError) Error() string {
	return e.msg
}

// annotatedError carries a message, slog attributes and the program counter of the call site that created it.
type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates an error meant to be declared as a package level variable and compared with [Is].
func NewSentinel(msg string) error {
	return &sentinelError{msg: msg}
}

// New creates an error annotated with attrs and the caller's source location.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: nil, attrs: attrs, pc: callerPC(3)} //nolint:mnd // skip New and Callers.
}

// Wrap annotates err with msg, attrs and the caller's source location. Wrapping a nil error returns nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{msg: msg, err: err, attrs: attrs, pc: callerPC(3)} //nolint:mnd // skip Wrap and Callers.
}

// DecoratePanic converts a recovered panic value into an error pointing at the line that panicked.
//
// It must be called from the deferred function that recovered. A nil excp returns nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var cause error
	if err, ok := excp.(error); ok {
		cause = err
	} else {
		cause = NewSentinel(fmt.Sprint(excp))
	}
	return &annotatedError{msg: "panic", err: cause, attrs: nil, pc: panicPC()}
}

func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

// panicPC finds the first frame after runtime.gopanic, which is the function that panicked.
func panicPC() uintptr {
	const depth = 32
	pcs := make([]uintptr, depth)
	n := runtime.Callers(3, pcs) //nolint:mnd // skip Callers, panicPC and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])
	var (
		first       uintptr
		afterPanic  bool
		frame, more = frames.Next()
	)
	first = frame.PC
	for {
		if afterPanic {
			return frame.PC
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
		frame, more = frames.Next()
	}
	return first
}

// SlogError renders err as an "error" group with the message, the annotations of the whole chain and the source
// location of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Group("error", slog.String("message", "<nil>"))
	}
	var (
		annotations []any
		pc          uintptr
	)
	collect(err, func(ae *annotatedError) {
		for _, attr := range ae.attrs {
			annotations = append(annotations, attr)
		}
		if ae.pc != 0 {
			pc = ae.pc
		}
	})
	args := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		args = append(args, slog.Group("annotations", annotations...))
	}
	if source := sourceLocation(pc); source != "" {
		args = append(args, slog.String("source", source))
	}
	return slog.Group("error", args...)
}

// collect walks the error tree depth first, outermost first, including joined errors.
func collect(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // walking the chain manually.
		visit(ae)
	}
	switch e := err.(type) { //nolint:errorlint // walking the chain manually.
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collect(inner, visit)
		}
	case interface{ Unwrap() error }:
		collect(e.Unwrap(), visit)
	}
}

func sourceLocation(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// Is reports whether any error in err's tree matches target. See [stderrors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [stderrors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target) //nolint:govet // target is validated by the standard library.
}

// Unwrap returns the result of calling the Unwrap method on err. See [stderrors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [stderrors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// New returns an error with the supplied message and the caller stack attached.
func New(message string) error {
	return &fundamental{
		msg:   message,
		stack: callers(),
	}
}

// Errorf formats according to a format specifier and returns it as an error
// with the caller stack attached.
func Errorf(format string, args ...interface{}) error {
	return &fundamental{
		msg:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

// NewWithReport builds the error like New and submits it to the registered reporters.
func NewWithReport(message string) error {
	err := &fundamental{
		msg:   message,
		stack: callers(),
	}
	report(err)
	return err
}

// ErrorfAndReport builds the error like Errorf and submits it to the registered reporters.
func ErrorfAndReport(format string, args ...interface{}) error {
	err := &fundamental{
		msg:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
	report(err)
	return err
}

// Wrap returns an error annotating err with the supplied message and the
// caller stack. Returns nil when err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &withStack{
		cause: err,
		msg:   message,
		stack: callers(),
	}
}

// Wrapf is Wrap with a format specifier.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withStack{
		cause: err,
		msg:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

// WrapAndReport wraps err like Wrap and submits it to the registered reporters.
func WrapAndReport(err error, message string) error {
	if err == nil {
		return nil
	}
	wrapped := &withStack{
		cause: err,
		msg:   message,
		stack: callers(),
	}
	report(wrapped)
	return wrapped
}

// WithStack annotates err with the caller stack without changing its message.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &withStack{
		cause: err,
		stack: callers(),
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the next error in err's chain.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

type fundamental struct {
	msg string
	*stack
}

func (f *fundamental) Error() string {
	return f.msg
}

type withStack struct {
	cause error
	msg   string
	*stack
}

func (w *withStack) Error() string {
	if w.msg == "" {
		return w.cause.Error()
	}
	return w.msg + ": " + w.cause.Error()
}

func (w *withStack) Unwrap() error {
	return w.cause
}

type stack []uintptr

func callers() *stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st stack = pcs[0:n]
	return &st
}

// fullStack renders every frame as "package.func file:line", innermost first.
func (s *stack) fullStack() []string {
	frames := runtime.CallersFrames(*s)
	stacks := make([]string, 0, len(*s))
	for {
		frame, more := frames.Next()
		stacks = append(stacks, fmt.Sprintf("%v %v:%v",
			frame.Function, filepath.Base(frame.File), frame.Line))
		if !more {
			break
		}
	}
	return stacks
}

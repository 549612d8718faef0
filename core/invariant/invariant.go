// Package invariant holds the contract assertions used across the compiler.
//
// Violations are programming errors inside the compiler itself, never
// problems with user source. Source problems are reported as typed errors
// by the lexer, parser and resolver; these helpers panic.
package invariant

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
//
//	func Resolve(mod *ast.Module, reg *registry.Registry) (*ir.Page, error) {
//	    invariant.NotNil(reg, "registry")
//	    invariant.Precondition(mod != nil, "module must be parsed first")
//	    ...
//	}
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before a function returns.
func Postcondition(condition bool, format string, args ...any) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency, typically loop progress in the
// lexer and parser:
//
//	prev := p.pos
//	p.component()
//	invariant.Invariant(p.pos > prev, "parser must consume a token")
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
func NotNil(value any, name string) {
	if isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// ExpectNoError panics if err is not nil. Only for operations that cannot
// fail on valid input, such as encoding an in-memory IR tree.
func ExpectNoError(err error, msg string) {
	if err != nil {
		fail("POSTCONDITION", "%s must not fail: %v", msg, err)
	}
}

// Unreachable marks the default branch of an exhaustive type switch over a
// closed sum type.
//
//	switch n := node.(type) {
//	case *ir.Box:
//	    ...
//	default:
//	    invariant.Unreachable("unknown ir node %T", n)
//	}
func Unreachable(format string, args ...any) {
	fail("UNREACHABLE", format, args...)
}

// ContextNotBackground panics if ctx is nil or context.Background().
// Long-running loops (the live-reload watcher and server) must be handed
// their caller's context so cancellation reaches them.
func ContextNotBackground(ctx context.Context, location string) {
	if ctx == nil {
		fail("PRECONDITION", "%s: context must not be nil", location)
	}
	if ctx == context.Background() {
		fail("PRECONDITION", "%s: context must not be Background()", location)
	}
}

// fail panics with the violation message and the caller's file:line.
func fail(kind, format string, args ...any) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]any{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}
	panic(msg)
}

package diag

import (
	"fmt"
	"sync/atomic"
)

var checks atomic.Bool

func init() {
	checks.Store(true)
}

// SetChecks enables or disables the debug-only consistency checks run by
// Assertf and the AssertValid methods of the span and model packages.
func SetChecks(on bool) {
	checks.Store(on)
}

// Checks reports whether debug consistency checks are enabled.
func Checks() bool {
	return checks.Load()
}

// Fatalf reports a broken invariant. It logs the message and panics; it is
// reserved for programmer errors, never for bad input.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	Logger().Error("fatal", "msg", msg)
	panic(msg)
}

// Assertf calls Fatalf when checks are enabled and cond is false.
func Assertf(cond bool, format string, args ...any) {
	if !cond && checks.Load() {
		Fatalf(format, args...)
	}
}

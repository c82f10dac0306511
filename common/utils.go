package common

import "fmt"

// Assert checks a condition and panics if it is false.
//
// Assertions are reserved for internal invariants: conditions that can only be
// false if the engine itself is broken (negative live counts, offsets past the
// page end, and the like). Continuing past a broken invariant risks persisting
// corrupted pages, so crashing immediately is the safer behavior. Anything that
// can legitimately happen at runtime (a full page, a missing container) is
// reported as an error value instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

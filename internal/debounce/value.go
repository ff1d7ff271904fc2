// Package debounce collapses bursts of keystrokes into a single committed
// value after a quiet period.
//
// Value is the state machine; it owns no timer. The event loop that drives it
// schedules one timer per Input call carrying the returned token and calls
// Settle when that timer fires. Only the latest token commits, so a timer
// restarted by a newer keystroke turns every older timer into a no-op.
package debounce

// Token identifies one Input call.
type Token uint64

// Value holds the raw and committed halves of a debounced input.
type Value struct {
	raw       string
	committed string
	latest    Token
	pending   bool
}

// NewValue returns a settled value seeded with initial.
func NewValue(initial string) Value {
	return Value{raw: initial, committed: initial}
}

// Raw is the most recent keystroke value.
func (v *Value) Raw() string { return v.raw }

// Committed is the last value that survived a full quiet period.
func (v *Value) Committed() string { return v.committed }

// Pending reports whether a commit is scheduled.
func (v *Value) Pending() bool { return v.pending }

// Input records a keystroke and returns the token the caller must hand back
// to Settle once the debounce period elapses.
func (v *Value) Input(raw string) Token {
	v.raw = raw
	v.latest++
	v.pending = true
	return v.latest
}

// Settle commits the raw value if token is still the latest one. It reports
// whether the committed value was (re)written.
func (v *Value) Settle(token Token) bool {
	if !v.pending || token != v.latest {
		return false
	}
	v.pending = false
	v.committed = v.raw
	return true
}

// Current reports whether token belongs to the latest Input call and has not
// been cancelled since.
func (v *Value) Current(token Token) bool {
	return token == v.latest
}

// Cancel drops a pending commit. Timers already in flight become no-ops.
func (v *Value) Cancel() {
	v.latest++
	v.pending = false
}

// Reset sets both halves at once and cancels anything pending.
func (v *Value) Reset(value string) {
	v.Cancel()
	v.raw = value
	v.committed = value
}

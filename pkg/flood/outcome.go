package flood

// Outcome is the record a single flood worker leaves behind after running its
// share of sequential invocations. Intermediate successful values are
// overwritten as the worker iterates; only the most recent one survives.
type Outcome[T any] struct {
	// Worker is the index of the worker within its unit, in [0, workers).
	Worker int
	// Value is the result of the last successful invocation, or the zero
	// value of T if no invocation succeeded.
	Value T
	// Err is the error of the most recent failed invocation, nil if every
	// invocation succeeded.
	Err error
	// Successes and Failures count the invocations the worker completed.
	Successes int
	Failures  int
}

// OK reports whether at least one invocation produced a value, i.e. whether
// Value holds a real result rather than the zero value.
func (o Outcome[T]) OK() bool {
	return o.Successes > 0
}

// Invocations returns the number of invocations the worker completed,
// successful or not. It is lower than the configured iteration count when the
// worker was stopped by a forced close.
func (o Outcome[T]) Invocations() int {
	return o.Successes + o.Failures
}

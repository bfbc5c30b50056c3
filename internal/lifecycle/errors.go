package lifecycle

import "fmt"

// startFailedError marks an instance that never came alive after all launch
// attempts and grace periods.
type startFailedError struct {
	index  int
	reason string
}

func (e startFailedError) Error() string {
	return fmt.Sprintf("instance %d failed to start: %s", e.index, e.reason)
}

// IsStartFailed reports whether err marks a failed instance start.
func IsStartFailed(err error) bool {
	_, ok := err.(startFailedError)
	return ok
}

// stopFailedError marks an instance still alive after a graceful stop.
type stopFailedError struct{ index int }

func (e stopFailedError) Error() string {
	return fmt.Sprintf("instance %d is still running after stop", e.index)
}

// IsStopFailed reports whether err marks a failed instance stop.
func IsStopFailed(err error) bool {
	_, ok := err.(stopFailedError)
	return ok
}

// readyTimeoutError marks an instance that stayed alive but never answered
// the readiness probe before the deadline.
type readyTimeoutError struct{ index int }

func (e readyTimeoutError) Error() string {
	return fmt.Sprintf("instance %d not ready before deadline", e.index)
}

// IsReadyTimeout reports whether err marks a readiness deadline miss.
func IsReadyTimeout(err error) bool {
	_, ok := err.(readyTimeoutError)
	return ok
}

// profileApplyError marks a rejected resource modification.
type profileApplyError struct {
	index  int
	reason string
}

func (e profileApplyError) Error() string {
	return fmt.Sprintf("profile change rejected for instance %d: %s", e.index, e.reason)
}

// IsProfileApplyFailed reports whether err marks a rejected profile change.
func IsProfileApplyFailed(err error) bool {
	_, ok := err.(profileApplyError)
	return ok
}

// instanceDiedError marks an instance that disappeared while awaiting
// readiness.
type instanceDiedError struct{ index int }

func (e instanceDiedError) Error() string {
	return fmt.Sprintf("instance %d died while starting", e.index)
}

// IsInstanceDied reports whether err marks an instance death during startup.
func IsInstanceDied(err error) bool {
	_, ok := err.(instanceDiedError)
	return ok
}

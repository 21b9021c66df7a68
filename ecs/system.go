package ecs

// System represents a behavior run once per simulation step.
// A non-nil error aborts the step; the host decides whether to report it,
// halt the match or crash.
type System[S any] interface {
	Execute(frame *UpdateFrame[S]) error
}

// SystemFunc adapts a plain function to the System interface.
type SystemFunc[S any] func(frame *UpdateFrame[S]) error

// Execute calls f(frame).
func (f SystemFunc[S]) Execute(frame *UpdateFrame[S]) error {
	return f(frame)
}

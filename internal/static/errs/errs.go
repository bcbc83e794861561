package errs

import "errors"

// Error kinds surfaced by the services. Callers wrap them with context and
// test with errors.Is.
var (
	NotFound        = errors.New("not found")
	Conflict        = errors.New("conflict")
	InvalidArgument = errors.New("invalid argument")
)

var (
	QueueFull        = errors.New("execution queue is full")
	EngineStopped    = errors.New("execution engine is stopped")
	ReportTerminated = errors.New("report already reached a terminal state")
)

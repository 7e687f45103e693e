// Package types holds the small interfaces the transport shares with
// its collaborators.
package types

// ManagerReporter hands out per-request state sinks.
type ManagerReporter interface {
	Acquire(operation string) RequestState
}

// RequestState receives the lifecycle of one in-flight request.
type RequestState interface {
	SetSize(n int)      // encoded outbound request size
	Done(status uint32) // a response arrived, any status
	IoError(err error)  // the request died without a response
}

// Reporter is a ManagerReporter with a run loop, typically printing or
// persisting aggregates.
type Reporter interface {
	ManagerReporter
	Run() error
	Close() error
}

type NoopReporter struct{}

func (NoopReporter) Acquire(string) RequestState { return noopState{} }

type noopState struct{}

func (noopState) SetSize(int)   {}
func (noopState) Done(uint32)   {}
func (noopState) IoError(error) {}

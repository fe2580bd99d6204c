package emitter

// ProtocolStateError reports an emission attempt in a state the protocol
// forbids: the emitter already served its response, or a previous attempt
// already put the header block on the wire.
type ProtocolStateError struct {
	Reason string
}

func (e *ProtocolStateError) Error() string {
	return "protocol state violation: " + e.Reason
}

// IOError reports a failed read of the response body or a failed write to
// the wire.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

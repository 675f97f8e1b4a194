package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyIdentity      = fmt.Errorf("empty user identity")
	ErrUnknownPayloadType = fmt.Errorf("unknown payload type")
	ErrSinkFull           = fmt.Errorf("connection sink full")
)

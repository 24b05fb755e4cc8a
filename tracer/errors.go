package tracer

import "errors"

var (
	ErrContextClosed      = errors.New("tracer: context is closed")
	ErrContextBusy        = errors.New("tracer: a launch is already in progress")
	ErrNotInitialized     = errors.New("tracer: context has not been initialized")
	ErrAlreadyInitialized = errors.New("tracer: context is already initialized")
	ErrUnknownMaterial    = errors.New("tracer: unknown material")
	ErrBufferSize         = errors.New("tracer: data does not fit buffer")
)

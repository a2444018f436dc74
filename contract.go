package dbcmd

import "context"

// Query marks a side-effect-free descriptor whose handler returns T.
type Query[T any] struct{}

// Command marks an effectful descriptor whose handler returns T.
type Command[T any] struct{}

// NoResult marks an effectful descriptor whose handler returns only an error.
type NoResult struct{}

// ParamMapper converts a descriptor into the parameter carrier passed to the
// execution helpers. Generated code implements it for every descriptor.
type ParamMapper interface {
	Params() any
}

// Integer is the set of result types executed as scalars or row counts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Handler is the signature of a generated handler bound to the default source.
type Handler[Q, R any] func(ctx context.Context, src Source, q Q) (R, error)

// KeyedHandler is the signature of a generated handler whose descriptor names
// a data source key.
type KeyedHandler[Q, R any] func(ctx context.Context, reg Registry, q Q) (R, error)

// ExecHandler is the signature of a generated handler for a NoResult descriptor.
type ExecHandler[Q any] func(ctx context.Context, src Source, q Q) error

// KeyedExecHandler is ExecHandler for descriptors naming a data source key.
type KeyedExecHandler[Q any] func(ctx context.Context, reg Registry, q Q) error

package log

import "go.uber.org/zap"

type Field = zap.Field

var (
	Any      = zap.Any
	Bool     = zap.Bool
	Duration = zap.Duration
	Float32  = zap.Float32
	Float64  = zap.Float64
	Int      = zap.Int
	Int32    = zap.Int32
	Int64    = zap.Int64
	Uint8    = zap.Uint8
	Uint16   = zap.Uint16
	Uint32   = zap.Uint32
	Uint64   = zap.Uint64
	String   = zap.String
	Strings  = zap.Strings
	Stringer = zap.Stringer
	Time     = zap.Time
)

// ErrorField wraps err as a field named "error"
func ErrorField(err error) Field {
	return zap.Error(err)
}

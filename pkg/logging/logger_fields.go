package logging

import (
	"time"
)

// Generic field constructors

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int32(key string, value int32) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers

func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func HandleID(h uint64) Field {
	return Uint64("handle", h)
}

func NodeCount(n int) Field {
	return Int("nodes", n)
}

func EdgeCount(n int) Field {
	return Int("edges", n)
}

func Iterations(n int) Field {
	return Int("iterations", n)
}

func Temperature(t float64) Field {
	return Float64("temperature", t)
}

func Dimensions(width, height float64) Field {
	return Field{Key: "area", Value: [2]float64{width, height}}
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func Addr(addr string) Field {
	return String("addr", addr)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

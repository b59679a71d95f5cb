/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"fmt"
	"strconv"
	"time"
)

// Codec converts keys or values of type T to and from their textual form in a snapshot record.
type Codec[T any] interface {
	Format(v T) string
	Parse(s string) (T, error)
}

// CodecFunc is an adapter to allow the use of ordinary functions as Codec.
type CodecFunc[T any] struct {
	FormatFunc func(v T) string
	ParseFunc  func(s string) (T, error)
}

// Format implements Codec.
func (c CodecFunc[T]) Format(v T) string {
	return c.FormatFunc(v)
}

// Parse implements Codec.
func (c CodecFunc[T]) Parse(s string) (T, error) {
	return c.ParseFunc(s)
}

type stringCodec struct{}

func (stringCodec) Format(v string) string         { return v }
func (stringCodec) Parse(s string) (string, error) { return s, nil }

// StringCodec stores strings as is.
var StringCodec Codec[string] = stringCodec{}

// IntCodec stores integers in decimal form. Parsing is strictly base 10: "0x10" and "1.0" are rejected.
var IntCodec Codec[int] = CodecFunc[int]{
	FormatFunc: strconv.Itoa,
	ParseFunc:  strconv.Atoi,
}

// Int64Codec stores 64-bit integers in decimal form.
var Int64Codec Codec[int64] = CodecFunc[int64]{
	FormatFunc: func(v int64) string { return strconv.FormatInt(v, 10) },
	ParseFunc:  func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
}

// Uint64Codec stores unsigned 64-bit integers in decimal form.
var Uint64Codec Codec[uint64] = CodecFunc[uint64]{
	FormatFunc: func(v uint64) string { return strconv.FormatUint(v, 10) },
	ParseFunc:  func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) },
}

// Float64Codec stores floats in the shortest form that parses back to the same value.
var Float64Codec Codec[float64] = CodecFunc[float64]{
	FormatFunc: func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
	ParseFunc:  func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
}

// BoolCodec stores booleans as "true" or "false".
var BoolCodec Codec[bool] = CodecFunc[bool]{
	FormatFunc: strconv.FormatBool,
	ParseFunc:  parseBool,
}

// DurationCodec stores durations in time.Duration.String() form (e.g. "1m30s").
var DurationCodec Codec[time.Duration] = CodecFunc[time.Duration]{
	FormatFunc: time.Duration.String,
	ParseFunc:  time.ParseDuration,
}

// parseBool accepts only the forms produced by strconv.FormatBool.
func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package api

import (
	"github.com/tinylib/msgp/msgp"
)

// Tracers are not consistent in the msgpack types they pick for numbers
// (fixint vs uint64, float vs int) and some of them send nil for absent
// fields, so the decoders below accept any compatible type instead of relying
// on generated code.

// maxPrealloc caps the capacity allocated up front from an untrusted array
// header.
const maxPrealloc = 1024

var (
	_ msgp.Decodable = (*Traces)(nil)
	_ msgp.Decodable = (*Trace)(nil)
	_ msgp.Decodable = (*Span)(nil)
)

// DecodeMsg implements msgp.Decodable
func (t *Traces) DecodeMsg(dc *msgp.Reader) error {
	if dc.IsNil() {
		*t = nil
		return dc.ReadNil()
	}
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	traces := make(Traces, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		var trace Trace
		if err := trace.DecodeMsg(dc); err != nil {
			return msgp.WrapError(err, i)
		}
		traces = append(traces, trace)
	}
	*t = traces
	return nil
}

// DecodeMsg implements msgp.Decodable
func (t *Trace) DecodeMsg(dc *msgp.Reader) error {
	if dc.IsNil() {
		*t = nil
		return dc.ReadNil()
	}
	n, err := dc.ReadArrayHeader()
	if err != nil {
		return err
	}
	trace := make(Trace, 0, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		if dc.IsNil() {
			if err := dc.ReadNil(); err != nil {
				return msgp.WrapError(err, i)
			}
			continue
		}
		span := &Span{}
		if err := span.DecodeMsg(dc); err != nil {
			return msgp.WrapError(err, i)
		}
		trace = append(trace, span)
	}
	*t = trace
	return nil
}

// DecodeMsg implements msgp.Decodable
func (s *Span) DecodeMsg(dc *msgp.Reader) error {
	n, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	for ; n > 0; n-- {
		key, err := dc.ReadMapKeyPtr()
		if err != nil {
			return err
		}
		field := string(key)
		switch field {
		case "trace_id":
			s.TraceID, err = parseUint64(dc)
		case "span_id":
			s.SpanID, err = parseUint64(dc)
		case "parent_id":
			s.ParentID, err = parseUint64(dc)
		case "name":
			s.Name, err = parseString(dc)
		case "resource":
			s.Resource, err = parseString(dc)
		case "service":
			s.Service, err = parseString(dc)
		case "type":
			s.Type, err = parseString(dc)
		case "start":
			s.Start, err = parseInt64(dc)
		case "duration":
			s.Duration, err = parseInt64(dc)
		case "error":
			s.Error, err = parseInt32(dc)
		case "meta":
			s.Meta, err = parseStringMap(dc)
		case "metrics":
			s.Metrics, err = parseFloat64Map(dc)
		default:
			err = dc.Skip()
		}
		if err != nil {
			return msgp.WrapError(err, field)
		}
	}
	return nil
}

func parseString(dc *msgp.Reader) (string, error) {
	t, err := dc.NextType()
	if err != nil {
		return "", err
	}
	switch t {
	case msgp.NilType:
		return "", dc.ReadNil()
	case msgp.BinType:
		b, err := dc.ReadBytes(nil)
		return string(b), err
	default:
		return dc.ReadString()
	}
}

func parseUint64(dc *msgp.Reader) (uint64, error) {
	t, err := dc.NextType()
	if err != nil {
		return 0, err
	}
	switch t {
	case msgp.NilType:
		return 0, dc.ReadNil()
	case msgp.UintType:
		return dc.ReadUint64()
	case msgp.IntType:
		i, err := dc.ReadInt64()
		return uint64(i), err
	case msgp.Float64Type, msgp.Float32Type:
		f, err := parseFloat64(dc)
		return uint64(f), err
	default:
		return 0, msgp.TypeError{Method: msgp.UintType, Encoded: t}
	}
}

func parseInt64(dc *msgp.Reader) (int64, error) {
	t, err := dc.NextType()
	if err != nil {
		return 0, err
	}
	switch t {
	case msgp.NilType:
		return 0, dc.ReadNil()
	case msgp.IntType:
		return dc.ReadInt64()
	case msgp.UintType:
		u, err := dc.ReadUint64()
		return int64(u), err
	case msgp.Float64Type, msgp.Float32Type:
		f, err := parseFloat64(dc)
		return int64(f), err
	default:
		return 0, msgp.TypeError{Method: msgp.IntType, Encoded: t}
	}
}

func parseInt32(dc *msgp.Reader) (int32, error) {
	t, err := dc.NextType()
	if err != nil {
		return 0, err
	}
	if t == msgp.BoolType {
		b, err := dc.ReadBool()
		if b {
			return 1, err
		}
		return 0, err
	}
	i, err := parseInt64(dc)
	return int32(i), err
}

func parseFloat64(dc *msgp.Reader) (float64, error) {
	t, err := dc.NextType()
	if err != nil {
		return 0, err
	}
	switch t {
	case msgp.NilType:
		return 0, dc.ReadNil()
	case msgp.Float64Type:
		return dc.ReadFloat64()
	case msgp.Float32Type:
		f, err := dc.ReadFloat32()
		return float64(f), err
	case msgp.IntType:
		i, err := dc.ReadInt64()
		return float64(i), err
	case msgp.UintType:
		u, err := dc.ReadUint64()
		return float64(u), err
	default:
		return 0, msgp.TypeError{Method: msgp.Float64Type, Encoded: t}
	}
}

func parseStringMap(dc *msgp.Reader) (map[string]string, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	n, err := dc.ReadMapHeader()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, min(n, maxPrealloc))
	for ; n > 0; n-- {
		k, err := parseString(dc)
		if err != nil {
			return nil, err
		}
		v, err := parseString(dc)
		if err != nil {
			return nil, msgp.WrapError(err, k)
		}
		m[k] = v
	}
	return m, nil
}

func parseFloat64Map(dc *msgp.Reader) (map[string]float64, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	n, err := dc.ReadMapHeader()
	if err != nil {
		return nil, err
	}
	m := make(map[string]float64, min(n, maxPrealloc))
	for ; n > 0; n-- {
		k, err := parseString(dc)
		if err != nil {
			return nil, err
		}
		v, err := parseFloat64(dc)
		if err != nil {
			return nil, msgp.WrapError(err, k)
		}
		m[k] = v
	}
	return m, nil
}

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

package api

import (
	"bytes"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeError is returned when a request body cannot be turned into traces.
type DecodeError struct {
	ContentType     string
	ContentEncoding string
	Err             error
}

func (e *DecodeError) Error() string {
	mediaType := e.ContentType
	if mediaType == "" {
		mediaType = ContentTypeMsgpack
	}
	if e.ContentEncoding != "" {
		return fmt.Sprintf("cannot decode %s (%s) traces payload: %v", mediaType, e.ContentEncoding, e.Err)
	}
	return fmt.Sprintf("cannot decode %s traces payload: %v", mediaType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeRequest inflates and decodes the body of req. Any failure is returned
// as a *DecodeError.
func DecodeRequest(req *Request) (Traces, error) {
	mediaType := req.MediaType()
	encoding := req.ContentEncoding()
	body, err := Inflate(req.Body, encoding)
	if err != nil {
		return nil, &DecodeError{ContentType: mediaType, ContentEncoding: encoding, Err: err}
	}
	traces, err := DecodeTraces(bytes.NewReader(body), mediaType)
	if err != nil {
		return nil, &DecodeError{ContentType: mediaType, ContentEncoding: encoding, Err: err}
	}
	return traces, nil
}

// DecodeTraces decodes a payload of the given media type. Tracers posting to
// the mock agent default to msgpack, so an empty media type is decoded as
// msgpack.
func DecodeTraces(r io.Reader, mediaType string) (Traces, error) {
	var traces Traces
	switch mediaType {
	case ContentTypeMsgpack, "":
		if err := msgp.Decode(r, &traces); err != nil {
			return nil, err
		}
	case ContentTypeJSON, "text/json":
		if err := json.NewDecoder(r).Decode(&traces); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown content type: %q", mediaType)
	}
	return traces, nil
}

// Inflate decompresses payload according to its Content-Encoding.
func Inflate(payload []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "", "identity":
		return payload, nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "deflate")
		}
		defer r.Close()
		return io.ReadAll(r)
	case "zstd":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		defer dec.Close()
		return dec.DecodeAll(payload, nil)
	default:
		return nil, fmt.Errorf("unsupported content encoding: %q", encoding)
	}
}

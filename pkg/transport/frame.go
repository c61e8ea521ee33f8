package transport

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes the role of a frame on the link.
type Kind string

const (
	KindRequest  Kind = "req"
	KindResponse Kind = "resp"
	KindTopic    Kind = "topic"
	KindError    Kind = "err"
)

// Frame is the unit exchanged over a Link.
type Frame struct {
	Kind Kind            `json:"kind"`
	Path string          `json:"path"`
	Seq  uint32          `json:"seq"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Header is the addressing part of a frame handed to endpoint handlers.
type Header struct {
	Path string
	Seq  uint32
}

// Error codes carried in error frames.
const (
	CodeUnknownPath = "unknown_path"
	CodeBadRequest  = "bad_request"
	CodeHandler     = "handler"
)

// WireError is the body of an error frame.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode serializes a frame for a single link message.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}

// Decode parses a single link message into a frame.
// Any malformed message yields an error wrapping ErrDecode.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch f.Kind {
	case KindRequest, KindResponse, KindTopic, KindError:
	default:
		return Frame{}, fmt.Errorf("%w: unknown frame kind %q", ErrDecode, f.Kind)
	}
	if f.Path == "" {
		return Frame{}, fmt.Errorf("%w: frame without path", ErrDecode)
	}
	return f, nil
}

func newFrame(kind Kind, path string, seq uint32, body any) (Frame, error) {
	f := Frame{Kind: kind, Path: path, Seq: seq}
	if body == nil {
		return f, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to marshal %s body for %q: %w", kind, path, err)
	}
	f.Body = data
	return f, nil
}

// decodeBody unmarshals a frame body into T. An empty body yields the zero value.
func decodeBody[T any](body json.RawMessage) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

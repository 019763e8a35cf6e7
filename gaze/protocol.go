package gaze

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Binary wire format: little-endian float32 fields, 8, 12 or 16 bytes.
// ┌──────┬──────┬───────────┬────────────┐
// │  x   │  y   │ timestamp │ confidence │
// │ f32  │ f32  │ f32 (opt) │ f32 (opt)  │
// └──────┴──────┴───────────┴────────────┘
//
// Text wire format: a JSON object, one of
//
//	{"type":"hello","name":"...","version":"..."}
//	{"error":"..."}
//	{"status":"..."}
//	{"x_px"|"x": n, "y_px"|"y": n, "timestamp"?: n, "confidence"?: n, "seq"?: n, "cell"?: {"row": n, "col": n}}

// Kind identifies what a decoded message carries.
type Kind int

const (
	KindSample Kind = iota
	KindHello
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindSample:
		return "sample"
	case KindHello:
		return "hello"
	case KindStatus:
		return "status"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cell is a grid cell chosen by the gaze source, with its own boundary
// hysteresis already applied.
type Cell struct {
	Row int
	Col int
}

// Sample is one gaze observation. X and Y are either normalized (0-1) or
// pixels; see ToScreen.
type Sample struct {
	X          float64
	Y          float64
	Timestamp  float64 // seconds since the Unix epoch
	Confidence float64 // 0-1
	Seq        uint64
	Cell       *Cell
}

// ServerIdentity is sent by the gaze source once per connection.
type ServerIdentity struct {
	Name    string
	Version string
}

// Message is the result of decoding one wire message. Exactly one of
// Sample, Identity or Status is meaningful, selected by Kind.
type Message struct {
	Kind     Kind
	Sample   Sample
	Identity ServerIdentity
	Status   string
}

// DecodeError reports a payload that could not be decoded.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode: " + e.Reason + ": " + e.Err.Error()
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RemoteError is an error message sent by the gaze source.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "gaze source: " + e.Message }

// Decode decodes one wire message. binary selects the binary float format;
// otherwise payload is JSON text. now stamps samples that carry no timestamp.
func Decode(payload []byte, binary bool, now time.Time) (Message, error) {
	if binary {
		s, err := DecodeBinary(payload, now)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindSample, Sample: s}, nil
	}
	return DecodeText(payload, now)
}

// DecodeBinary decodes an 8, 12 or 16 byte float payload.
func DecodeBinary(b []byte, now time.Time) (Sample, error) {
	switch len(b) {
	case 8, 12, 16:
	default:
		return Sample{}, &DecodeError{Reason: fmt.Sprintf("binary payload of %d bytes", len(b))}
	}

	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	s := Sample{
		X:          f(0),
		Y:          f(1),
		Timestamp:  unixSeconds(now),
		Confidence: 1.0,
	}
	if len(b) >= 12 {
		s.Timestamp = f(2)
	}
	if len(b) == 16 {
		s.Confidence = f(3)
	}
	return s, nil
}

// EncodeBinary is the inverse of DecodeBinary for a full 16 byte payload.
func EncodeBinary(s Sample) []byte {
	b := make([]byte, 16)
	for i, v := range []float64{s.X, s.Y, s.Timestamp, s.Confidence} {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	}
	return b
}

// DecodeText parses a JSON object and decodes it with DecodeMap.
func DecodeText(text []byte, now time.Time) (Message, error) {
	var data map[string]any
	if err := json.Unmarshal(text, &data); err != nil {
		return Message{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	if data == nil {
		return Message{}, &DecodeError{Reason: "JSON is not an object"}
	}
	return DecodeMap(data, now)
}

// DecodeMap decodes an already parsed message. Keys are checked in order:
// type=hello, error, status (without coordinates), then coordinates.
func DecodeMap(data map[string]any, now time.Time) (Message, error) {
	if t, ok := data["type"].(string); ok && t == "hello" {
		return Message{Kind: KindHello, Identity: ServerIdentity{
			Name:    stringOr(data["name"], "Unknown"),
			Version: stringOr(data["version"], "1.0"),
		}}, nil
	}

	if v, ok := data["error"]; ok {
		return Message{}, &RemoteError{Message: fmt.Sprint(v)}
	}

	_, hasXPx := data["x_px"]
	_, hasX := data["x"]
	if v, ok := data["status"]; ok && !hasXPx && !hasX {
		return Message{Kind: KindStatus, Status: fmt.Sprint(v)}, nil
	}

	if !hasXPx && !hasX {
		return Message{}, &DecodeError{Reason: "unknown message format"}
	}

	s, err := decodeSample(data, now)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindSample, Sample: s}, nil
}

func decodeSample(data map[string]any, now time.Time) (Sample, error) {
	x, err := coordinate(data, "x_px", "x")
	if err != nil {
		return Sample{}, err
	}
	y, err := coordinate(data, "y_px", "y")
	if err != nil {
		return Sample{}, err
	}

	s := Sample{X: x, Y: y, Timestamp: unixSeconds(now), Confidence: 1.0}

	if v, ok := data["timestamp"]; ok {
		if s.Timestamp, err = number(v, "timestamp"); err != nil {
			return Sample{}, err
		}
	}
	if v, ok := data["confidence"]; ok {
		if s.Confidence, err = number(v, "confidence"); err != nil {
			return Sample{}, err
		}
	}
	if v, ok := data["seq"]; ok {
		n, err := number(v, "seq")
		if err != nil {
			return Sample{}, err
		}
		if n > 0 {
			s.Seq = uint64(n)
		}
	}
	if cell, ok := data["cell"].(map[string]any); ok {
		row, rowOK := cell["row"].(float64)
		col, colOK := cell["col"].(float64)
		if rowOK && colOK {
			s.Cell = &Cell{Row: int(row), Col: int(col)}
		}
	}
	return s, nil
}

// coordinate reads the preferred key, falling back to the second one.
func coordinate(data map[string]any, preferred, fallback string) (float64, error) {
	if v, ok := data[preferred]; ok {
		return number(v, preferred)
	}
	if v, ok := data[fallback]; ok {
		return number(v, fallback)
	}
	return 0, &DecodeError{Reason: "missing " + fallback}
}

func number(v any, key string) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, &DecodeError{Reason: fmt.Sprintf("%s is %T, not a number", key, v)}
	}
	return f, nil
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// ToScreen converts a sample to screen units. Values above 1 on either axis
// are taken as pixels and pass through; otherwise both axes are normalized
// fractions scaled by width and height.
func ToScreen(s Sample, width, height float64) (x, y float64) {
	if s.X > 1 || s.Y > 1 {
		return s.X, s.Y
	}
	return s.X * width, s.Y * height
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Package asset defines the Ember engine's binary asset file formats:
// model files (.msh), animation clips (.ani) and material records (.mat).
// Both writers and parsers are provided; the parsers back the round-trip
// tests and the inspection tooling.
//
// All binary fields are little-endian. Strings are stored as an int32
// byte count followed by the raw bytes, no terminator.
package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Format errors.
var (
	ErrBadMagic           = errors.New("unrecognized file magic")
	ErrUnsupportedVersion = errors.New("unsupported file version")
	ErrTruncated          = errors.New("truncated asset data")
)

// Writer serializes little-endian primitives and length-prefixed strings.
// The first write error sticks; later calls are no-ops and Err reports it.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Put writes any fixed-size value or slice of fixed-size values.
func (w *Writer) Put(v interface{}) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

// PutString writes an int32 length prefix followed by the raw bytes.
func (w *Writer) PutString(s string) {
	w.Put(int32(len(s)))
	w.PutBytes([]byte(s))
}

// PutBytes writes raw bytes with no prefix.
func (w *Writer) PutBytes(b []byte) {
	if w.err != nil || len(b) == 0 {
		return
	}
	_, w.err = w.w.Write(b)
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

// readValue reads a little-endian value, mapping io errors to ErrTruncated.
func readValue(r *bytes.Reader, v interface{}) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return ErrTruncated
	}
	return nil
}

// readString reads a length-prefixed string.
func readString(r *bytes.Reader) (string, error) {
	var n int32
	if err := readValue(r, &n); err != nil {
		return "", err
	}
	if n < 0 || int(n) > r.Len() {
		return "", ErrTruncated
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrTruncated
	}
	return string(buf), nil
}

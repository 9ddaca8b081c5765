// Package sse frames chat-completion chunks as server-sent events.
package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

var (
	dataPrefix  = []byte("data: ")
	errorPrefix = []byte("event: error\ndata: ")
	suffix      = []byte("\n\n")
	done        = []byte("data: [DONE]\n\n")
)

// DoneMarker is the payload of the record terminating a stream.
const DoneMarker = "[DONE]"

// Writer writes SSE records to an underlying writer. Every record is issued
// with a single Write call so a pipe reader never observes half a record.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing records onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteChunk encodes v as JSON and writes it as a "data" record.
func (s *Writer) WriteChunk(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return s.write(dataPrefix, data)
}

// WriteError encodes v as JSON and writes it as an "error" event.
func (s *Writer) WriteError(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return s.write(errorPrefix, data)
}

// WriteDone writes the end-of-stream marker.
func (s *Writer) WriteDone() error {
	_, err := s.w.Write(done)
	return err
}

func (s *Writer) write(prefix, data []byte) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	buf.Grow(len(prefix) + len(data) + len(suffix))
	buf.Write(prefix)
	buf.Write(data)
	buf.Write(suffix)
	_, err := s.w.Write(buf.Bytes())
	return err
}

// Marshal encodes v as compact JSON without HTML escaping and without the
// trailing newline json.Encoder appends.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

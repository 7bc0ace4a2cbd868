// Package sse implements an incremental decoder for the text/event-stream
// wire format. Encoding is left to github.com/gin-contrib/sse, which the
// server side uses; this package exists because that library's Decode reads
// the whole stream to EOF and therefore cannot consume a live stream.
package sse

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultEventName is assigned to events that carry no event: field,
// matching the EventSource specification.
const DefaultEventName = "message"

// maxLineBytes bounds a single stream line. Payloads are small JSON
// documents; anything near this limit indicates a misbehaving server.
const maxLineBytes = 1 << 20

// Event is a single decoded server-sent event.
type Event struct {
	// Name is the event type from the event: field.
	Name string
	// Data is the payload with the trailing newline removed. Multi-line
	// data: fields are joined with newlines per the EventSource wire format.
	Data []byte
	// ID is the last-event-id, when the server sets one.
	ID string
	// Retry is the server's reconnection delay hint, zero when absent.
	Retry time.Duration
}

// Decoder reads events from a stream one at a time.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Decoder{scanner: scanner}
}

// Next blocks until a complete event has been read and returns it. It
// returns io.EOF when the stream ends cleanly and the underlying read error
// otherwise. Comment lines and events with an empty data buffer are skipped
// rather than surfaced.
func (d *Decoder) Next() (Event, error) {
	ev := Event{Name: DefaultEventName}
	var data bytes.Buffer

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if line == "" {
			// Blank line dispatches the accumulated event. An empty
			// data buffer means nothing to dispatch; reset and keep
			// reading.
			if data.Len() == 0 {
				ev = Event{Name: DefaultEventName}
				continue
			}
			ev.Data = bytes.TrimSuffix(data.Bytes(), []byte("\n"))
			return ev, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
		case "id":
			ev.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// splitField separates an SSE field line into name and value, stripping the
// single optional space after the colon. Both "data:x" and "data: x" carry
// the value "x".
func splitField(line string) (string, string) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		// A line with no colon is a field with an empty value.
		return line, ""
	}
	value = strings.TrimPrefix(value, " ")
	return name, value
}

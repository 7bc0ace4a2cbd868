package sse

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	ginsse "github.com/gin-contrib/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderNamedEvent(t *testing.T) {
	stream := "event: status\ndata: {\"id\":\"ent-1\",\"progress\":50}\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", ev.Name)
	assert.Equal(t, `{"id":"ent-1","progress":50}`, string(ev.Data))

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoderDefaultEventName(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: hello\n\n"))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, DefaultEventName, ev.Name)
	assert.Equal(t, "hello", string(ev.Data))
}

func TestDecoderMultilineData(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: line one\ndata: line two\n\n"))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(ev.Data))
}

func TestDecoderSkipsCommentsAndEmptyEvents(t *testing.T) {
	stream := ": keepalive\n\n: another comment\nevent: status\ndata: x\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", ev.Name)
	assert.Equal(t, "x", string(ev.Data))
}

// An event: field followed by a blank line without data must not dispatch,
// and must not leak its name into the next event.
func TestDecoderEmptyDataResetsEventName(t *testing.T) {
	stream := "event: heartbeat\n\ndata: payload\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, DefaultEventName, ev.Name)
	assert.Equal(t, "payload", string(ev.Data))
}

func TestDecoderIDAndRetry(t *testing.T) {
	stream := "id: 42\nretry: 3000\ndata: x\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "42", ev.ID)
	assert.Equal(t, 3*time.Second, ev.Retry)
}

func TestDecoderNoSpaceAfterColon(t *testing.T) {
	dec := NewDecoder(strings.NewReader("event:status\ndata:tight\n\n"))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", ev.Name)
	assert.Equal(t, "tight", string(ev.Data))
}

func TestDecoderSequentialEvents(t *testing.T) {
	stream := "event: status\ndata: one\n\nevent: heartbeat\ndata: two\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", first.Name)
	assert.Equal(t, "one", string(first.Data))

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "heartbeat", second.Name)
	assert.Equal(t, "two", string(second.Data))
}

// Round-trip through the encoder the server uses.
func TestDecoderReadsEncoderOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ginsse.Encode(&buf, ginsse.Event{
		Event: "status",
		Data:  map[string]interface{}{"id": "ent-1", "status": "queued"},
	}))
	require.NoError(t, ginsse.Encode(&buf, ginsse.Event{
		Event: "error",
		Data:  "boom",
	}))

	dec := NewDecoder(&buf)

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", first.Name)
	assert.Contains(t, string(first.Data), `"id":"ent-1"`)

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "error", second.Name)
	assert.Equal(t, "boom", string(second.Data))
}

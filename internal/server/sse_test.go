package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriter_WritesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.WriteSnapshot([]string{"a"}))
	sse.WriteError("retry")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: snapshot\ndata: [\"a\"]\n\nevent: error\ndata: {\"error\":\"retry\"}\n\n", rec.Body.String())
}

func TestSSEWriter_NoWritesAfterClose(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	sse.Close()
	sse.Close()
	assert.ErrorIs(t, sse.WriteSnapshot("late"), errStreamClosed)
	sse.WriteError("late")
	assert.Empty(t, rec.Body.String())
}

package mw_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/util/log"
	"github.com/wkalt/colq/util/mw"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		log.Infof(r.Context(), "test")
	})

	t.Run("generates an id", func(t *testing.T) {
		buf := captureLogs(t)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
		require.NoError(t, err)
		recorder := httptest.NewRecorder()
		mw.WithRequestID(handler).ServeHTTP(recorder, req)
		id := recorder.Header().Get(mw.RequestIDHeader)
		_, err = uuid.Parse(id)
		require.NoError(t, err)
		require.Contains(t, buf.String(), "request_id="+id)
	})

	t.Run("reuses a client id", func(t *testing.T) {
		buf := captureLogs(t)
		id := uuid.New().String()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
		require.NoError(t, err)
		req.Header.Set(mw.RequestIDHeader, id)
		recorder := httptest.NewRecorder()
		mw.WithRequestID(handler).ServeHTTP(recorder, req)
		require.Equal(t, id, recorder.Header().Get(mw.RequestIDHeader))
		require.Contains(t, buf.String(), "request_id="+id)
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
		require.NoError(t, err)
		req.Header.Set(mw.RequestIDHeader, "not-a-uuid")
		recorder := httptest.NewRecorder()
		mw.WithRequestID(handler).ServeHTTP(recorder, req)
		require.NotEqual(t, "not-a-uuid", recorder.Header().Get(mw.RequestIDHeader))
	})
}

func TestWithRequestLogging(t *testing.T) {
	buf := captureLogs(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	mw.WithRequestLogging(handler).ServeHTTP(httptest.NewRecorder(), req)
	require.Contains(t, buf.String(), "path=/query")
	require.Contains(t, buf.String(), "method=POST")
}

package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/util/log"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestTags(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)
	ctx := log.AddTags(context.Background(), "request_id", "abc")
	ctx = log.AddTags(ctx, "table", "events")
	log.Infow(ctx, "scan", "partitions", 4)
	output := buf.String()
	require.Contains(t, output, "msg=scan")
	require.Contains(t, output, "partitions=4")
	require.Contains(t, output, "request_id=abc")
	require.Contains(t, output, "table=events")
}

func TestTagsDoNotLeakAcrossContexts(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)
	base := log.AddTags(context.Background(), "a", 1)
	left := log.AddTags(base, "b", 2)
	_ = log.AddTags(base, "c", 3)
	log.Infof(left, "hello %s", "world")
	require.Contains(t, buf.String(), "hello world")
	require.NotContains(t, buf.String(), "c=3")
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)
	ctx := context.Background()
	log.Debugw(ctx, "hidden")
	log.Warnf(ctx, "shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestAddTagsOddArguments(t *testing.T) {
	require.Panics(t, func() {
		log.AddTags(context.Background(), "key")
	})
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
		level     slog.Level
		ok        bool
	}{
		{"debug", "debug", slog.LevelDebug, true},
		{"uppercase", "WARN", slog.LevelWarn, true},
		{"empty is info", "", slog.LevelInfo, true},
		{"error", "error", slog.LevelError, true},
		{"invalid", "verbose", 0, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			level, err := log.ParseLevel(c.input)
			if !c.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.level, level)
		})
	}
}

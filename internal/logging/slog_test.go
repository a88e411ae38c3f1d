package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestSlogJSON_LevelsMatchZapShape(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewSlogJSON(&buf, "debug")
	require.NoError(t, err)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", errors.New("boom"))

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 4)

	want := []struct {
		level, msg, key string
	}{
		{"debug", "dbg", "a"},
		{"info", "inf", "b"},
		{"warn", "wrn", "c"},
		{"error", "err", "d"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, lines[i]["level"])
		assert.Equal(t, w.msg, lines[i]["msg"])
		assert.Contains(t, lines[i], w.key)
		assert.Contains(t, lines[i], "time")
	}
	assert.Equal(t, "boom", lines[3]["d"])
}

func TestSlogJSON_LevelThreshold(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"dbg", "inf", "wrn", "err"}},
		{"info", []string{"inf", "wrn", "err"}},
		{"WARN", []string{"wrn", "err"}},
		{"error", []string{"err"}},
		{"fatal", []string{"err"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewSlogJSON(&buf, tt.level)
			require.NoError(t, err)
			ctx := context.Background()

			log.Debug(ctx, "dbg")
			log.Info(ctx, "inf")
			log.Warn(ctx, "wrn")
			log.Error(ctx, "err")

			var got []string
			for _, l := range jsonLines(t, &buf) {
				got = append(got, l["msg"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlogJSON_BadLevel(t *testing.T) {
	_, err := NewSlogJSON(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil))).With("module", "cofounder")

	log.Info(context.Background(), "hello", "k", "v")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "cofounder", lines[0]["module"])
	assert.Equal(t, "v", lines[0]["k"])
}

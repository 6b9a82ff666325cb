package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_WritesLevelsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		`"level":"DEBUG"`, `"msg":"dbg"`, `"a":1`,
		`"level":"INFO"`, `"msg":"inf"`, `"b":2`,
		`"level":"WARN"`, `"c":3`,
		`"level":"ERROR"`, `"d":4`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, slog.LevelInfo).With("component", "worker")

	log.Info(context.Background(), "hello", "k", "v")
	log.Debug(context.Background(), "hidden")

	out := buf.String()
	assert.Contains(t, out, `"component":"worker"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.NotContains(t, out, "hidden")
}

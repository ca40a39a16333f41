package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel).Named("pipeline")
	l.Debug("hidden")
	l.Info("parsed", String("file", "a.pdf"), Int("rows", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "parsed", entry["msg"])
	assert.Equal(t, "pipeline", entry["logger"])
	assert.Equal(t, "a.pdf", entry["file"])
	assert.InDelta(t, 3, entry["rows"], 0)
}

func TestWithFilter(t *testing.T) {
	var buf bytes.Buffer
	opt, err := WithFilter("debug+:pipeline info+:*")
	require.NoError(t, err)
	l := New(&buf, DebugLevel, opt)

	l.Named("other").Debug("dropped")
	assert.Empty(t, buf.String())
	l.Named("pipeline").Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestGetFromContext(t *testing.T) {
	assert.Same(t, Default(), GetFromContext(context.Background()))

	l := New(&bytes.Buffer{}, WarnLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
}

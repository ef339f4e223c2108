package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")

	DatabaseCall("UPDATE", "wallets", "walletID", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "wallets", line["query"])
	assert.Equal(t, "bookbridge", line["app"])
}

func TestFromContext_UsesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "json")

	ctx := NewContext(context.Background(), Get().With("request_id", "req-1"))
	HTTPRequest(ctx, "GET", "/api/books", 200, 5*time.Millisecond)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, float64(200), line["status"])
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "error", "text")

	Info("hidden")
	assert.Empty(t, buf.String())

	JobRun("assess-overdue-fines", time.Second, errors.New("boom"))
	assert.Contains(t, buf.String(), "assess-overdue-fines")
}

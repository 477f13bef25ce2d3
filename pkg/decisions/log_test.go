package decisions

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
)

func TestLogRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelInfo, JSONFormat: true, Output: buf})
	r := NewLogRecorder(logger)

	ctx := logging.ContextWithRequestID(context.Background(), "req-77")
	require.NoError(t, r.Record(ctx, sampleDecision(t, "c1")))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Channel selected", line["message"])
	assert.Equal(t, "c1", line["customer_id"])
	assert.Equal(t, "whatsapp", line["channel"])
	assert.Equal(t, "req-77", line["request_id"])
	assert.Equal(t, "decision_log", line["component"])
}

package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func TestLogInjectionAttempt(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	requestID := uuid.New()

	auditor.LogInjectionAttempt(context.Background(), requestID, SQLInjectionDetails{
		ParamName:   "id",
		ParamValue:  "' OR '1'='1",
		Fingerprint: "s&sos",
	}, "192.168.1.100")

	entries := recorded.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "security_audit", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, requestID.String(), fields["request_id"])
	assert.Equal(t, "id", fields["param_name"])
	assert.Equal(t, "critical", fields["severity"])

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventSQLInjectionAttempt, event.EventType)
	assert.Equal(t, requestID, event.RequestID)
	assert.Equal(t, "192.168.1.100", event.ClientIP)
}

func TestLogParameterValidation(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogParameterValidation(context.Background(), uuid.New(), "from must be YYYY-MM-DD", "10.0.0.1")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "from must be YYYY-MM-DD", entries[0].ContextMap()["error"])
	assert.Equal(t, "warning", entries[0].ContextMap()["severity"])
}

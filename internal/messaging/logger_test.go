package messaging_test

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/serroba/quota-gate-go/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := messaging.NewZapLogger(zap.New(core))

	logger.Info("subscribed", watermill.LogFields{"topic": "ratelimit.quota"})
	logger.Error("publish failed", errors.New("boom"), nil)
	logger.With(watermill.LogFields{"consumer": "audit"}).Trace("tick", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "watermill", entries[0].LoggerName)
	assert.Equal(t, "ratelimit.quota", entries[0].ContextMap()["topic"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, "audit", entries[2].ContextMap()["consumer"])
}

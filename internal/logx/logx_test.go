package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetAndRestore(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	L().Info("stage done", zap.String("stage", "classify"))
	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "classify", entries[0].ContextMap()["stage"])

	Set(nil)
	L().Info("dropped")
	assert.Len(t, logs.All(), 1)
}

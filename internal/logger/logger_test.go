package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugRespectsVerboseFlag(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debug("shown %d", 2)
	Info("loaded %s", "index")
	Warn("slow file")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] shown 2")
	assert.Contains(t, out, "[INFO] loaded index")
	assert.Contains(t, out, "[WARN] slow file")
}

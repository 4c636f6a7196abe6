package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, false)
	logger.Debug().Msg("hidden")
	logger.Info().Str("user", "octocat").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "user=octocat")
	assert.NotContains(t, out, "\x1b[", "non-terminal output must not be coloured")
}

func TestSetupVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, true)
	logger.Debug().Msg("details")
	assert.Contains(t, buf.String(), "details")
}

func TestRetryLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, true)
	RetryLogger{Logger: logger}.Debug("performing request", "method", "POST", "retry", 1)
	out := buf.String()
	assert.Contains(t, out, "performing request")
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "retry=1")
}

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressIndicator_BarOutput(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator("neighbor sweep", 10, &buf, false)

	pi.Update(5)
	out := buf.String()
	assert.Contains(t, out, "neighbor sweep")
	assert.Contains(t, out, "5/10")
	assert.Contains(t, out, "50.0%")
}

func TestProgressIndicator_FinishReportsTotal(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator("permutations", 4, &buf, false)

	pi.Update(4)
	pi.Finish()
	assert.Contains(t, buf.String(), "permutations completed (4 items")
}

func TestProgressIndicator_PlainModeWritesNothingInPlace(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator("sweep", 100, &buf, true)

	for i := 1; i <= 100; i++ {
		pi.Update(i)
	}
	pi.Finish()

	// Plain mode goes through the logger, not the writer, and never uses
	// carriage returns.
	assert.NotContains(t, buf.String(), "\r")
	assert.False(t, strings.Contains(buf.String(), "█"))
}

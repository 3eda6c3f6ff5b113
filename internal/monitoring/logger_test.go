package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Mutates the package-level logger; not parallel.
func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("tracker update")
	assert.Equal(t, "tracker update", got)

	// nil installs a no-op, not a nil function.
	got = ""
	SetLogger(nil)
	Logf("discarded")
	assert.Empty(t, got)
	assert.NotNil(t, Logf)
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
}

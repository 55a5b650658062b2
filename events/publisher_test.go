package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/events"
)

func TestConnect_EmptyURLDisablesPublishing(t *testing.T) {
	p, err := events.Connect("", nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPublisher_NilSafe(t *testing.T) {
	var p *events.Publisher

	// Publishing sites never guard against a disabled publisher.
	assert.NotPanics(t, func() {
		p.StateChanged("run-1", "planning", "critiquing", 0)
		p.RunCompleted("run-1", "converged", 8.5, 4, 0)
		p.Close()
	})
}

package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/windowanchor/workspaced/pkg/types"
)

func TestReportWithNoSessionsIsNoop(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() {
		hub.Report("op-1", types.ProgressReport{Stage: "capturing"})
	})
}

func TestForOperationImplementsProgressSink(t *testing.T) {
	hub := NewHub(nil)
	var sink types.ProgressSink = hub.ForOperation("op-1")
	assert.NotPanics(t, func() {
		sink.Report(types.ProgressReport{Stage: "saving"})
	})
}

package docchat_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/mock"
	"github.com/stretchr/testify/assert"
)

func TestProgressReporters_Report(t *testing.T) {
	t.Parallel()

	var order []string
	first := &mock.ProgressReporter{
		ReportFn: func(_ context.Context, e docchat.ProgressEvent) { order = append(order, "first:"+e.Message) },
	}
	second := &mock.ProgressReporter{
		ReportFn: func(_ context.Context, e docchat.ProgressEvent) { order = append(order, "second:"+e.Message) },
	}

	rs := docchat.ProgressReporters{first, second}
	rs.Report(context.Background(), docchat.ProgressEvent{ProjectID: "p", Message: "hi", Timestamp: time.Now()})

	assert.Equal(t, []string{"first:hi", "second:hi"}, order)
}

func TestJobState_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, docchat.JobQueued.Terminal())
	assert.False(t, docchat.JobActive.Terminal())
	assert.True(t, docchat.JobCompleted.Terminal())
	assert.True(t, docchat.JobFailed.Terminal())
}

func TestProject_Validate(t *testing.T) {
	t.Parallel()

	p := &docchat.Project{ID: "p", SourceURL: "https://example.com"}
	assert.NoError(t, p.Validate())

	p.Status = "archived"
	assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(p.Validate()))
}

package jobs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerTracksStages(t *testing.T) {
	m := NewManager()
	first := m.Start("search", "clustering grid")
	second := m.Start("fit", "final clustering model")

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, Running, first.Status)

	listed := m.Jobs()
	require.Len(t, listed, 2)
	assert.Equal(t, "clustering grid", listed[0].Description)
	assert.Equal(t, "final clustering model", listed[1].Description)
}

func TestJobLifecycle(t *testing.T) {
	m := NewManager()
	job := m.Start("search", "tree grid")

	job.SetProgress(3, 12)
	assert.InDelta(t, 0.25, job.Progress, 1e-12)

	job.Logf("cell %d of %d", 3, 12)
	logs := job.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "cell 3 of 12", logs[0])

	job.Complete()
	assert.Equal(t, Completed, job.Status)
	assert.InDelta(t, 1, job.Progress, 1e-12)
	require.NotNil(t, job.EndTime)
	assert.GreaterOrEqual(t, job.Duration().Nanoseconds(), int64(0))
}

func TestJobFail(t *testing.T) {
	m := NewManager()
	job := m.Start("export", "elbow csv")

	cause := errors.New("disk full")
	job.Fail(cause)
	assert.Equal(t, Failed, job.Status)
	assert.Equal(t, cause, job.Err)
	require.NotNil(t, job.EndTime)
}

func TestSetProgressIgnoresZeroTotal(t *testing.T) {
	m := NewManager()
	job := m.Start("search", "empty grid")
	job.SetProgress(0, 0)
	assert.Zero(t, job.Progress)
}

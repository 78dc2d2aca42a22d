package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
)

// Job tracks one pipeline stage: a search run, a final fit, an export.
// Search runners feed Progress through their OnProgress callback.
type Job struct {
	ID          string
	Kind        string
	Description string
	Status      Status
	Progress    float64
	StartTime   time.Time
	EndTime     *time.Time
	Err         error
	logs        []string
	mu          sync.RWMutex
}

// Manager keeps the stages of one pipeline run, in start order.
type Manager struct {
	jobs []*Job
	mu   sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{}
}

// Start registers a new running job.
func (m *Manager) Start(kind, description string) *Job {
	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Description: description,
		Status:      Running,
		StartTime:   time.Now(),
	}
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
	return job
}

// Jobs lists all registered jobs in start order.
func (m *Manager) Jobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Job(nil), m.jobs...)
}

func (j *Job) SetProgress(done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if total > 0 {
		j.Progress = float64(done) / float64(total)
	}
}

func (j *Job) Logf(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logs = append(j.logs, fmt.Sprintf(format, args...))
}

func (j *Job) Logs() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]string(nil), j.logs...)
}

func (j *Job) Complete() {
	j.finish(Completed, nil)
}

func (j *Job) Fail(err error) {
	j.finish(Failed, err)
}

func (j *Job) finish(status Status, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.EndTime = &now
	j.Status = status
	j.Err = err
	if status == Completed {
		j.Progress = 1
	}
}

// Duration reports how long the job ran, or has been running.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

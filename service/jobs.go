package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/InfradynAB/infradyn1-sub003/config"
	"github.com/InfradynAB/infradyn1-sub003/model"
)

// JobStore is an in-memory store for document extraction jobs. Jobs are
// scratch state feeding the PO wizard, so they don't go to the database.
type JobStore struct {
	jobs    map[string]*model.Document
	mu      sync.RWMutex
	maxJobs int // Maximum jobs to keep, 0 = unlimited
}

var (
	globalJobs *JobStore
	jobsOnce   sync.Once
)

// InitJobStore initializes the global job store with configuration
func InitJobStore(cfg *config.JobsConfig) {
	jobsOnce.Do(func() {
		maxJobs := cfg.MaxJobs
		if maxJobs < 0 {
			maxJobs = 0
		}
		globalJobs = &JobStore{
			jobs:    make(map[string]*model.Document),
			maxJobs: maxJobs,
		}
		slog.Info("job store initialized", "max_jobs", maxJobs)
	})
}

// GetJobStore returns the global job store
func GetJobStore() *JobStore {
	if globalJobs == nil {
		// Fallback initialization with default settings
		globalJobs = &JobStore{
			jobs:    make(map[string]*model.Document),
			maxJobs: 100,
		}
	}
	return globalJobs
}

// Save stores a copy of the document so later reads and updates never
// share a struct with the caller.
func (s *JobStore) Save(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	stored := *doc
	s.jobs[doc.ID] = &stored

	s.cleanupIfNeeded()
}

// Get returns a copy of the job, or nil. The pipeline goroutine keeps
// mutating the stored record, so readers get a snapshot they can hold
// and serialize without racing it.
func (s *JobStore) Get(id string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.jobs[id]; ok {
		snapshot := *d
		return &snapshot
	}
	return nil
}

func (s *JobStore) GetByOrganization(organization string) []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, d := range s.jobs {
		if d.Organization == organization {
			snapshot := *d
			result = append(result, &snapshot)
		}
	}
	return result
}

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *JobStore) UpdateStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.jobs[id]; ok {
		d.Status = status
		d.ErrorMsg = errMsg
		d.UpdatedAt = time.Now()
	}
}

// UpdateParseTask records the external parse task ID for a job.
func (s *JobStore) UpdateParseTask(id, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.jobs[id]; ok {
		d.ParseTaskID = taskID
		d.UpdatedAt = time.Now()
	}
}

// FindByParseTask looks a job up by the external parse task ID and
// returns a copy, like Get.
func (s *JobStore) FindByParseTask(taskID string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.jobs {
		if d.ParseTaskID == taskID {
			snapshot := *d
			return &snapshot
		}
	}
	return nil
}

// UpdateExtracted stores the structured extraction result and marks the
// job completed.
func (s *JobStore) UpdateExtracted(id string, extracted any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.jobs[id]; ok {
		d.Extracted = extracted
		d.Status = model.StatusCompleted
		d.UpdatedAt = time.Now()
	}
}

// cleanupIfNeeded removes oldest jobs if the store exceeds maxJobs
// Must be called with lock held
func (s *JobStore) cleanupIfNeeded() {
	if s.maxJobs <= 0 {
		return // Unlimited
	}

	if len(s.jobs) <= s.maxJobs {
		return
	}

	jobs := make([]*model.Document, 0, len(s.jobs))
	for _, d := range s.jobs {
		jobs = append(jobs, d)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	removeCount := len(jobs) - s.maxJobs
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old extraction job",
			"job_id", jobs[i].ID,
			"created_at", jobs[i].CreatedAt,
		)
		delete(s.jobs, jobs[i].ID)
	}
}

// Count returns the number of jobs in the store
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

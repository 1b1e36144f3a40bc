package pipeline

import (
	"sync"
	"time"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
)

// JobStatus represents the state of a chapter parsing job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusNormalizing JobStatus = "normalizing"
	StatusFinalizing  JobStatus = "finalizing"
	StatusResolving   JobStatus = "resolving_images"
	StatusRendering   JobStatus = "rendering"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Job tracks the state of a single chapter through the pipeline.
type Job struct {
	mu sync.Mutex

	ID        string `json:"job_id"`
	ChapterID string `json:"chapter_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	markup        string
	imageFiles    map[string]string
	resolveImages bool

	result   *chapter.Chapter
	markdown string
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Sections       int      `json:"sections"`
	Questions      int      `json:"questions"`
	Images         int      `json:"images"`
	ImagesResolved int      `json:"images_resolved"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job for one chapter's decrypted markup.
func NewJob(id, chapterID, markup string, imageFiles map[string]string, resolveImages bool) *Job {
	now := time.Now()
	return &Job{
		ID:            id,
		ChapterID:     chapterID,
		Status:        StatusQueued,
		Phase:         "queued",
		CreatedAt:     now,
		UpdatedAt:     now,
		markup:        markup,
		imageFiles:    imageFiles,
		resolveImages: resolveImages,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetCounts records the structural counts after parsing.
func (j *Job) SetCounts(sections, questions, images int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Sections = sections
	j.Progress.Questions = questions
	j.Progress.Images = images
	j.UpdatedAt = time.Now()
}

// SetImagesResolved records how many image URLs mapped to local files.
func (j *Job) SetImagesResolved(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ImagesResolved = n
	j.UpdatedAt = time.Now()
}

// Input returns the job's raw markup and image resolution options.
func (j *Job) Input() (markup string, imageFiles map[string]string, resolveImages bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.markup, j.imageFiles, j.resolveImages
}

// SetResult stores the finished chapter and its rendered markdown.
func (j *Job) SetResult(ch *chapter.Chapter, markdown string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = ch
	j.markdown = markdown
	j.UpdatedAt = time.Now()
}

// Result returns the finished chapter and markdown; both are zero until
// the job completes.
func (j *Job) Result() (*chapter.Chapter, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.markdown
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	ChapterID string    `json:"chapter_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:        j.ID,
		ChapterID: j.ChapterID,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress: Progress{
			Sections:       j.Progress.Sections,
			Questions:      j.Progress.Questions,
			Images:         j.Progress.Images,
			ImagesResolved: j.Progress.ImagesResolved,
			Errors:         errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

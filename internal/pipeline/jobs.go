package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/notepress/internal/allocate"
)

// JobStatus represents the state of a publishing job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusFormatting JobStatus = "formatting"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single document through the pipeline.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
	SourceURL   string    `json:"source_url,omitempty"`
	Compact     bool      `json:"compact"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Results, populated as phases complete.
	QualityScore    float64          `json:"quality_score"`
	PageID          string           `json:"page_id,omitempty"`
	BlocksPublished int              `json:"blocks_published"`
	Report          *allocate.Report `json:"report,omitempty"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
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
	j.UpdatedAt = time.Now()
}

// SetResult records the publishing outcome.
func (j *Job) SetResult(pageID string, blocksPublished int, report *allocate.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PageID = pageID
	j.BlocksPublished = blocksPublished
	j.Report = report
	j.UpdatedAt = time.Now()
}

// EnsureTitle fills in the title when the submitter left it empty and
// returns the effective title. Status polls can read the job at any
// phase, so the write has to hold the lock like every other setter.
func (j *Job) EnsureTitle(fallback string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Title == "" {
		j.Title = fallback
	}
	return j.Title
}

// SetContentHash records the hash of the parsed content.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// SetQuality records the analysis quality score.
func (j *Job) SetQuality(score float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.QualityScore = score
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID              string           `json:"job_id"`
	DocID           string           `json:"doc_id"`
	Status          JobStatus        `json:"status"`
	Phase           string           `json:"phase"`
	Filename        string           `json:"filename"`
	Title           string           `json:"title"`
	ContentType     string           `json:"content_type"`
	QualityScore    float64          `json:"quality_score"`
	PageID          string           `json:"page_id,omitempty"`
	BlocksPublished int              `json:"blocks_published"`
	Report          *allocate.Report `json:"report,omitempty"`
	Errors          []string         `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:              j.ID,
		DocID:           j.DocID,
		Status:          j.Status,
		Phase:           j.Phase,
		Filename:        j.Filename,
		Title:           j.Title,
		ContentType:     j.ContentType,
		QualityScore:    j.QualityScore,
		PageID:          j.PageID,
		BlocksPublished: j.BlocksPublished,
		Report:          j.Report,
		Errors:          errs,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

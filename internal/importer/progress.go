package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrProgressNotFound is returned when no progress exists for a job id,
// either because it never ran or its key expired.
var ErrProgressNotFound = errors.New("import job not found")

// Progress is the live state of one import job, readable while the
// import is still running.
type Progress struct {
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"` // running, completed, failed
	TotalRows     int       `json:"total_rows"`
	ProcessedRows int       `json:"processed_rows"`
	InsertedRows  int       `json:"inserted_rows"`
	ErrorCount    int       `json:"error_count"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProgressTracker stores import progress in Redis so the dashboard can
// poll it while a large file is being inserted.
type ProgressTracker struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewProgressTracker creates a tracker. Zero TTL defaults to one hour.
func NewProgressTracker(client *redis.Client, ttl time.Duration) *ProgressTracker {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &ProgressTracker{redis: client, ttl: ttl}
}

func progressKey(jobID string) string {
	return fmt.Sprintf("import:progress:%s", jobID)
}

func (t *ProgressTracker) write(ctx context.Context, p *Progress) {
	p.UpdatedAt = time.Now()
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("[Import] marshal progress for %s: %v", p.JobID, err)
		return
	}
	if err := t.redis.Set(ctx, progressKey(p.JobID), data, t.ttl).Err(); err != nil {
		// Progress is best-effort; the import itself must not care.
		log.Printf("[Import] progress write for %s: %v", p.JobID, err)
	}
}

// Get returns the progress for a job id. A nil tracker reports every
// job as unknown, which is what callers see when Redis is down.
func (t *ProgressTracker) Get(ctx context.Context, jobID string) (*Progress, error) {
	if t == nil {
		return nil, ErrProgressNotFound
	}
	data, err := t.redis.Get(ctx, progressKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

func (imp *Importer) trackStart(ctx context.Context, jobID string, total int) {
	if imp.progress == nil {
		return
	}
	imp.progress.write(ctx, &Progress{
		JobID:     jobID,
		Status:    "running",
		TotalRows: total,
		StartedAt: time.Now(),
	})
}

func (imp *Importer) trackBatch(ctx context.Context, jobID string, processed, total, inserted, errCount int) {
	if imp.progress == nil {
		return
	}
	p, err := imp.progress.Get(ctx, jobID)
	if err != nil {
		p = &Progress{JobID: jobID, Status: "running", TotalRows: total, StartedAt: time.Now()}
	}
	p.ProcessedRows = processed
	p.InsertedRows = inserted
	p.ErrorCount = errCount
	imp.progress.write(ctx, p)
}

func (imp *Importer) trackDone(ctx context.Context, jobID string, s Summary, status string) {
	if imp.progress == nil {
		return
	}
	p, err := imp.progress.Get(ctx, jobID)
	if err != nil {
		p = &Progress{JobID: jobID, StartedAt: time.Now()}
	}
	p.Status = status
	p.TotalRows = s.Total
	p.ProcessedRows = s.Total
	p.InsertedRows = s.Success
	p.ErrorCount = s.Errors
	imp.progress.write(ctx, p)
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/mocapd/internal/bvh"
	"github.com/dgallion1/mocapd/internal/clipstore"
	"github.com/dgallion1/mocapd/internal/rigstore"
	"github.com/dgallion1/mocapd/internal/skeleton"
)

// Worker processes a single clip ingestion job.
type Worker struct {
	clips *clipstore.Store
	rig   *rigstore.Client
	stats *ParseStats
	log   *slog.Logger

	// publishSem bounds concurrent PutClip calls across all workers.
	publishSem chan struct{}
}

func NewWorker(clips *clipstore.Store, rig *rigstore.Client, stats *ParseStats, publishSem chan struct{}, log *slog.Logger) *Worker {
	return &Worker{
		clips:      clips,
		rig:        rig,
		stats:      stats,
		log:        log,
		publishSem: publishSem,
	}
}

// Process runs the full ingest pipeline for a job: parse, dedup, store,
// publish to rigstore.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "clip_id", job.ClipID, "filename", job.Filename)

	// Phase 1: Parse.
	job.SetStatus(StatusParsing, "parsing")
	start := time.Now()
	doc, err := bvh.Parse(bytes.NewReader(job.FileData()))
	w.stats.Record(time.Since(start).Milliseconds())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	// Raw bytes are no longer needed; the job may outlive the upload by its
	// whole TTL.
	job.SetFileData(nil)
	job.SetResult(doc.FrameCount, doc.JointCount(), len(doc.Curves))

	// Phase 2: Dedup check.
	if existing := w.clips.FindByHash(job.ContentHash); existing != "" {
		log.Info("duplicate clip, skipping", "existing_clip_id", existing)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	name := job.Name
	if name == "" {
		name = doc.Root.Name
	}
	clip := &clipstore.Clip{
		ID:          job.ClipID,
		Name:        name,
		Filename:    job.Filename,
		ContentHash: job.ContentHash,
		CreatedAt:   job.CreatedAt,
		Doc:         doc,
	}
	w.clips.Put(clip)
	log.Info("clip parsed", "joints", doc.JointCount(), "channels", len(doc.Curves), "frames", doc.FrameCount)

	// Phase 3: Publish the summary to the retargeting service, bounded by
	// the shared publish semaphore.
	job.SetStatus(StatusPublishing, "publishing")
	rec := clipRecord(clip, doc)
	w.publishSem <- struct{}{}
	defer func() { <-w.publishSem }()
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.rig.PutClip(ctx, clip.ID, rec)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable publish error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		// The clip stays queryable locally even when publication fails.
		log.Error("publish failed", "error", lastErr)
		job.AddError(fmt.Sprintf("publish: %s", lastErr))
		job.SetStatus(StatusFailed, "publishing")
		return
	}

	job.SetStatus(StatusCompleted, "done")
}

func clipRecord(clip *clipstore.Clip, doc *skeleton.Document) rigstore.ClipRecord {
	var joints []string
	for n := range doc.Root.All() {
		joints = append(joints, n.Name)
	}
	return rigstore.ClipRecord{
		Name:            clip.Name,
		ContentHash:     clip.ContentHash,
		JointCount:      len(joints),
		ChannelCount:    len(doc.Curves),
		FrameCount:      doc.FrameCount,
		FrameTime:       doc.FrameTime,
		DurationSeconds: doc.Duration().Seconds(),
		Joints:          joints,
		Source:          "mocapd:" + clip.ID,
	}
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/mocapd/internal/clipstore"
	"github.com/dgallion1/mocapd/internal/rigstore"
)

const workerBVH = `HIERARCHY
ROOT Hips
{
  OFFSET 0 0 0
  CHANNELS 3 Zrotation Xrotation Yrotation
  End Site
  {
    OFFSET 0 1 0
  }
}
MOTION
Frames: 1
Frame Time: 0.05
10.0 20.0 30.0
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestJob(id, clipID string, data []byte) *Job {
	now := time.Now()
	job := &Job{
		ID:          id,
		ClipID:      clipID,
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    "take.bvh",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	job.SetFileData(data)
	return job
}

func TestWorker_ProcessPublishesClip(t *testing.T) {
	var published rigstore.ClipRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&published); err != nil {
			t.Errorf("decode clip record: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	clips := clipstore.New()
	rig := rigstore.NewClient(srv.URL, "test-key")
	w := NewWorker(clips, rig, NewParseStats(time.Hour), make(chan struct{}, 1), discardLogger())

	job := newTestJob("job-1", "clip-1", []byte(workerBVH))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (%v)", StatusCompleted, snap.Status, snap.Errors)
	}
	if snap.Frames != 1 || snap.Joints != 1 || snap.Channels != 3 {
		t.Errorf("unexpected result counters: %+v", snap)
	}

	clip := clips.Get("clip-1")
	if clip == nil {
		t.Fatal("expected clip in store")
	}
	if clip.Name != "Hips" {
		t.Errorf("expected clip named after root joint, got %q", clip.Name)
	}

	if published.FrameCount != 1 || published.ChannelCount != 3 {
		t.Errorf("unexpected published record: %+v", published)
	}
	if len(published.Joints) != 1 || published.Joints[0] != "Hips" {
		t.Errorf("expected published joints [Hips], got %v", published.Joints)
	}
}

func TestWorker_ProcessFailsOnMalformedInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("rigstore should not be called for a failed parse")
	}))
	defer srv.Close()

	clips := clipstore.New()
	rig := rigstore.NewClient(srv.URL, "test-key")
	w := NewWorker(clips, rig, NewParseStats(time.Hour), make(chan struct{}, 1), discardLogger())

	job := newTestJob("job-2", "clip-2", []byte("not a bvh file"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Errors) == 0 {
		t.Error("expected a recorded error")
	}
	if clips.Get("clip-2") != nil {
		t.Error("expected no clip stored on parse failure")
	}
}

func TestWorker_ProcessSkipsDuplicate(t *testing.T) {
	puts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		puts++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clips := clipstore.New()
	rig := rigstore.NewClient(srv.URL, "test-key")
	w := NewWorker(clips, rig, NewParseStats(time.Hour), make(chan struct{}, 1), discardLogger())

	first := newTestJob("job-3", "clip-3", []byte(workerBVH))
	w.Process(context.Background(), first)

	second := newTestJob("job-4", "clip-4", []byte(workerBVH))
	w.Process(context.Background(), second)

	snap := second.Snapshot()
	if snap.Status != StatusDupSkipped {
		t.Fatalf("expected status %q, got %q", StatusDupSkipped, snap.Status)
	}
	if puts != 1 {
		t.Errorf("expected exactly 1 publish, got %d", puts)
	}
	if clips.Get("clip-4") != nil {
		t.Error("duplicate upload should not add a second clip")
	}
}

func TestWorker_PublishConcurrencyBounded(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if n <= prev || maxInFlight.CompareAndSwap(prev, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clips := clipstore.New()
	rig := rigstore.NewClient(srv.URL, "test-key")
	sem := make(chan struct{}, 1)
	stats := NewParseStats(time.Hour)

	// Distinct inputs so dedup does not short-circuit either job.
	second := []byte(workerBVH + "\n")

	var wg sync.WaitGroup
	for i, data := range [][]byte{[]byte(workerBVH), second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := NewWorker(clips, rig, stats, sem, discardLogger())
			job := newTestJob(fmt.Sprintf("job-c%d", i), fmt.Sprintf("clip-c%d", i), data)
			w.Process(context.Background(), job)
		}()
	}
	wg.Wait()

	if got := maxInFlight.Load(); got > 1 {
		t.Errorf("expected at most 1 concurrent publish, saw %d", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&rigstore.RetryableError{Err: io.EOF}) {
		t.Error("RetryableError should be retryable")
	}
	if IsRetryable(io.EOF) {
		t.Error("plain error should not be retryable")
	}
}

func TestBackoff_Bounded(t *testing.T) {
	for attempt := range 10 {
		d := Backoff(attempt)
		if d < time.Second {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v above cap+jitter", attempt, d)
		}
	}
}

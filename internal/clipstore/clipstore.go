package clipstore

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/mocapd/internal/skeleton"
)

// Clip is a parsed motion clip held in memory, keyed by clip ID.
type Clip struct {
	ID          string
	Name        string
	Filename    string
	ContentHash string
	CreatedAt   time.Time

	Doc *skeleton.Document
}

// Summary is the JSON-safe view of a clip returned by list/get endpoints and
// published to rigstore.
type Summary struct {
	ID              string    `json:"clip_id"`
	Name            string    `json:"name"`
	Filename        string    `json:"filename"`
	ContentHash     string    `json:"content_hash"`
	JointCount      int       `json:"joint_count"`
	ChannelCount    int       `json:"channel_count"`
	FrameCount      int       `json:"frame_count"`
	FrameTime       float64   `json:"frame_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

func (c *Clip) Summary() Summary {
	return Summary{
		ID:              c.ID,
		Name:            c.Name,
		Filename:        c.Filename,
		ContentHash:     c.ContentHash,
		JointCount:      c.Doc.JointCount(),
		ChannelCount:    len(c.Doc.Curves),
		FrameCount:      c.Doc.FrameCount,
		FrameTime:       c.Doc.FrameTime,
		DurationSeconds: c.Doc.Duration().Seconds(),
		CreatedAt:       c.CreatedAt,
	}
}

// Store is a thread-safe in-memory clip registry.
type Store struct {
	mu     sync.Mutex
	clips  map[string]*Clip
	byHash map[string]string // content hash -> clip ID
}

func New() *Store {
	return &Store{
		clips:  make(map[string]*Clip),
		byHash: make(map[string]string),
	}
}

func (s *Store) Put(clip *Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[clip.ID] = clip
	if clip.ContentHash != "" {
		s.byHash[clip.ContentHash] = clip.ID
	}
}

func (s *Store) Get(id string) *Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clips[id]
}

// FindByHash returns the ID of an already-ingested clip with the same
// content hash, or "".
func (s *Store) FindByHash(hash string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byHash[hash]
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	clip, ok := s.clips[id]
	if !ok {
		return false
	}
	delete(s.clips, id)
	if clip.ContentHash != "" && s.byHash[clip.ContentHash] == id {
		delete(s.byHash, clip.ContentHash)
	}
	return true
}

// List returns summaries of all clips, newest first.
func (s *Store) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, 0, len(s.clips))
	for _, clip := range s.clips {
		out = append(out, clip.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

package viewer

import (
	"sort"
	"sync"
	"time"

	"github.com/hybridgroup/mjpeg"
)

// Snapshot is the last frame received from a camera.
type Snapshot struct {
	Camera     string
	JPEG       []byte
	ReceivedAt time.Time
	Count      uint64
}

// FrameStore keeps the latest JPEG and an MJPEG stream per camera.
type FrameStore struct {
	mu      sync.RWMutex
	latest  map[string]*Snapshot
	streams map[string]*mjpeg.Stream
}

// NewFrameStore creates an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{
		latest:  make(map[string]*Snapshot),
		streams: make(map[string]*mjpeg.Stream),
	}
}

// Put records img as the newest frame of camera and pushes it to the
// camera's MJPEG stream.
func (s *FrameStore) Put(camera string, img []byte) {
	s.mu.Lock()
	snap, ok := s.latest[camera]
	if !ok {
		snap = &Snapshot{Camera: camera}
		s.latest[camera] = snap
	}
	snap.JPEG = img
	snap.ReceivedAt = time.Now()
	snap.Count++
	stream := s.streamLocked(camera)
	s.mu.Unlock()

	stream.UpdateJPEG(img)
}

// Latest returns a copy of the newest snapshot of camera.
func (s *FrameStore) Latest(camera string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[camera]
	if !ok {
		return Snapshot{}, false
	}
	return *snap, true
}

// Cameras lists the cameras that have sent at least one frame.
func (s *FrameStore) Cameras() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.latest))
	for name := range s.latest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stream returns the MJPEG stream of camera, creating it if needed.
func (s *FrameStore) Stream(camera string) *mjpeg.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamLocked(camera)
}

func (s *FrameStore) streamLocked(camera string) *mjpeg.Stream {
	stream, ok := s.streams[camera]
	if !ok {
		stream = mjpeg.NewStream()
		s.streams[camera] = stream
	}
	return stream
}

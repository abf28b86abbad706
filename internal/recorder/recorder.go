// Package recorder captures fixed-length clips after a trigger and hands them
// to the dispatcher. A Slot keeps at most one recording in flight.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"eventcam/internal/detection"
	"eventcam/internal/frame"
	"eventcam/internal/logger"
	"eventcam/internal/models"
	"eventcam/internal/repository"
)

const (
	// DefaultDuration is the clip length when none is configured.
	DefaultDuration = 5 * time.Second
	// DefaultFPS is used when the source does not report a rate.
	DefaultFPS = 30.0
	// filenameLayout is the compact ISO 8601 timestamp used in clip names.
	filenameLayout = "20060102T150405.000"
	// ClipPrefix starts the name of every clip artifact.
	ClipPrefix = "event_"
)

// ErrEmptyClip is returned when no frame was captured; the artifact is
// removed and nothing is dispatched.
var ErrEmptyClip = errors.New("clip has no frames")

// ClipName returns the artifact name of a clip started at t.
func ClipName(t time.Time, ext string) string {
	return ClipPrefix + t.Format(filenameLayout) + ext
}

// ParseClipName returns the start time encoded in a clip artifact name.
func ParseClipName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, ClipPrefix) {
		return time.Time{}, false
	}
	stamp := strings.TrimPrefix(name, ClipPrefix)
	if len(stamp) < len(filenameLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(filenameLayout, stamp[:len(filenameLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// State is the recorder lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FeedSource hands out independent frame feeds.
type FeedSource interface {
	Subscribe(id string, buffer int) (*frame.Feed, error)
	FPS() float64
	Size() (width, height int)
}

// Dispatcher delivers a finished clip.
type Dispatcher interface {
	Dispatch(ctx context.Context, clip Clip) error
}

// Clip is a finalized recording.
type Clip struct {
	ID         string
	Camera     string
	Label      string
	Path       string
	StartedAt  time.Time
	Duration   time.Duration
	Frames     int
	Detections []detection.Detection
}

// Trigger describes the frame that started a recording.
type Trigger struct {
	Seq        uint64
	At         time.Time
	Detections []detection.Detection
}

// Options configures a Recorder.
type Options struct {
	Camera    string
	Label     string
	Duration  time.Duration
	Directory string
	Sink      ClipSink
}

// Recorder records one clip at a time. Calls to Record must be serialized,
// normally by running them through a Slot.
type Recorder struct {
	source     FeedSource
	dispatcher Dispatcher
	sink       ClipSink
	events     repository.EventRepository
	detections repository.DetectionRepository
	logger     *logger.Logger

	camera   string
	label    string
	duration time.Duration
	dir      string

	state atomic.Int32
}

// New creates a Recorder reading from source and delivering through dispatcher.
func New(source FeedSource, dispatcher Dispatcher, opts Options, logger *logger.Logger) (*Recorder, error) {
	if opts.Sink == nil {
		opts.Sink = MJPEGSink{}
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Directory == "" {
		opts.Directory = "."
	}
	if err := os.MkdirAll(opts.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create clip directory: %w", err)
	}
	return &Recorder{
		source:     source,
		dispatcher: dispatcher,
		sink:       opts.Sink,
		logger:     logger,
		camera:     opts.Camera,
		label:      opts.Label,
		duration:   opts.Duration,
		dir:        opts.Directory,
	}, nil
}

// WithEventStore records every clip and its delivery outcome.
func (r *Recorder) WithEventStore(events repository.EventRepository, detections repository.DetectionRepository) *Recorder {
	r.events = events
	r.detections = detections
	return r
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	return State(r.state.Load())
}

// Duration returns the configured clip length.
func (r *Recorder) Duration() time.Duration {
	return r.duration
}

// Record captures frames for the configured duration, finalizes the clip and
// dispatches it. Cancelling ctx does not stop a recording in progress; it
// ends at the deadline or when the feed fails.
func (r *Recorder) Record(ctx context.Context, trig Trigger) (Clip, error) {
	ctx = context.WithoutCancel(ctx)
	r.state.Store(int32(StateRecording))
	defer r.state.Store(int32(StateIdle))

	fps := r.source.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	width, height := r.source.Size()

	start := time.Now()
	clip := Clip{
		ID:         uuid.NewString(),
		Camera:     r.camera,
		Label:      r.label,
		StartedAt:  start,
		Detections: trig.Detections,
	}
	clip.Path = filepath.Join(r.dir, ClipName(start, r.sink.Ext()))

	feed, err := r.source.Subscribe("recorder-"+clip.ID, int(fps*r.duration.Seconds())+int(fps)+1)
	if err != nil {
		return clip, fmt.Errorf("failed to subscribe recorder feed: %w", err)
	}
	defer feed.Close()

	writer, err := r.sink.Create(clip.Path, fps, width, height)
	if err != nil {
		return clip, &WriteError{Op: "open", Path: clip.Path, Err: err}
	}
	r.logger.Info("🎬 Recording %s for %v (trigger frame %d)", filepath.Base(clip.Path), r.duration, trig.Seq)
	r.insertEvent(clip)

	recordErr := r.capture(feed, writer, &clip, start.Add(r.duration))

	r.state.Store(int32(StateFinalizing))
	if err := writer.Close(); err != nil && recordErr == nil {
		recordErr = &WriteError{Op: "close", Path: clip.Path, Err: err}
	}
	clip.Duration = time.Since(start)
	if clip.Duration > r.duration {
		clip.Duration = r.duration
	}

	if clip.Frames == 0 {
		if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
			r.logger.Warning("Failed to remove empty clip %s: %v", clip.Path, err)
		}
		r.logger.Warning("Recording %s captured no frames, skipping dispatch", filepath.Base(clip.Path))
		r.setStatus(clip.ID, models.StatusEmpty, errString(recordErr))
		return clip, errors.Join(ErrEmptyClip, recordErr)
	}

	if recordErr != nil {
		r.logger.Warning("Recording %s ended early with %d frames: %v", filepath.Base(clip.Path), clip.Frames, recordErr)
	}
	r.logger.Info("💾 Clip %s finalized: %d frames, %v", filepath.Base(clip.Path), clip.Frames, clip.Duration.Round(time.Millisecond))
	r.finishEvent(clip)

	if err := r.dispatcher.Dispatch(ctx, clip); err != nil {
		r.logger.Error("Failed to dispatch %s: %v", filepath.Base(clip.Path), err)
		r.setStatus(clip.ID, models.StatusFailed, err.Error())
		return clip, errors.Join(recordErr, err)
	}
	r.setStatus(clip.ID, models.StatusDelivered, errString(recordErr))
	return clip, recordErr
}

// capture appends frames captured within [start, deadline] until the
// deadline passes or the feed ends.
func (r *Recorder) capture(feed *frame.Feed, w ClipWriter, clip *Clip, deadline time.Time) error {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case f, ok := <-feed.C():
			if !ok {
				if err := feed.Err(); !errors.Is(err, frame.ErrEndOfStream) {
					return fmt.Errorf("frame feed ended: %w", err)
				}
				return nil
			}
			if f.CapturedAt.Before(clip.StartedAt) {
				continue
			}
			if f.CapturedAt.After(deadline) {
				return nil
			}
			if err := w.Write(f); err != nil {
				return &WriteError{Op: "write", Path: clip.Path, Err: err}
			}
			clip.Frames++
		case <-timer.C:
			return nil
		}
	}
}

func (r *Recorder) insertEvent(clip Clip) {
	if r.events == nil {
		return
	}
	ev := &models.Event{
		ID:        clip.ID,
		Camera:    clip.Camera,
		Label:     clip.Label,
		Filename:  filepath.Base(clip.Path),
		FilePath:  clip.Path,
		StartedAt: clip.StartedAt,
		Status:    models.StatusRecording,
	}
	if err := r.events.Insert(ev); err != nil {
		r.logger.Error("Failed to store event %s: %v", clip.ID, err)
		return
	}
	if r.detections == nil {
		return
	}
	dets := make([]models.Detection, 0, len(clip.Detections))
	for _, d := range clip.Detections {
		dets = append(dets, models.Detection{
			EventID:    clip.ID,
			ObjectName: d.Label,
			X:          d.Box.Min.X,
			Y:          d.Box.Min.Y,
			Width:      d.Box.Dx(),
			Height:     d.Box.Dy(),
			Confidence: d.Confidence,
		})
	}
	if err := r.detections.InsertBatch(dets); err != nil {
		r.logger.Error("Failed to store detections for %s: %v", clip.ID, err)
	}
}

func (r *Recorder) finishEvent(clip Clip) {
	if r.events == nil {
		return
	}
	if err := r.events.Finish(clip.ID, clip.Frames, clip.Duration); err != nil {
		r.logger.Error("Failed to update event %s: %v", clip.ID, err)
	}
}

func (r *Recorder) setStatus(id string, status models.EventStatus, detail string) {
	if r.events == nil {
		return
	}
	if err := r.events.UpdateStatus(id, status, detail); err != nil {
		r.logger.Error("Failed to update event %s: %v", id, err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

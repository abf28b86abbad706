// Package monitor runs the main observation loop: detect, evaluate, relay,
// and start a recording when the trigger fires.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"eventcam/internal/detection"
	"eventcam/internal/frame"
	"eventcam/internal/logger"
	"eventcam/internal/recorder"
)

// relayLogEvery limits relay failure logging during an outage.
const relayLogEvery = 100

// Relayer forwards annotated frames to the live viewer.
type Relayer interface {
	Send(ctx context.Context, f *frame.Frame) error
}

// Recorder captures and dispatches a clip.
type Recorder interface {
	Record(ctx context.Context, trig recorder.Trigger) (recorder.Clip, error)
}

// Previewer shows frames locally. Show returns true when the user asked to quit.
type Previewer interface {
	Show(f *frame.Frame) (quit bool)
	Close() error
}

// Options configures a Monitor.
type Options struct {
	Rule      detection.Rule
	Label     string
	LoopDelay time.Duration
	Annotator Annotator
	Relay     Relayer
	Preview   Previewer
}

// Stats counts loop activity.
type Stats struct {
	Frames          uint64
	DetectErrors    uint64
	Triggers        uint64
	Recordings      uint64
	DroppedTriggers uint64
	RelayErrors     uint64
}

// Monitor is the orchestrator. It owns the recording slot and the handle of
// the task in it.
type Monitor struct {
	source    frame.Source
	detector  detection.Detector
	recorder  Recorder
	slot      *recorder.Slot
	annotator Annotator
	relay     Relayer
	preview   Previewer
	logger    *logger.Logger

	rule      detection.Rule
	label     string
	loopDelay time.Duration

	task         *recorder.Task
	relayFailing uint64

	frames          atomic.Uint64
	detectErrors    atomic.Uint64
	triggers        atomic.Uint64
	recordings      atomic.Uint64
	droppedTriggers atomic.Uint64
	relayErrors     atomic.Uint64
}

// New creates a Monitor reading frames from source.
func New(source frame.Source, detector detection.Detector, rec Recorder, slot *recorder.Slot, opts Options, logger *logger.Logger) *Monitor {
	if opts.Annotator == nil {
		opts.Annotator = BoxAnnotator{Thickness: 2}
	}
	if slot == nil {
		slot = &recorder.Slot{}
	}
	if opts.Label == "" {
		opts.Label = fmt.Sprintf("class %d", opts.Rule.ClassID)
	}
	return &Monitor{
		source:    source,
		detector:  detector,
		recorder:  rec,
		slot:      slot,
		annotator: opts.Annotator,
		relay:     opts.Relay,
		preview:   opts.Preview,
		logger:    logger,
		rule:      opts.Rule,
		label:     opts.Label,
		loopDelay: opts.LoopDelay,
	}
}

// Run processes frames until ctx is cancelled, the preview asks to quit, or
// the source ends. A source failure is returned; the other exits return nil.
// Run waits for an in-flight recording before returning.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("🎬 Monitor started (target %s, threshold %.2f)", m.label, m.rule.Threshold)
	defer m.shutdown()

	for {
		f, err := m.source.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				m.logger.Info("Stop requested")
				return nil
			case errors.Is(err, frame.ErrEndOfStream):
				m.logger.Info("Frame source exhausted after %d frames", m.frames.Load())
				return nil
			default:
				return fmt.Errorf("frame source failed: %w", err)
			}
		}

		if quit := m.step(ctx, f); quit {
			m.logger.Info("Quit requested from preview")
			return nil
		}

		if m.loopDelay > 0 {
			select {
			case <-time.After(m.loopDelay):
			case <-ctx.Done():
			}
		}
	}
}

// step handles one frame in order: detect, evaluate, annotate, relay,
// recording check, preview.
func (m *Monitor) step(ctx context.Context, f *frame.Frame) bool {
	m.frames.Add(1)

	dets, err := m.detector.Detect(ctx, f, m.rule.Threshold)
	if err != nil {
		m.detectErrors.Add(1)
		m.logger.Warning("Detection failed on frame %d: %v", f.Seq, err)
		dets = nil
	}

	decision := detection.Evaluate(dets, m.rule)

	out := f
	if len(decision.Qualifying) > 0 {
		out = f.Clone()
		if err := m.annotator.Annotate(out, decision.Qualifying); err != nil {
			m.logger.Warning("Failed to annotate frame %d: %v", f.Seq, err)
		}
	}

	if m.relay != nil {
		m.sendRelay(ctx, out)
	}

	m.pollTask()
	if decision.Fired {
		m.trigger(ctx, f, decision)
	}

	if m.preview != nil {
		return m.preview.Show(out)
	}
	return false
}

func (m *Monitor) sendRelay(ctx context.Context, f *frame.Frame) {
	err := m.relay.Send(ctx, f)
	if err == nil {
		if m.relayFailing > 0 {
			m.logger.Info("Relay recovered after %d failures", m.relayFailing)
			m.relayFailing = 0
		}
		return
	}
	m.relayErrors.Add(1)
	if m.relayFailing%relayLogEvery == 0 {
		m.logger.Warning("Relay failed (%d in a row): %v", m.relayFailing+1, err)
	}
	m.relayFailing++
}

// pollTask reaps a finished recording without blocking.
func (m *Monitor) pollTask() {
	if m.task == nil || !m.task.Finished() {
		return
	}
	if err := m.task.Err(); err != nil {
		m.logger.Warning("Recording task %s finished with error: %v", m.task.Name, err)
	}
	m.task = nil
}

func (m *Monitor) trigger(ctx context.Context, f *frame.Frame, d detection.Decision) {
	m.triggers.Add(1)

	trig := recorder.Trigger{Seq: f.Seq, At: f.CapturedAt, Detections: d.Qualifying}
	task, ok := m.slot.TryStart(fmt.Sprintf("record-%d", f.Seq), func() error {
		_, err := m.recorder.Record(ctx, trig)
		return err
	})
	if !ok {
		m.droppedTriggers.Add(1)
		return
	}
	m.task = task
	m.recordings.Add(1)
	m.logger.Info("🚨 %s detected on frame %d (%s), recording started", m.label, f.Seq, d.Qualifying[0])
}

func (m *Monitor) shutdown() {
	if m.slot.Busy() {
		m.logger.Info("Waiting for recording in progress")
	}
	m.slot.Wait()
	m.pollTask()

	if m.preview != nil {
		if err := m.preview.Close(); err != nil {
			m.logger.Warning("Failed to close preview: %v", err)
		}
	}
	if err := m.source.Close(); err != nil {
		m.logger.Warning("Failed to release frame source: %v", err)
	}
	s := m.Stats()
	m.logger.Info("🛑 Monitor stopped: %d frames, %d triggers, %d recordings, %d dropped triggers",
		s.Frames, s.Triggers, s.Recordings, s.DroppedTriggers)
}

// Stats returns a snapshot of the loop counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Frames:          m.frames.Load(),
		DetectErrors:    m.detectErrors.Load(),
		Triggers:        m.triggers.Load(),
		Recordings:      m.recordings.Load(),
		DroppedTriggers: m.droppedTriggers.Load(),
		RelayErrors:     m.relayErrors.Load(),
	}
}

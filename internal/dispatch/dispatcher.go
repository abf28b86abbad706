// Package dispatch delivers finished clips through a notification channel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eventcam/internal/logger"
	"eventcam/internal/recorder"
)

// TimestampLayout is the human readable time used in alert messages.
const TimestampLayout = "2006-01-02 15:04:05"

// Stage says where a dispatch failed.
type Stage string

const (
	StageMissing Stage = "missing"
	StageText    Stage = "text"
	StageFile    Stage = "file"
	StageRemove  Stage = "remove"
)

// Error is a failed dispatch. The clip artifact is left on disk for every
// stage except StageRemove, where delivery already succeeded.
type Error struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s %s: %v", e.Stage, filepath.Base(e.Path), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Notifier is a notification channel with a fixed recipient.
type Notifier interface {
	SendText(ctx context.Context, text string) error
	SendFile(ctx context.Context, path string) error
	Close() error
}

// Dispatcher sends an alert and the clip, then removes the clip. It never
// retries.
type Dispatcher struct {
	notifier Notifier
	logger   *logger.Logger
}

// NewDispatcher creates a Dispatcher using notifier.
func NewDispatcher(notifier Notifier, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// FormatAlert builds the alert message for an event.
func FormatAlert(label string, at time.Time) string {
	return fmt.Sprintf("🚨 %s detected!\nTimestamp: %s", label, at.Format(TimestampLayout))
}

// Dispatch delivers clip. On success the artifact no longer exists.
func (d *Dispatcher) Dispatch(ctx context.Context, clip recorder.Clip) error {
	info, err := os.Stat(clip.Path)
	if err != nil {
		return &Error{Stage: StageMissing, Path: clip.Path, Err: err}
	}
	if info.IsDir() {
		return &Error{Stage: StageMissing, Path: clip.Path, Err: errors.New("artifact is a directory")}
	}

	if err := d.notifier.SendText(ctx, FormatAlert(clip.Label, clip.StartedAt)); err != nil {
		return &Error{Stage: StageText, Path: clip.Path, Err: err}
	}
	if err := d.notifier.SendFile(ctx, clip.Path); err != nil {
		return &Error{Stage: StageFile, Path: clip.Path, Err: err}
	}
	d.logger.Info("📨 Clip %s sent (%d bytes)", filepath.Base(clip.Path), info.Size())

	if err := os.Remove(clip.Path); err != nil {
		return &Error{Stage: StageRemove, Path: clip.Path, Err: err}
	}
	return nil
}

// Close releases the notification channel.
func (d *Dispatcher) Close() error {
	return d.notifier.Close()
}

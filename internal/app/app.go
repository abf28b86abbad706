package app

import (
	"context"
	"errors"
	"fmt"

	"eventcam/internal/config"
	"eventcam/internal/detection"
	"eventcam/internal/dispatch"
	"eventcam/internal/frame"
	"eventcam/internal/logger"
	"eventcam/internal/monitor"
	"eventcam/internal/recorder"
	"eventcam/internal/relay"
	"eventcam/internal/repository/sqlite"
	"eventcam/internal/service/ai"
	"eventcam/internal/service/capture"
	"eventcam/internal/service/preview"
	"eventcam/internal/service/video"
)

const orchestratorFeed = "orchestrator"

// App is the camera side: capture, detection, relay, recording and delivery.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	bus        *frame.Bus
	detector   *ai.DetectorService
	dispatcher *dispatch.Dispatcher
	monitor    *monitor.Monitor
}

// NewApp builds every component from cfg. On error, whatever was already
// opened is released.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: log}
	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg, log := a.config, a.logger

	var err error

	a.db, err = sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}

	camera, err := capture.Open(cfg.CameraSource, log)
	if err != nil {
		return err
	}
	a.bus = frame.NewBus(camera, log)

	labels, err := detection.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return err
	}
	a.detector, err = ai.NewDetectorService(ai.DetectorOptions{
		ModelPath:  cfg.ModelPath,
		ConfigPath: cfg.ModelConfigPath,
		Format:     cfg.ModelFormat,
		Labels:     labels,
	}, log)
	if err != nil {
		return err
	}

	rel, err := relay.New(relay.Options{
		URL:     cfg.RelayURL,
		Camera:  cfg.CameraName,
		Token:   cfg.RelayToken,
		Timeout: cfg.RelayTimeout,
		Encoder: ai.JPEGEncoder{},
	}, log)
	if err != nil {
		return err
	}
	if !rel.Enabled() {
		log.Warning("RELAY_URL not set, live relay disabled")
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}
	a.dispatcher = dispatch.NewDispatcher(notifier, log)

	var sink recorder.ClipSink = video.NewMP4Sink()
	if cfg.ClipCodec == config.CodecMJPEG {
		sink = recorder.MJPEGSink{Encoder: ai.JPEGEncoder{}}
	}
	rec, err := recorder.New(a.bus, a.dispatcher, recorder.Options{
		Camera:    cfg.CameraName,
		Label:     cfg.TargetLabel,
		Duration:  cfg.RecordDuration,
		Directory: cfg.ClipDirectory,
		Sink:      sink,
	}, log)
	if err != nil {
		return err
	}
	rec.WithEventStore(sqlite.NewEventRepository(a.db), sqlite.NewDetectionRepository(a.db))

	feed, err := a.bus.Subscribe(orchestratorFeed, cfg.FeedBuffer)
	if err != nil {
		return err
	}

	opts := monitor.Options{
		Rule:      detection.Rule{ClassID: cfg.TargetClassID, Threshold: cfg.ConfidenceThreshold},
		Label:     cfg.TargetLabel,
		LoopDelay: cfg.LoopDelay,
		Annotator: ai.NewAnnotator(),
		Relay:     rel,
	}
	if cfg.Preview {
		opts.Preview = preview.NewWindow(cfg.CameraName, log)
	}
	a.monitor = monitor.New(feed, a.detector, rec, &recorder.Slot{}, opts, log)

	return nil
}

func newNotifier(cfg *config.Config, log *logger.Logger) (dispatch.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierMQTT:
		return dispatch.NewMQTTNotifier(dispatch.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		}, log)
	default:
		return dispatch.NewTelegramNotifier(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID)
	}
}

// Run drives the monitor until ctx is cancelled or the source ends. The bus
// outlives ctx so an in-flight recording can finish its clip.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("📷 Camera %s: source %s, target %s (class %d) > %.2f",
		a.config.CameraName, a.config.CameraSource, a.config.TargetLabel,
		a.config.TargetClassID, a.config.ConfidenceThreshold)
	a.logger.Info("💾 Clips: %s (%s, %v)", a.config.ClipDirectory, a.config.ClipCodec, a.config.RecordDuration)

	a.bus.Start(context.WithoutCancel(ctx))
	return a.monitor.Run(ctx)
}

// Close releases every component that was opened.
func (a *App) Close() error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

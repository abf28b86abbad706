package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"eventcam/internal/logger"
)

// MQTTOptions configures an MQTTNotifier.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// MQTTNotifier publishes alerts to <topic>/alert and clips to <topic>/clip.
type MQTTNotifier struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	logger  *logger.Logger
}

type clipHeader struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// NewMQTTNotifier connects to the broker and returns a notifier.
func NewMQTTNotifier(opts MQTTOptions, logger *logger.Logger) (*MQTTNotifier, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.QoS > 2 {
		opts.QoS = 1
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)
	co.OnConnect = func(mqtt.Client) {
		logger.Info("MQTT connected to %s", opts.Broker)
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warning("MQTT connection lost, reconnecting: %v", err)
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return newMQTTNotifier(client, opts, logger), nil
}

func newMQTTNotifier(client mqtt.Client, opts MQTTOptions, logger *logger.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		client:  client,
		topic:   opts.Topic,
		qos:     opts.QoS,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// SendText publishes the alert message.
func (m *MQTTNotifier) SendText(ctx context.Context, text string) error {
	return m.publish(ctx, m.topic+"/alert", []byte(text))
}

// SendFile publishes a small JSON header on <topic>/clip/meta followed by the
// raw clip bytes on <topic>/clip.
func (m *MQTTNotifier) SendFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read clip: %w", err)
	}
	meta, err := json.Marshal(clipHeader{Filename: filepath.Base(path), Size: len(data)})
	if err != nil {
		return fmt.Errorf("failed to marshal clip header: %w", err)
	}
	if err := m.publish(ctx, m.topic+"/clip/meta", meta); err != nil {
		return err
	}
	return m.publish(ctx, m.topic+"/clip", data)
}

func (m *MQTTNotifier) publish(ctx context.Context, topic string, payload []byte) error {
	if !m.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt not connected")
	}
	token := m.client.Publish(topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-time.After(m.timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() error {
	m.client.Disconnect(250)
	return nil
}

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"eventcam/internal/logger"
)

type fakeToken struct {
	mqtt.Token
	done chan struct{}
	err  error
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient implements the parts of mqtt.Client the notifier uses.
type fakeClient struct {
	mqtt.Client
	mu       sync.Mutex
	open     bool
	hang     bool
	err      error
	messages []published
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	c.messages = append(c.messages, published{topic: topic, payload: payload.([]byte)})
	c.mu.Unlock()

	tok := &fakeToken{done: make(chan struct{}), err: c.err}
	if !c.hang {
		close(tok.done)
	}
	return tok
}

func (c *fakeClient) Disconnect(quiesce uint) { c.open = false }

func TestMQTT_SendTextAndFile(t *testing.T) {
	client := &fakeClient{open: true}
	n := newMQTTNotifier(client, MQTTOptions{Topic: "eventcam/garden", QoS: 1, Timeout: time.Second}, logger.NewDiscard())

	if err := n.SendText(context.Background(), "alert"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "event_1.mjpeg")
	os.WriteFile(path, []byte{0xff, 0xd8, 0xff, 0xd9}, 0644)
	if err := n.SendFile(context.Background(), path); err != nil {
		t.Fatalf("SendFile failed: %v", err)
	}

	if len(client.messages) != 3 {
		t.Fatalf("Expected 3 publishes, got %d", len(client.messages))
	}
	if client.messages[0].topic != "eventcam/garden/alert" || string(client.messages[0].payload) != "alert" {
		t.Errorf("Unexpected alert publish: %+v", client.messages[0])
	}
	var meta clipHeader
	if err := json.Unmarshal(client.messages[1].payload, &meta); err != nil {
		t.Fatalf("Bad clip header: %v", err)
	}
	if meta.Filename != "event_1.mjpeg" || meta.Size != 4 {
		t.Errorf("Unexpected header %+v", meta)
	}
	if client.messages[2].topic != "eventcam/garden/clip" || len(client.messages[2].payload) != 4 {
		t.Errorf("Unexpected clip publish: %s (%d bytes)", client.messages[2].topic, len(client.messages[2].payload))
	}

	n.Close()
	if client.open {
		t.Error("Close should disconnect")
	}
}

func TestMQTT_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"not connected", &fakeClient{open: false}},
		{"publish error", &fakeClient{open: true, err: errors.New("not authorized")}},
		{"publish timeout", &fakeClient{open: true, hang: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newMQTTNotifier(tt.client, MQTTOptions{Topic: "t", Timeout: 50 * time.Millisecond}, logger.NewDiscard())
			if err := n.SendText(context.Background(), "x"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

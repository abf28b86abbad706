package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Notifier kinds accepted in NOTIFIER.
const (
	NotifierTelegram = "telegram"
	NotifierMQTT     = "mqtt"
)

// Clip codecs accepted in CLIP_CODEC.
const (
	CodecMP4   = "mp4v"
	CodecMJPEG = "mjpeg"
)

type Config struct {
	// Camera
	CameraSource string // device index ("0") or stream URL / file path
	CameraName   string

	// Detection
	ModelPath           string
	ModelConfigPath     string
	ModelFormat         string // "ssd" or "yolov8"
	LabelsPath          string
	TargetClassID       int
	TargetLabel         string
	ConfidenceThreshold float64

	// Live relay
	RelayURL     string
	RelayTimeout time.Duration
	RelayToken   string

	// Recording
	RecordDuration time.Duration
	ClipDirectory  string
	ClipCodec      string
	FeedBuffer     int // frames buffered for the orchestrator feed

	// Notification channel
	Notifier         string
	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string
	MQTTBroker       string
	MQTTTopic        string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string

	// Main loop
	LoopDelay time.Duration
	Preview   bool

	// Storage / logs
	DatabasePath string
	LogDirectory string

	// relayd
	Port        int
	UploadToken string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		CameraSource: getEnv("CAMERA_SOURCE", "0"),
		CameraName:   getEnv("CAMERA_NAME", "cam1"),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", ""),
		ModelFormat:         getEnv("MODEL_FORMAT", "yolov8"),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		TargetClassID:       getEnvAsInt("TARGET_CLASS_ID", 0),
		TargetLabel:         getEnv("TARGET_LABEL", "Monkey"),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.8),

		RelayURL:     getEnv("RELAY_URL", ""),
		RelayTimeout: getEnvAsDuration("RELAY_TIMEOUT", time.Second),
		RelayToken:   getEnv("RELAY_TOKEN", ""),

		RecordDuration: getEnvAsDuration("RECORD_DURATION", 5*time.Second),
		ClipDirectory:  getEnv("CLIP_DIR", filepath.Join(".", "clips")),
		ClipCodec:      getEnv("CLIP_CODEC", CodecMP4),
		FeedBuffer:     getEnvAsInt("FEED_BUFFER", 2),

		Notifier:         getEnv("NOTIFIER", NotifierTelegram),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		MQTTBroker:       getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTTopic:        getEnv("MQTT_TOPIC", "eventcam"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "eventcam"),
		MQTTUsername:     getEnv("MQTT_USERNAME", ""),
		MQTTPassword:     getEnv("MQTT_PASSWORD", ""),

		LoopDelay: getEnvAsDuration("LOOP_DELAY", 30*time.Millisecond),
		Preview:   getEnvAsBool("PREVIEW", true),

		DatabasePath: getEnv("DATABASE_PATH", filepath.Join(".", "data", "events.db")),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),

		Port:        getEnvAsInt("PORT", 8080),
		UploadToken: getEnv("UPLOAD_TOKEN", ""),
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.RecordDuration <= 0 {
		return fmt.Errorf("RECORD_DURATION must be positive, got %v", c.RecordDuration)
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("RELAY_TIMEOUT must be positive, got %v", c.RelayTimeout)
	}
	if c.FeedBuffer < 1 {
		return fmt.Errorf("FEED_BUFFER must be at least 1, got %d", c.FeedBuffer)
	}
	switch c.ModelFormat {
	case "ssd", "yolov8":
	default:
		return fmt.Errorf("unknown MODEL_FORMAT %q", c.ModelFormat)
	}
	switch c.ClipCodec {
	case CodecMP4, CodecMJPEG:
	default:
		return fmt.Errorf("unknown CLIP_CODEC %q", c.ClipCodec)
	}
	switch c.Notifier {
	case NotifierTelegram:
		if c.TelegramBotToken == "" || c.TelegramChatID == "" {
			return fmt.Errorf("telegram notifier requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
		}
	case NotifierMQTT:
		if c.MQTTBroker == "" || c.MQTTTopic == "" {
			return fmt.Errorf("mqtt notifier requires MQTT_BROKER and MQTT_TOPIC")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") or plain seconds ("5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

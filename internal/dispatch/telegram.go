package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTelegramAPI is the public Bot API host.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts to one chat through the Bot API.
type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramNotifier creates a notifier for chatID. An empty apiURL selects
// the public API.
func NewTelegramNotifier(apiURL, token, chatID string) (*TelegramNotifier, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram requires bot token and chat id")
	}
	if apiURL == "" {
		apiURL = DefaultTelegramAPI
	}
	return &TelegramNotifier{
		baseURL: strings.TrimRight(apiURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}

// SendText calls sendMessage.
func (t *TelegramNotifier) SendText(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id": t.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req)
}

// SendFile uploads path with sendVideo.
func (t *TelegramNotifier) SendFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open clip: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("failed to write chat_id: %w", err)
	}
	part, err := w.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy clip: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendVideo"), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return t.do(req)
}

func (t *TelegramNotifier) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		// the request URL carries the bot token
		return fmt.Errorf("telegram request failed: %w", redact(err, t.token))
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var tr telegramResponse
	if jsonErr := json.Unmarshal(data, &tr); jsonErr != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("telegram returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode telegram response: %w", jsonErr)
	}
	if resp.StatusCode >= 300 || !tr.OK {
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, tr.Description)
	}
	return nil
}

func (t *TelegramNotifier) Close() error { return nil }

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}

package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"keywatch/core/utils"
)

// Attachment is an optional image sent alongside a notification.
type Attachment struct {
	Filename string
	Data     []byte
}

// Sender delivers one message to one recipient. Implementations must treat a
// delivery failure as that recipient's problem only.
type Sender interface {
	Send(ctx context.Context, recipientID, text string, attachment *Attachment) error
}

// HTTPTelegramSender delivers via the Telegram bot API: sendMessage for text,
// sendPhoto (multipart) when an attachment is present.
type HTTPTelegramSender struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewHTTPTelegramSender(token string) *HTTPTelegramSender {
	return &HTTPTelegramSender{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.telegram.org",
		token:   token,
	}
}

func (s *HTTPTelegramSender) Send(ctx context.Context, recipientID, text string, attachment *Attachment) error {
	if strings.TrimSpace(s.token) == "" || strings.TrimSpace(recipientID) == "" {
		return errors.New("telegram token or recipient missing")
	}
	if attachment == nil {
		return s.sendMessage(ctx, recipientID, text)
	}
	return s.sendPhoto(ctx, recipientID, text, attachment)
}

func (s *HTTPTelegramSender) sendMessage(ctx context.Context, chatID, text string) error {
	body := map[string]any{"chat_id": chatID, "text": text}
	raw, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.baseURL, "/"), s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *HTTPTelegramSender) sendPhoto(ctx context.Context, chatID, caption string, attachment *Attachment) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("chat_id", chatID)
	_ = mw.WriteField("caption", caption)
	part, err := mw.CreateFormFile("photo", attachment.Filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(attachment.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", strings.TrimRight(s.baseURL, "/"), s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (s *HTTPTelegramSender) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("telegram api status %d", resp.StatusCode)
}

type notice struct {
	text       string
	attachment *Attachment
}

// Dispatcher fans notifications out to a fixed recipient list through a
// bounded queue, so delivery latency and failures never block a monitor tick.
// Best effort: per-recipient failures are logged and a full queue drops the
// notice; the next transition produces a fresh one.
type Dispatcher struct {
	sender     Sender
	recipients []string
	logger     *utils.Logger
	queue      chan notice

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, recipients []string, queueSize int, logger *utils.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Dispatcher{
		sender:     sender,
		recipients: recipients,
		logger:     logger,
		queue:      make(chan notice, queueSize),
	}
}

func (d *Dispatcher) StartWithContext(ctx context.Context) {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	d.mu.Unlock()
	go d.run(runCtx)
}

func (d *Dispatcher) StopWithContext(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	wasRunning := d.running
	d.mu.Unlock()
	if !wasRunning || cancel == nil {
		return nil
	}
	cancel()
	waitDone := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify enqueues without blocking. Fire-and-forget relative to the caller.
func (d *Dispatcher) Notify(text string, attachment *Attachment) {
	if d == nil || text == "" {
		return
	}
	select {
	case d.queue <- notice{text: text, attachment: attachment}:
	default:
		d.logger.Warnf("notify: queue full, dropping notification")
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n notice) {
	if d.sender == nil || len(d.recipients) == 0 {
		return
	}
	for _, recipient := range d.recipients {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := d.sender.Send(sendCtx, recipient, n.text, n.attachment)
		cancel()
		if err != nil {
			d.logger.Errorf("notify: send to %s: %v", recipient, err)
			continue
		}
	}
}

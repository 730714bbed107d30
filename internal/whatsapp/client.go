// ABOUTME: WhatsApp Cloud API client for sending documents and text messages
// ABOUTME: Posts to /{phone_number_id}/messages on the Graph API with a bearer token

package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultAPIBase is the Graph API host.
	DefaultAPIBase = "https://graph.facebook.com"
	// APIVersion is the Graph API version messages are sent through.
	APIVersion = "v22.0"

	maxTextLength    = 4096
	maxCaptionLength = 1024
)

var (
	ErrNotConfigured = errors.New("WhatsApp API not configured (missing WHATSAPP_ACCESS_TOKEN or WHATSAPP_PHONE_NUMBER_ID)")
	ErrInvalidNumber = errors.New("invalid phone number")
	ErrInvalidText   = fmt.Errorf("text required (max %d chars)", maxTextLength)
)

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return e.Message
}

// Config holds Cloud API credentials.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	// APIBase overrides DefaultAPIBase, for tests.
	APIBase    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client sends messages through the Cloud API.
type Client struct {
	token   string
	phoneID string
	base    string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client. An unconfigured client is valid; every send
// returns ErrNotConfigured.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:   cfg.AccessToken,
		phoneID: cfg.PhoneNumberID,
		base:    base,
		http:    hc,
		logger:  logger.With("component", "whatsapp"),
	}
}

// Configured reports whether both a token and a phone number ID are set.
func (c *Client) Configured() bool {
	return c.token != "" && c.phoneID != ""
}

type textBody struct {
	Body string `json:"body"`
}

type documentBody struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
}

type message struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Document         *documentBody `json:"document,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message      string `json:"message"`
		ErrorUserMsg string `json:"error_user_msg"`
	} `json:"error"`
}

// SendDocument sends documentURL as a document and then a text message with
// the link. It succeeds when either message is accepted.
func (c *Client) SendDocument(ctx context.Context, to, documentURL, filename, caption string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	to = Digits(to)
	if to == "" {
		return ErrInvalidNumber
	}
	if filename == "" {
		filename = "horoscope.pdf"
	}
	if utf8.RuneCountInString(caption) > maxCaptionLength {
		caption = string([]rune(caption)[:maxCaptionLength])
	}

	_, docErr := c.send(ctx, message{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "document",
		Document:         &documentBody{Link: documentURL, Filename: filename, Caption: caption},
	})
	_, textErr := c.send(ctx, message{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: "Horoscope: " + documentURL},
	})

	if docErr == nil || textErr == nil {
		c.logger.Info("delivery accepted", "to", to)
		return nil
	}
	c.logger.Error("document and text both failed", "to", to, "document_error", docErr, "text_error", textErr)
	return docErr
}

// SendText sends a plain text message and returns its message id.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	to = Digits(to)
	if to == "" {
		return "", ErrInvalidNumber
	}
	if text == "" || utf8.RuneCountInString(text) > maxTextLength {
		return "", ErrInvalidText
	}
	return c.send(ctx, message{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: text},
	})
}

func (c *Client) send(ctx context.Context, msg message) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}

	endpoint := c.base + "/" + APIVersion + "/" + c.phoneID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending %s message: %w", msg.Type, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var decoded sendResponse
	_ = json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decoded.Error != nil {
			apiErr.Message = decoded.Error.Message
			if apiErr.Message == "" {
				apiErr.Message = decoded.Error.ErrorUserMsg
			}
		}
		c.logger.Warn("send failed", "to", msg.To, "type", msg.Type, "status", resp.StatusCode, "error", apiErr.Message)
		return "", apiErr
	}

	var id string
	if len(decoded.Messages) > 0 {
		id = decoded.Messages[0].ID
		c.logger.Debug("sent", "to", msg.To, "type", msg.Type, "message_id", id)
	}
	return id, nil
}

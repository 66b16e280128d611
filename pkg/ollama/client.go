package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/vehicle-counter/pkg/client"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

const defaultTimeout = 300 * time.Second

// ErrEmptyReply is returned when the model answers with no text
var ErrEmptyReply = errors.New("ollama: empty reply")

// jsonFormat asks the server to constrain the reply to valid JSON
var jsonFormat = json.RawMessage(`"json"`)

// Client wraps the Ollama API client
type Client struct {
	client     *api.Client
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Ollama client. Any path in ollamaURL is ignored.
func NewClient(ollamaURL string, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs a scheme and host", ollamaURL)
	}

	c := &Client{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	base := &url.URL{Scheme: parsedURL.Scheme, Host: parsedURL.Host}
	c.client = api.NewClient(base, c.httpClient)
	return c, nil
}

// SimpleQuery performs a simple query with an image without expecting JSON
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.chat(ctx, model, prompt, imgB64, nil, nil)
}

// LocateObjects asks the model for the objects in an image and parses its reply
func (c *Client) LocateObjects(ctx context.Context, model, prompt, imgB64 string) (*types.ObjectList, error) {
	options := map[string]any{"temperature": 0.0}
	if isMiniCPMv4(model) {
		options["num_ctx"] = 4096
	}

	reply, err := c.chat(ctx, model, prompt, imgB64, options, jsonFormat)
	if err != nil {
		return nil, err
	}
	return client.ParseObjectList(reply)
}

// Health returns nil when the server answers a heartbeat
func (c *Client) Health(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	return nil
}

// minicpm-v4 truncates grounding output with the default context size
func isMiniCPMv4(model string) bool {
	m := strings.ToLower(model)
	return strings.Contains(m, "minicpm-v4") ||
		strings.Contains(m, "minicpm-v-4") ||
		strings.Contains(m, "minicpmv4")
}

func (c *Client) chat(ctx context.Context, model, prompt, imgB64 string, options map[string]any, format json.RawMessage) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	msg := api.Message{Role: "user", Content: prompt}
	if imgB64 != "" {
		img, err := base64.StdEncoding.DecodeString(imgB64)
		if err != nil {
			return "", fmt.Errorf("ollama: decode image: %w", err)
		}
		msg.Images = []api.ImageData{img}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{msg},
		Stream:   &stream,
		Format:   format,
		Options:  options,
	}

	var reply strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", ErrEmptyReply
	}
	return reply.String(), nil
}

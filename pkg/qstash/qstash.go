// Package qstash is a minimal client for the Upstash QStash message
// queue; the engine publishes completed intake snapshots through it.
package qstash

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	URL   string `split_words:"true" required:"true"`
	Token string `split_words:"true" required:"true"`

	// Signing keys verify inbound QStash webhook deliveries; they are
	// not needed for publishing.
	CurrentSigningKey string `split_words:"true"`
	NextSigningKey    string `split_words:"true"`

	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL           string
	token             string
	currentSigningKey string
	nextSigningKey    string
	httpClient        *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		token:             token,
		currentSigningKey: strings.TrimSpace(cfg.CurrentSigningKey),
		nextSigningKey:    strings.TrimSpace(cfg.NextSigningKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

package pushover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client sends pipeline progress messages to a Pushover device. With no
// token or user key configured it does nothing.
type Client struct {
	token      string
	userKey    string
	title      string
	endpoint   string
	httpClient *http.Client
}

func NewClient(token, userKey, title string) *Client {
	return NewClientWithURL(token, userKey, title, "https://api.pushover.net/1/messages.json")
}

func NewClientWithURL(token, userKey, title, endpoint string) *Client {
	if title == "" {
		title = "JobTalk"
	}
	return &Client{
		token:      token,
		userKey:    userKey,
		title:      title,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", c.title)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover error: %s", resp.Status)
	}

	return nil
}

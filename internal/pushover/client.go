package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: httpClient,
	}
}

type Message struct {
	Token    string
	User     string
	Title    string
	Message  string
	Priority int
}

func (c *Client) SendMessage(ctx context.Context, m Message) error {
	params := url.Values{}
	params.Set("token", m.Token)
	params.Set("user", m.User)
	params.Set("title", m.Title)
	params.Set("message", m.Message)
	params.Set("priority", fmt.Sprint(m.Priority))
	params.Set("html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pushover api error: status %s, body %s", resp.Status, string(body))
	}

	return nil
}

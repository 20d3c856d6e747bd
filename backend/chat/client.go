package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	requestDumpFile  = "last_request.json"
	responseDumpFile = "last_response.json"
)

// Client posts conversations to a chat-completion endpoint. The API key
// is sent both as an api-key header (Azure style) and as a bearer token
// (OpenAI style), which keeps one code path for both endpoint flavors.
type Client struct {
	postURL    *url.URL
	apiKey     string
	httpClient *http.Client

	// WriteReqResp dumps the raw request and response bodies next to
	// the working directory for debugging.
	WriteReqResp bool
}

func NewClient(postURL, apiKey string) (*Client, error) {
	parsed, err := url.Parse(postURL)
	if err != nil {
		return nil, Wrap(ErrKindOther, err, "invalid endpoint url %q", postURL)
	}

	return &Client{
		postURL: parsed,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}, nil
}

// Complete sends the serialized chat and returns the raw response body.
// The body is either one JSON object or an SSE frame sequence; the
// caller decides with isStreamingBody.
func (c *Client) Complete(chat *Chat) (string, error) {
	serialized, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return "", err
	}

	if c.WriteReqResp {
		if err := os.WriteFile(requestDumpFile, serialized, 0644); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequest(http.MethodPost, c.postURL.String(), bytes.NewReader(serialized))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if c.WriteReqResp {
		if err := os.WriteFile(responseDumpFile, body, 0644); err != nil {
			return "", err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Errorf(ErrKindOther, "endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return string(body), nil
}

// isStreamingBody detects the SSE frame format by the presence of both
// a data frame prefix and the done marker.
func isStreamingBody(body string) bool {
	return strings.Contains(body, dataPrefix) && strings.Contains(body, doneMarker)
}

package feedback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const formspreeSink = "formspree"

// FormspreeSink posts submissions as an HTML form. Only HTTP 200 counts as success.
type FormspreeSink struct {
	endpoint string
	client   *http.Client
}

func NewFormspreeSink(endpoint string, client *http.Client) (*FormspreeSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("feedback endpoint is not configured")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid feedback endpoint %q: %w", endpoint, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &FormspreeSink{
		endpoint: endpoint,
		client:   client,
	}, nil
}

func (s *FormspreeSink) Submit(ctx context.Context, submission Submission) error {
	form := url.Values{}
	form.Set("name", submission.Name)
	form.Set("email", submission.Email)
	form.Set("message", submission.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &SinkError{Sink: formspreeSink, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &SinkError{Sink: formspreeSink, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &SinkError{Sink: formspreeSink, StatusCode: resp.StatusCode}
	}
	return nil
}

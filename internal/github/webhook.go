package gh

import (
	"fmt"
	"net/http"

	"github.com/google/go-github/v63/github"
)

type SignatureError struct {
	Err error
}

func (e SignatureError) Error() string {
	return fmt.Sprintf("invalid webhook payload: %v", e.Err)
}

func (e SignatureError) Unwrap() error {
	return e.Err
}

type UnsupportedEventError struct {
	Event string
}

func (e UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event %q", e.Event)
}

type PayloadError struct {
	Err error
}

func (e PayloadError) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Err)
}

func (e PayloadError) Unwrap() error {
	return e.Err
}

// ParseWebhook validates the request signature against secret (skipped when empty)
// and decodes a pull_request event
func ParseWebhook(r *http.Request, secret []byte) (*github.PullRequestEvent, error) {
	payload, err := github.ValidatePayload(r, secret)
	if err != nil {
		return nil, &SignatureError{Err: err}
	}
	eventType := github.WebHookType(r)
	if eventType != "pull_request" {
		return nil, &UnsupportedEventError{Event: eventType}
	}
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return nil, &PayloadError{Err: err}
	}
	pullRequestEvent, ok := event.(*github.PullRequestEvent)
	if !ok {
		return nil, &UnsupportedEventError{Event: eventType}
	}
	return pullRequestEvent, nil
}

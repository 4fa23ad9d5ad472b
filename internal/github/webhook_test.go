package gh

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const pullRequestPayload = `{
	"action": "unlabeled",
	"number": 42,
	"label": {"name": "github-import"},
	"pull_request": {"number": 42, "title": "Fix it"},
	"sender": {"login": "octocat"},
	"installation": {"id": 99}
}`

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestParseWebhook(t *testing.T) {
	tt := []struct {
		name        string
		event       string
		secret      string
		signature   string
		expectedErr error
	}{
		{
			name:      "valid signed pull request event",
			event:     "pull_request",
			secret:    "s3cret",
			signature: sign("s3cret", pullRequestPayload),
		},
		{
			name:  "unsigned event without secret",
			event: "pull_request",
		},
		{
			name:        "bad signature",
			event:       "pull_request",
			secret:      "s3cret",
			signature:   sign("other", pullRequestPayload),
			expectedErr: &SignatureError{},
		},
		{
			name:        "unsupported event",
			event:       "push",
			expectedErr: &UnsupportedEventError{},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/github-callback", strings.NewReader(pullRequestPayload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-GitHub-Event", tc.event)
			if tc.signature != "" {
				req.Header.Set("X-Hub-Signature-256", tc.signature)
			}

			event, err := ParseWebhook(req, []byte(tc.secret))
			switch expected := tc.expectedErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if event.GetAction() != "unlabeled" {
					t.Errorf("expected action unlabeled, got %q", event.GetAction())
				}
				if event.GetPullRequest().GetNumber() != 42 {
					t.Errorf("expected PR 42, got %d", event.GetPullRequest().GetNumber())
				}
				if event.GetInstallation().GetID() != 99 {
					t.Errorf("expected installation 99, got %d", event.GetInstallation().GetID())
				}
			case *SignatureError:
				if !errors.As(err, &expected) {
					t.Errorf("expected SignatureError, got %v", err)
				}
			case *UnsupportedEventError:
				if !errors.As(err, &expected) {
					t.Errorf("expected UnsupportedEventError, got %v", err)
				}
			}
		})
	}
}

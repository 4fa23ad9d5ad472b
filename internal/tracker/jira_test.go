package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/multimediallc/pr-import-bot/internal/config"
)

func mockServerAndTracker(t *testing.T) (*http.ServeMux, *httptest.Server, *JiraTracker) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	tracker, err := NewJiraTracker(BasicAuthClient("bot", "token"), server.URL, *config.Default().Tracker, "Area: Core")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return mux, server, tracker
}

func TestCreateTicket(t *testing.T) {
	tt := []struct {
		name                string
		area                string
		expectedProductArea string
		expectedTeam        string
	}{
		{
			name:                "mapped area",
			area:                "Area: Storefront",
			expectedProductArea: "Platform | Storefront",
			expectedTeam:        "CT Storefront",
		},
		{
			name:                "unmapped area falls back to the default area",
			area:                "Area: Unknown",
			expectedProductArea: "Platform | Core",
			expectedTeam:        "CT Core",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			mux, server, tracker := mockServerAndTracker(t)
			defer server.Close()

			var received struct {
				Fields map[string]any `json:"fields"`
			}
			mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected method POST, got %s", r.Method)
				}
				if user, _, ok := r.BasicAuth(); !ok || user != "bot" {
					t.Errorf("expected basic auth for bot, got %q", user)
				}
				_ = json.NewDecoder(r.Body).Decode(&received)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"10001","key":"NEXT-4321","self":"https://jira/rest/api/2/issue/10001"}`))
			})

			pr := PullRequest{
				Title:  "Fix cart rounding",
				Body:   "Rounding was off",
				Link:   "https://github.com/shopware/shopware/pull/42",
				Author: "octocat",
			}
			number, err := tracker.CreateTicket(context.Background(), pr, tc.area)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if number != "4321" {
				t.Errorf("expected ticket number 4321, got %s", number)
			}

			fields := received.Fields
			if fields["summary"] != "[Github]Fix cart rounding" {
				t.Errorf("unexpected summary %v", fields["summary"])
			}
			if fields["description"] != "Rounding was off\n\n---\n\nImported from Github. Please see: https://github.com/shopware/shopware/pull/42" {
				t.Errorf("unexpected description %v", fields["description"])
			}
			productArea, _ := fields["customfield_14101"].(map[string]any)
			if productArea["value"] != tc.expectedProductArea {
				t.Errorf("expected product area %s, got %v", tc.expectedProductArea, productArea)
			}
			team, _ := fields["customfield_12000"].(map[string]any)
			if team["value"] != tc.expectedTeam {
				t.Errorf("expected team %s, got %v", tc.expectedTeam, team)
			}
			if fields["customfield_12100"] != pr.Link {
				t.Errorf("expected link field %s, got %v", pr.Link, fields["customfield_12100"])
			}
			if fields["customfield_12101"] != pr.Author {
				t.Errorf("expected author field %s, got %v", pr.Author, fields["customfield_12101"])
			}
		})
	}
}

func TestCreateTicketFailure(t *testing.T) {
	mux, server, tracker := mockServerAndTracker(t)
	defer server.Close()

	mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["project does not exist"]}`, http.StatusBadRequest)
	})

	number, err := tracker.CreateTicket(context.Background(), PullRequest{Title: "x"}, "Area: Core")
	if err == nil {
		t.Error("expected an error, got nil")
	}
	if number != "" {
		t.Errorf("expected empty number, got %s", number)
	}
}

func TestCreateTicketUnexpectedKey(t *testing.T) {
	mux, server, tracker := mockServerAndTracker(t)
	defer server.Close()

	mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"10001","key":"OTHER-1"}`))
	})

	if _, err := tracker.CreateTicket(context.Background(), PullRequest{Title: "x"}, "Area: Core"); err == nil {
		t.Error("expected an error for a key of another project")
	}
}

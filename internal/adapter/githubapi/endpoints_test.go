package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestClient_GetPullRequest(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/repos/octocat/hello/pulls/42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"number":42,"state":"open","head":{"ref":"feature","sha":"abc123"}}`)
	}))

	pr, err := client.GetPullRequest(context.Background(), "octocat", "hello", 42)
	if err != nil {
		t.Fatalf("GetPullRequest failed: %v", err)
	}
	if pr.Number != 42 || pr.Head.Ref != "feature" || pr.Head.SHA != "abc123" {
		t.Errorf("pr = %+v", pr)
	}
}

func TestClient_OpenIssue(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/repos/octocat/hello/issues" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["title"] != "Threat model updated: octocat/hello@abc123" {
			t.Errorf("title = %v", body["title"])
		}

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number":7,"html_url":"https://github.com/octocat/hello/issues/7"}`)
	}))

	err := client.OpenIssue(context.Background(), "octocat", "hello", "Threat model updated: octocat/hello@abc123", "details", []string{"threat-model"})
	if err != nil {
		t.Fatalf("OpenIssue failed: %v", err)
	}
}

func TestClient_PostPullRequestComment(t *testing.T) {
	commented := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octocat/hello/pulls/42":
			fmt.Fprint(w, `{"number":42,"state":"open","head":{"ref":"feature","sha":"abc123"}}`)

		case "/repos/octocat/hello/issues/42/comments":
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["body"] == "" {
				t.Error("comment body is empty")
			}

			commented = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":1}`)

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	if err := client.PostPullRequestComment(context.Background(), "octocat", "hello", 42, "analysis summary"); err != nil {
		t.Fatalf("PostPullRequestComment failed: %v", err)
	}
	if !commented {
		t.Error("comment was never posted")
	}
}

func TestClient_PostPullRequestComment_SkipsClosedPR(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octocat/hello/pulls/42":
			fmt.Fprint(w, `{"number":42,"state":"closed","head":{"ref":"feature","sha":"abc123"}}`)

		default:
			t.Errorf("closed PR must not receive a comment, got request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	if err := client.PostPullRequestComment(context.Background(), "octocat", "hello", 42, "analysis summary"); err != nil {
		t.Fatalf("PostPullRequestComment on closed PR must be a no-op, got: %v", err)
	}
}

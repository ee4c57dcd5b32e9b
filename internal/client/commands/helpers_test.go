package commands_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"signalscore/internal/client"
	"signalscore/internal/client/commands"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd := commands.NewRootCmd()
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	require.NoError(t, rootCmd.Execute(), "commands report failures in the envelope, not as errors")
	return &stdout, &stderr
}

// envelope is client.Response with the data payload kept raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *client.Error   `json:"error"`
	Warning string          `json:"warning"`
}

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env), "stdout should be one JSON envelope: %s", buf.String())
	return env
}

// fakeScoringAPI serves a scripted scoring API.
//   - POST target.com: processing, then GET Target is processing pendingPolls times before completing
//   - POST stripe.com: cached completed score
//   - POST blocked.com: processing, then GET Blocked fails
//   - GET Unknown: 404
type fakeScoringAPI struct {
	pendingPolls int

	mu    sync.Mutex
	polls map[string]int
	posts []string
}

func newFakeScoringAPI(t *testing.T, pendingPolls int) (*fakeScoringAPI, *httptest.Server) {
	t.Helper()
	api := &fakeScoringAPI{pendingPolls: pendingPolls, polls: map[string]int{}}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, server
}

func (f *fakeScoringAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/health":
		_, _ = w.Write([]byte(`{"status":"healthy","timestamp":"2026-01-01T00:00:00Z","version":"test"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/scores":
		var req struct {
			URL string `json:"url"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.posts = append(f.posts, req.URL)
		f.mu.Unlock()

		switch req.URL {
		case "https://stripe.com":
			_, _ = w.Write([]byte(`{"status":"completed","company_name":"Stripe","score":81,"category":"high"}`))
		case "https://blocked.com":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"processing","job_id":"j-2","company_name":"Blocked"}`))
		case "https://target.com":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"processing","job_id":"j-1","company_name":"Target"}`))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"Invalid URL: unsupported"}`))
		}
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/scores":
		_, _ = w.Write([]byte(`{"companies":[{"status":"completed","company_name":"Stripe","score":81}],"count":1}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/scores/"):
		name := strings.TrimPrefix(r.URL.Path, "/api/v1/scores/")
		f.mu.Lock()
		f.polls[name]++
		n := f.polls[name]
		f.mu.Unlock()

		switch name {
		case "Target":
			if n <= f.pendingPolls {
				_, _ = w.Write([]byte(`{"status":"processing","company_name":"Target"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"completed","company_name":"Target","score":44,` +
				`"careers_url":"https://careers.target.com","category":"medium_low"}`))
		case "Blocked":
			_, _ = w.Write([]byte(`{"status":"failed","company_name":"Blocked","error":"403 from careers page"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Company '` + name + `' not found"}`))
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeScoringAPI) pollCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[name]
}

func (f *fakeScoringAPI) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

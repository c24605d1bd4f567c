package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"dispatch/internal/bridge"
	"dispatch/internal/llm"
	"dispatch/internal/logging"
	"dispatch/internal/testsupport"
	"dispatch/internal/toolcall"
)

type stubDispatcher struct {
	outcome llm.Outcome
	err     error
	prompts []string
}

func (s *stubDispatcher) Dispatch(_ context.Context, prompt string) (llm.Outcome, error) {
	s.prompts = append(s.prompts, prompt)
	return s.outcome, s.err
}

type stubRelay struct {
	jobID  string
	err    error
	params []map[string]any
}

func (s *stubRelay) Enqueue(params map[string]any) (string, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return "", s.err
	}
	return s.jobID, nil
}

func startBridge(t *testing.T, dispatcher bridge.Dispatcher, relay bridge.Relay) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	srv, err := bridge.NewServer(cfg, dispatcher, relay, logging.NewNop())
	if err != nil {
		t.Fatalf("bridge.NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv.Addr()
}

func postDispatch(t *testing.T, addr, path, prompt string) (*http.Response, []byte) {
	t.Helper()
	body, _ := json.Marshal(bridge.DispatchRequest{Prompt: prompt})
	resp, err := http.Post(fmt.Sprintf("http://%s%s", addr, path), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestDispatchReturnsReply(t *testing.T) {
	dispatcher := &stubDispatcher{outcome: llm.Outcome{Reply: "nothing to enqueue"}}
	relay := &stubRelay{jobID: "unused"}
	addr := startBridge(t, dispatcher, relay)

	resp, body := postDispatch(t, addr, "/v1/dispatch", "what's up?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var payload bridge.DispatchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Reply != "nothing to enqueue" || payload.JobID != "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(relay.params) != 0 {
		t.Fatal("relay should not be called for plain replies")
	}
}

func TestDispatchRelaysToolCall(t *testing.T) {
	dispatcher := &stubDispatcher{outcome: llm.Outcome{ToolCall: &toolcall.Call{
		Name:      toolcall.EnqueueJobName,
		Arguments: `{"kind":"transcode","input":"/media/a.mkv"}`,
	}}}
	relay := &stubRelay{jobID: "job-123"}
	addr := startBridge(t, dispatcher, relay)

	resp, body := postDispatch(t, addr, "/v1/dispatch", "transcode this file")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var payload bridge.DispatchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.JobID != "job-123" || payload.Reply != "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(relay.params) != 1 || relay.params[0]["kind"] != "transcode" {
		t.Fatalf("unexpected relay params %+v", relay.params)
	}
}

func TestDispatchRejectsBadRequests(t *testing.T) {
	dispatcher := &stubDispatcher{outcome: llm.Outcome{Reply: "hi"}}
	addr := startBridge(t, dispatcher, &stubRelay{})

	resp, _ := postDispatch(t, addr, "/v1/dispatch", "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty prompt status = %d", resp.StatusCode)
	}

	getResp, err := http.Get(fmt.Sprintf("http://%s/v1/dispatch", addr))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", getResp.StatusCode)
	}
}

func TestDispatchSurfacesModelFailure(t *testing.T) {
	dispatcher := &stubDispatcher{err: errors.New("upstream down")}
	addr := startBridge(t, dispatcher, &stubRelay{})

	resp, _ := postDispatch(t, addr, "/v1/dispatch", "hello")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDispatchSurfacesRelayFailure(t *testing.T) {
	dispatcher := &stubDispatcher{outcome: llm.Outcome{ToolCall: &toolcall.Call{
		Name:      toolcall.EnqueueJobName,
		Arguments: `{"kind":"noop"}`,
	}}}
	relay := &stubRelay{err: errors.New("daemon unreachable")}
	addr := startBridge(t, dispatcher, relay)

	resp, body := postDispatch(t, addr, "/v1/dispatch", "run noop")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}

func TestDispatchStreamEmitsEvents(t *testing.T) {
	dispatcher := &stubDispatcher{outcome: llm.Outcome{ToolCall: &toolcall.Call{
		Name:      toolcall.EnqueueJobName,
		Arguments: `{"kind":"noop"}`,
	}}}
	relay := &stubRelay{jobID: "job-sse"}
	addr := startBridge(t, dispatcher, relay)

	resp, body := postDispatch(t, addr, "/v1/dispatch/stream", "run noop")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	text := string(body)
	for _, want := range []string{"event: status", "event: job", `"job_id":"job-sse"`, "event: done"} {
		if !strings.Contains(text, want) {
			t.Errorf("stream missing %q:\n%s", want, text)
		}
	}
}

func TestDispatchStreamReply(t *testing.T) {
	dispatcher := &stubDispatcher{outcome: llm.Outcome{Reply: "plain answer"}}
	addr := startBridge(t, dispatcher, &stubRelay{})

	resp, body := postDispatch(t, addr, "/v1/dispatch/stream", "just answer")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	text := string(body)
	if !strings.Contains(text, "event: reply") || !strings.Contains(text, "plain answer") {
		t.Fatalf("stream missing reply event:\n%s", text)
	}
}

func TestHealthz(t *testing.T) {
	addr := startBridge(t, &stubDispatcher{}, &stubRelay{})
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

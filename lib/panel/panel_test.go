package panel

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"watchout/lib/adapter"
	"watchout/lib/watchout"
)

var quietLogger = log.New(io.Discard, "", 0)

func setupTest(t *testing.T) (*watchout.MockServer, *adapter.Adapter, *Panel, *httptest.Server) {
	t.Helper()
	mock, err := watchout.NewMockServer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })

	p := New(WithLogger(quietLogger))
	a := adapter.New(watchout.Config{Host: "10.0.0.2", Type: watchout.Production}, p,
		adapter.WithID("panel-test"),
		adapter.WithLogger(quietLogger),
		adapter.WithManagerOptions(watchout.WithDialer(mock.Dialer())))
	t.Cleanup(a.Destroy)
	p.Attach(a)

	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)

	waitLevel(t, p, adapter.StatusOK)
	return mock, a, p, srv
}

func (p *Panel) lastLevel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return ""
	}
	return p.last.Level
}

func waitLevel(t *testing.T, p *Panel, level adapter.StatusLevel) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.lastLevel() != string(level) {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for status %s, have %q", level, p.lastLevel())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(data)
}

func TestListActions(t *testing.T) {
	_, _, _, srv := setupTest(t)

	resp, body := do(t, "GET", srv.URL+"/api/actions", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var defs []adapter.ActionDefinition
	if err := json.Unmarshal([]byte(body), &defs); err != nil {
		t.Fatal(err)
	}
	if len(defs) != 11 {
		t.Errorf("got %d actions, want 11", len(defs))
	}
}

func TestPostAction(t *testing.T) {
	mock, _, _, srv := setupTest(t)

	tests := []struct {
		name string
		id   string
		body string
		code int
	}{
		{"run", "run", `{"timeline":"Main"}`, http.StatusNoContent},
		{"no body", "reset", "", http.StatusNoContent},
		{"numeric fade", "standby", `{"standby":"false","fadetime":250}`, http.StatusNoContent},
		{"missing timeline", "kill", `{}`, http.StatusBadRequest},
		{"bad time", "gototime", `{"time":"soon"}`, http.StatusBadRequest},
		{"unknown", "explode", `{}`, http.StatusNotFound},
		{"bad json", "run", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, "POST", srv.URL+"/api/actions/"+tt.id, tt.body)
			if resp.StatusCode != tt.code {
				t.Errorf("got status %d, want %d (%s)", resp.StatusCode, tt.code, body)
			}
		})
	}

	lines := mock.WaitLines(3, 2*time.Second)
	want := []string{`run "Main"`, "reset", "standBy false 250"}
	if len(lines) != len(want) {
		t.Fatalf("got %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestConfigEndpoints(t *testing.T) {
	mock, a, _, srv := setupTest(t)

	resp, body := do(t, "GET", srv.URL+"/api/config", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var got configResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if got.Config.Host != "10.0.0.2" || len(got.Fields) != 2 {
		t.Errorf("got %+v", got)
	}

	resp, _ = do(t, "PUT", srv.URL+"/api/config", `{"host":"show-pc","type":"prod"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got status %d for bad host, want 400", resp.StatusCode)
	}

	resp, _ = do(t, "PUT", srv.URL+"/api/config", `{"host":"10.0.0.3","type":"disp"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if a.Config().Type != watchout.DisplayCluster {
		t.Errorf("got type %q", a.Config().Type)
	}
	lines := mock.WaitLines(1, 2*time.Second)
	if len(lines) != 1 || lines[0] != "authenticate 1" {
		t.Errorf("got %q, want authentication line", lines)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, _, _, srv := setupTest(t)

	resp, body := do(t, "GET", srv.URL+"/api/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var got statusResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	want := statusResponse{ID: "panel-test", Connection: "connected", Level: "ok"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNotAttached(t *testing.T) {
	srv := httptest.NewServer(New(WithLogger(quietLogger)).Handler())
	defer srv.Close()

	resp, _ := do(t, "GET", srv.URL+"/api/actions", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", resp.StatusCode)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestEventStream(t *testing.T) {
	_, _, p, srv := setupTest(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ev := readEvent(t, conn)
	if ev.Type != EventStatus || ev.Level != "ok" {
		t.Errorf("got first event %+v, want current status", ev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	do(t, "POST", srv.URL+"/api/actions/kill", `{}`)
	ev = readEvent(t, conn)
	if ev.Type != EventLog || ev.Level != "error" {
		t.Errorf("got %+v, want error log event", ev)
	}
	want := "Error: Kill command for Watchout production triggered without timeline name"
	if ev.Message != want {
		t.Errorf("got %q, want %q", ev.Message, want)
	}
}

package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/engine"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/store/memory"
	"github.com/xraph/jobwatch/stream"
	"github.com/xraph/jobwatch/tracker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// jobAPI serves GET /jobs/{id} from a script of states (the last one
// repeats) and GET /jobs/{id}/events from a script of pages.
type jobAPI struct {
	mu     sync.Mutex
	states []string
	pages  [][]map[string]any
	paths  []string
	gets   int
	events int
}

func (a *jobAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/events"):
		var page []map[string]any
		if a.events < len(a.pages) {
			page = a.pages[a.events]
		}
		a.events++
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": page})
	case strings.HasPrefix(r.URL.Path, "/jobs/"):
		st := a.states[min(a.gets, len(a.states)-1)]
		a.gets++
		id := strings.TrimPrefix(r.URL.Path, "/jobs/")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "state": st, "serviceId": "S1"})
	default:
		http.NotFound(w, r)
	}
}

func testConfig(url string) jobwatch.Config {
	cfg := jobwatch.DefaultConfig()
	cfg.APIURL = url
	cfg.Token = "secret"
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

type recorder struct {
	mu      sync.Mutex
	changes []string
	closed  chan struct{}
}

func newRecorder() *recorder { return &recorder{closed: make(chan struct{})} }

func (r *recorder) handlers() tracker.Handlers {
	return tracker.Handlers{
		OnChange: func(cur, prev *job.Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			from := "-"
			if prev != nil {
				from = string(prev.State)
			}
			r.changes = append(r.changes, from+">"+string(cur.State))
		},
		OnClose: func() { close(r.closed) },
	}
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for close")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changes...)
}

func TestBuild_Validation(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Transport = "carrier-pigeon"
	if _, err := engine.Build(cfg); err == nil {
		t.Error("expected error for unknown transport")
	}

	cfg = testConfig("http://localhost")
	cfg.Token = ""
	if _, err := engine.Build(cfg); !errors.Is(err, jobwatch.ErrNoToken) {
		t.Errorf("Build without token = %v, want ErrNoToken", err)
	}
}

func TestBuild_SelectsSourceByTransport(t *testing.T) {
	tests := map[string]string{
		jobwatch.TransportPoll:   "poll",
		jobwatch.TransportEvents: "events",
		jobwatch.TransportPush:   "push",
		jobwatch.TransportPushWS: "push-ws",
	}
	for transport, want := range tests {
		cfg := testConfig("http://localhost:1")
		cfg.Transport = transport
		eng, err := engine.Build(cfg, engine.WithLogger(testLogger()))
		if err != nil {
			t.Fatalf("%s: Build: %v", transport, err)
		}
		if got := eng.Source().Name(); got != want {
			t.Errorf("%s: source = %q, want %q", transport, got, want)
		}
		_ = eng.Close()
	}
}

func TestEngine_TrackPolling(t *testing.T) {
	api := &jobAPI{states: []string{"pending", "pending", "processing", "success"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	broker := stream.NewBroker(testLogger())
	events := broker.Subscribe("test", stream.JobTopic("J1"))

	eng, err := engine.Build(testConfig(srv.URL),
		engine.WithLogger(testLogger()),
		engine.WithMeterProvider(mp),
		engine.WithExtension(broker),
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer eng.Close()

	rec := newRecorder()
	if _, err := eng.Track("J1", rec.handlers()); err != nil {
		t.Fatalf("Track: %v", err)
	}
	changes := rec.wait(t)
	if strings.Join(changes, ",") != "pending>processing,processing>success" {
		t.Errorf("changes = %v", changes)
	}

	var types []stream.EventType
	timeout := time.After(time.Second)
	for len(types) < 4 {
		select {
		case evt := <-events.C():
			types = append(types, evt.Type)
		case <-timeout:
			t.Fatalf("broker events = %v", types)
		}
	}
	want := []stream.EventType{stream.EventSessionOpened, stream.EventStateChanged, stream.EventStateChanged, stream.EventSessionClosed}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	for _, name := range []string{"jobwatch.api.calls", "jobwatch.state.changes", "jobwatch.sessions.opened"} {
		if !found[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}

func TestEngine_EventsTransport(t *testing.T) {
	api := &jobAPI{pages: [][]map[string]any{
		{
			{"object": "job-event", "name": "processing", "createdAt": 2},
			{"object": "job-event", "name": "pending", "createdAt": 1},
		},
		{{"object": "job-event", "name": "success", "createdAt": 3}},
	}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Transport = jobwatch.TransportEvents
	eng, err := engine.Build(cfg, engine.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer eng.Close()

	final, err := eng.Wait(context.Background(), "J1")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.State != job.StateSuccess {
		t.Errorf("final = %s", final.State)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.gets != 0 || api.events != 2 {
		t.Errorf("gets=%d events=%d, want 0 and 2", api.gets, api.events)
	}
}

func TestEngine_StoreSeedsPriorState(t *testing.T) {
	api := &jobAPI{states: []string{"processing", "success"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	s := memory.New()
	if err := s.SaveSnapshot(context.Background(), &job.Snapshot{ID: "J1", State: job.StatePending}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	eng, err := engine.Build(testConfig(srv.URL), engine.WithLogger(testLogger()), engine.WithStore(s))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer eng.Close()

	rec := newRecorder()
	if _, err := eng.Track("J1", rec.handlers()); err != nil {
		t.Fatalf("Track: %v", err)
	}
	changes := rec.wait(t)
	if strings.Join(changes, ",") != "pending>processing,processing>success" {
		t.Errorf("changes = %v", changes)
	}

	stored, err := s.LastSnapshot(context.Background(), "J1")
	if err != nil || stored.State != job.StateSuccess {
		t.Errorf("stored = %+v, %v", stored, err)
	}
}

func TestEngine_NotifyFirstObservation(t *testing.T) {
	api := &jobAPI{states: []string{"success"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.FirstObservation = jobwatch.FirstObservationNotify
	eng, err := engine.Build(cfg, engine.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer eng.Close()

	rec := newRecorder()
	if _, err := eng.Track("J1", rec.handlers()); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if changes := rec.wait(t); strings.Join(changes, ",") != "->success" {
		t.Errorf("changes = %v", changes)
	}
}

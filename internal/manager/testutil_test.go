package manager

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// TestMain lets the test binary double as a pipeline worker: when
// HDI1D_FAKE_WORKER is set it serves the worker protocol instead of running
// tests.
func TestMain(m *testing.M) {
	switch os.Getenv("HDI1D_FAKE_WORKER") {
	case "":
		os.Exit(m.Run())
	case "exit":
		os.Stderr.WriteString("fake worker: CUDA out of memory\n")
		os.Exit(3)
	default:
		runFakeWorkerProcess()
	}
}

func runFakeWorkerProcess() {
	host, port := "127.0.0.1", ""
	for i := 0; i+1 < len(os.Args); i++ {
		switch os.Args[i] {
		case "--host":
			host = os.Args[i+1]
		case "--port":
			port = os.Args[i+1]
		}
	}
	fw := &fakeWorker{}
	_ = http.ListenAndServe(net.JoinHostPort(host, port), fw.handler())
	os.Exit(0)
}

// fakeWorker implements the worker JSON protocol in memory.
type fakeWorker struct {
	mu      sync.Mutex
	calls   []string
	loadErr string
	spec    LoadSpec
	sched   SchedulerConfig
	params  GenerateParams
}

func (f *fakeWorker) record(c string) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeWorker) received() (LoadSpec, SchedulerConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spec, f.sched
}

func (f *fakeWorker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func writeWorkerJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeWorker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeWorkerJSON(w, 200, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/load", func(w http.ResponseWriter, r *http.Request) {
		f.record("load")
		var spec LoadSpec
		_ = json.NewDecoder(r.Body).Decode(&spec)
		f.mu.Lock()
		f.spec = spec
		msg := f.loadErr
		f.mu.Unlock()
		if msg != "" {
			writeWorkerJSON(w, 500, map[string]string{"error": msg})
			return
		}
		writeWorkerJSON(w, 200, map[string]string{"status": "loaded"})
	})
	mux.HandleFunc("/scheduler", func(w http.ResponseWriter, r *http.Request) {
		f.record("scheduler")
		var sc SchedulerConfig
		_ = json.NewDecoder(r.Body).Decode(&sc)
		f.mu.Lock()
		f.sched = sc
		f.mu.Unlock()
		writeWorkerJSON(w, 200, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		f.record("generate")
		var gp GenerateParams
		_ = json.NewDecoder(r.Body).Decode(&gp)
		f.mu.Lock()
		f.params = gp
		f.mu.Unlock()
		img := image.NewNRGBA(image.Rect(0, 0, gp.Width, gp.Height))
		for y := 0; y < gp.Height; y++ {
			for x := 0; x < gp.Width; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(gp.Seed), G: 10, B: 20, A: 255})
			}
		}
		var buf bytes.Buffer
		_ = png.Encode(&buf, img)
		writeWorkerJSON(w, 200, map[string]string{"image": base64.StdEncoding.EncodeToString(buf.Bytes()), "format": "png"})
	})
	mux.HandleFunc("/unload", func(w http.ResponseWriter, r *http.Request) {
		f.record("unload")
		writeWorkerJSON(w, 200, map[string]string{"status": "unloaded"})
	})
	return mux
}

// newTestManager returns a manager over a fresh synthetic backend.
func newTestManager(t *testing.T, cfg Config) (*Manager, *SyntheticBackend, *MemoryPublisher) {
	t.Helper()
	sb, ok := cfg.Backend.(*SyntheticBackend)
	if !ok || sb == nil {
		sb = NewSyntheticBackend()
		cfg.Backend = sb
	}
	pub := NewMemoryPublisher()
	cfg.Publisher = pub
	return New(cfg), sb, pub
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func countNames(names []string, want string) int {
	n := 0
	for _, s := range names {
		if s == want {
			n++
		}
	}
	return n
}

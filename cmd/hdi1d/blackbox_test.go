package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"hdi1d/pkg/types"
)

// These tests build the real binary and drive it over HTTP.

func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatalf("listen: %v", err) }
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() { t.Skip("builds the binary") }
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok { t.Fatal("runtime.Caller failed") }
	// this file: <root>/cmd/hdi1d/blackbox_test.go
	root := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	binPath := filepath.Join(t.TempDir(), "hdi1d")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/hdi1d")
	cmd.Dir = root
	out, err := cmd.CombinedOutput()
	if err != nil { t.Fatalf("go build failed: %v\n%s", err, string(out)) }
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
	dir  string
}

func startServer(t *testing.T, bin string, extra ...string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	dir := t.TempDir()
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := append([]string{"serve",
		"--env-file", "",
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--backend", "synthetic",
		"--output-dir", filepath.Join(dir, "outputs"),
		"--temp-dir", filepath.Join(dir, "tmp"),
		"--history-db", filepath.Join(dir, "history.db"),
		"--log-format", "json",
	}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil { t.Fatalf("start server: %v", err) }
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK { break }
		}
		if time.Now().After(deadline) { t.Fatalf("server did not become healthy in time") }
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base, dir: dir}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil { t.Fatalf("get: %v", err) }
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func post(t *testing.T, url, ct string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, ct, bytes.NewReader(payload))
	if err != nil { t.Fatalf("post: %v", err) }
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin, "--swagger")

	resp, body := get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/readyz %d %s", resp.StatusCode, string(body)) }

	resp, body = get(t, sp.base+"/variants")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/variants %d %s", resp.StatusCode, string(body)) }
	var opts types.OptionsResponse
	if err := json.Unmarshal(body, &opts); err != nil { t.Fatalf("/variants json: %v", err) }
	if len(opts.Variants) != 3 || opts.DefaultVariant != "fast" { t.Fatalf("unexpected options: %+v", opts) }

	resp, body = get(t, sp.base+"/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<form") { t.Fatalf("/ %d", resp.StatusCode) }

	resp, body = post(t, sp.base+"/generate", "application/x-www-form-urlencoded",
		[]byte("prompt=a+red+cube&variant=fast&resolution=1024+%C3%97+1024&seed=42&format=PNG"))
	if resp.StatusCode != http.StatusOK { t.Fatalf("/generate %d %s", resp.StatusCode, string(body)) }
	var gen types.GenerateResponse
	if err := json.Unmarshal(body, &gen); err != nil { t.Fatalf("/generate json: %v", err) }
	if gen.Seed != 42 || gen.Width != 1024 || !strings.HasPrefix(gen.SavedPath, filepath.Join(sp.dir, "outputs")) {
		t.Fatalf("unexpected response: %+v", gen)
	}

	resp, _ = get(t, sp.base+gen.ImageURL)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" { t.Fatalf("image %d", resp.StatusCode) }

	resp, body = get(t, sp.base+"/status")
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil { t.Fatalf("/status json: %v", err) }
	if st.LoadedVariant != "fast" || st.Backend != "synthetic" { t.Fatalf("unexpected status: %+v", st) }

	resp, _ = get(t, sp.base+"/swagger/doc.json")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/swagger/doc.json %d", resp.StatusCode) }

	resp, body = get(t, sp.base+"/metrics")
	if !bytes.Contains(body, []byte("hdi1d_generation_requests_total")) { t.Fatalf("metrics missing generation counter") }
}

func TestBlackbox_UnknownVariant_400(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin)
	resp, body := post(t, sp.base+"/generate", "application/json", []byte(`{"variant":"missing","prompt":"hi"}`))
	if resp.StatusCode != http.StatusBadRequest { t.Fatalf("expected 400, got %d, body=%s", resp.StatusCode, string(body)) }
}

func TestBlackbox_GracefulShutdown(t *testing.T) {
	bin := buildBinary(t)
	sp := startServer(t, bin)
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil { t.Fatalf("signal: %v", err) }
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil { t.Fatalf("exit: %v", err) }
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit after SIGTERM")
	}
}

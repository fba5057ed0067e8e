package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// WorkerOptions configures the subprocess backend.
type WorkerOptions struct {
	Cmd          string
	Args         []string
	Host         string
	PortStart    int
	PortEnd      int
	ReadyTimeout time.Duration
	Logger       *zerolog.Logger
}

// workerBackend spawns one pipeline worker per loaded variant. Closing the
// pipeline terminates the process, which is the only reliable way to hand
// accelerator memory back.
type workerBackend struct {
	opts WorkerOptions
	log  zerolog.Logger
}

// NewWorkerBackend constructs a subprocess-backed backend.
func NewWorkerBackend(opts WorkerOptions) Backend {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 10 * time.Minute
	}
	lg := zerolog.Nop()
	if opts.Logger != nil {
		lg = opts.Logger.With().Str("adapter", "worker").Logger()
	}
	return &workerBackend{opts: opts, log: lg}
}

func (b *workerBackend) Name() string { return "worker" }

func (b *workerBackend) Load(ctx context.Context, spec LoadSpec) (Pipeline, error) {
	proc, err := b.spawn(ctx, spec.Variant)
	if err != nil {
		return nil, err
	}
	client := newWorkerClient(proc.baseURL, 5*time.Second)
	if err := client.load(ctx, spec); err != nil {
		_ = proc.stop()
		return nil, err
	}
	return &workerPipeline{client: client, stop: proc.stop}, nil
}

type workerProc struct {
	cmd     *exec.Cmd
	baseURL string
	pid     int
	done    chan struct{}
	waitErr error
	stderr  *tailBuffer
	log     zerolog.Logger
	once    sync.Once
}

// spawn starts a worker and waits for /health with early-exit detection.
func (b *workerBackend) spawn(ctx context.Context, variant string) (*workerProc, error) {
	if strings.TrimSpace(b.opts.Cmd) == "" {
		return nil, errors.New("worker command is empty")
	}
	host := b.opts.Host
	var port int
	var err error
	if b.opts.PortStart > 0 && b.opts.PortEnd >= b.opts.PortStart {
		port, err = pickPortInRange(host, b.opts.PortStart, b.opts.PortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	args := append(append([]string(nil), b.opts.Args...), "--host", host, "--port", strconv.Itoa(port))
	// Not CommandContext: the process must outlive the request that loaded it.
	cmd := exec.Command(b.opts.Cmd, args...)
	plog := b.log.With().Str("variant", variant).Logger()
	tail := &tailBuffer{max: 4096}
	cmd.Stderr = io.MultiWriter(tail, &lineLogger{log: plog, stream: "stderr"})
	cmd.Stdout = &lineLogger{log: plog, stream: "stdout"}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	p := &workerProc{cmd: cmd, baseURL: baseURL, pid: cmd.Process.Pid, done: make(chan struct{}), stderr: tail, log: plog}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	plog.Info().Str("event", "spawn_start").Int("pid", p.pid).Str("url", baseURL).Msg("worker")

	client := newWorkerClient(baseURL, time.Second)
	deadline := time.Now().Add(b.opts.ReadyTimeout)
	for {
		select {
		case <-p.done:
			plog.Error().Str("event", "exit_early").Int("pid", p.pid).AnErr("wait", p.waitErr).Msg("worker")
			return nil, fmt.Errorf("worker exited before ready: %v; stderr tail: %s", p.waitErr, tail.String())
		case <-ctx.Done():
			_ = p.stop()
			return nil, ctx.Err()
		default:
		}
		if time.Now().After(deadline) {
			_ = p.stop()
			plog.Error().Str("event", "spawn_timeout").Int("pid", p.pid).Msg("worker")
			return nil, fmt.Errorf("worker not ready in %s: %s", b.opts.ReadyTimeout, baseURL)
		}
		hctx, cancel := context.WithTimeout(ctx, time.Second)
		herr := client.health(hctx)
		cancel()
		if herr == nil {
			plog.Info().Str("event", "spawn_ready").Int("pid", p.pid).Msg("worker")
			return p, nil
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-p.done:
		case <-ctx.Done():
		}
	}
}

// stop sends SIGTERM, then kills after a grace period. Safe to call twice.
func (p *workerProc) stop() error {
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-p.done:
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			<-p.done
		}
		p.log.Info().Str("event", "spawn_stop").Int("pid", p.pid).Msg("worker")
	})
	return nil
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	t.mu.Unlock()
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lineLogger logs complete lines written by the worker at debug level.
type lineLogger struct {
	log    zerolog.Logger
	stream string
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		idx := bytes.IndexByte(l.buf, '\n')
		if idx < 0 {
			break
		}
		if line := strings.TrimRight(string(l.buf[:idx]), "\r"); line != "" {
			l.log.Debug().Str("stream", l.stream).Msg(line)
		}
		l.buf = l.buf[idx+1:]
	}
	return len(p), nil
}

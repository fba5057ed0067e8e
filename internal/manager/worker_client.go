package manager

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// workerClient speaks the pipeline worker's JSON protocol:
//
//	GET  /health     -> 2xx once the process is up
//	POST /load       LoadSpec
//	POST /scheduler  SchedulerConfig
//	POST /generate   GenerateParams -> {"image": <base64>, "format": "png"}
//	POST /unload
//
// Non-2xx responses carry {"error": "..."}.
type workerClient struct {
	baseURL    string
	httpClient *http.Client
}

func newWorkerClient(baseURL string, connectTimeout time.Duration) *workerClient {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}
	// Timeout=0: loads and generations can take minutes, so every call
	// carries its deadline on the context instead.
	return &workerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

type workerError struct {
	Error string `json:"error"`
}

type generateResponse struct {
	Image  string `json:"image"`
	Format string `json:"format"`
}

func (c *workerClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("worker health: %s", resp.Status)
	}
	return nil
}

// post sends body as JSON and decodes a 2xx response into out when non-nil.
func (c *workerClient) post(ctx context.Context, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("worker %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var we workerError
		if json.Unmarshal(b, &we) == nil && we.Error != "" {
			return fmt.Errorf("worker %s: %s: %s", path, resp.Status, we.Error)
		}
		return fmt.Errorf("worker %s: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("worker %s: decode: %w", path, err)
	}
	return nil
}

func (c *workerClient) load(ctx context.Context, spec LoadSpec) error {
	return c.post(ctx, "/load", spec, nil)
}

func (c *workerClient) setScheduler(ctx context.Context, cfg SchedulerConfig) error {
	return c.post(ctx, "/scheduler", cfg, nil)
}

func (c *workerClient) generate(ctx context.Context, p GenerateParams) (image.Image, error) {
	var out generateResponse
	if err := c.post(ctx, "/generate", p, &out); err != nil {
		return nil, err
	}
	if out.Image == "" {
		return nil, fmt.Errorf("worker /generate: empty image")
	}
	raw, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, fmt.Errorf("worker /generate: base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("worker /generate: decode %s: %w", out.Format, err)
	}
	return img, nil
}

func (c *workerClient) unload(ctx context.Context) error {
	return c.post(ctx, "/unload", nil, nil)
}

// workerPipeline is a Pipeline backed by a worker endpoint. stop, when set,
// terminates the worker process after unloading.
type workerPipeline struct {
	client *workerClient
	stop   func() error
}

func (p *workerPipeline) SetScheduler(ctx context.Context, cfg SchedulerConfig) error {
	return p.client.setScheduler(ctx, cfg)
}

func (p *workerPipeline) Generate(ctx context.Context, gp GenerateParams) (image.Image, error) {
	return p.client.generate(ctx, gp)
}

func (p *workerPipeline) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := p.client.unload(ctx)
	if p.stop != nil {
		// Process exit frees accelerator memory, so /unload is best effort here.
		return p.stop()
	}
	return err
}

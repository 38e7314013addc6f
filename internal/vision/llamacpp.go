// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/doc2text/internal/container"
	"github.com/pdiddy/doc2text/internal/describe"
)

const (
	// DefaultServerImage is the llama.cpp server image used in container mode.
	DefaultServerImage = "ghcr.io/ggml-org/llama.cpp:server"

	defaultServerBin      = "llama-server"
	defaultContextSize    = 4096
	defaultStartupTimeout = 2 * time.Minute

	// containerPort is where llama-server listens inside the container.
	containerPort = 8080

	// allGPULayers is passed to -ngl when every layer should be offloaded.
	allGPULayers = 999

	// localToken satisfies the OpenAI client; llama-server ignores it.
	localToken = "sk-no-key-required"
	localModel = "local"
)

// healthPollInterval is the delay between /health probes. Tests shorten it.
var healthPollInterval = 500 * time.Millisecond

// Server is a running llama.cpp server.
type Server interface {
	// URL is the server root, e.g. http://127.0.0.1:41234.
	URL() string
	// Exited is closed, after delivering the exit error, when the server
	// stops on its own. It may be nil when exit cannot be observed.
	Exited() <-chan error
	Stop() error
}

// Launcher starts a llama.cpp server for a model pair on a host port.
type Launcher interface {
	Launch(ctx context.Context, cfg ServerConfig, port int) (Server, error)
}

// ServerConfig holds the llama-server settings shared by every launcher.
type ServerConfig struct {
	ModelPath     string
	ClipModelPath string
	ContextSize   int
	GPULayers     int
}

// args builds the llama-server command line for the given model paths and
// listen address.
func (c ServerConfig) args(model, clip, host string, port int) []string {
	ctxSize := c.ContextSize
	if ctxSize <= 0 {
		ctxSize = defaultContextSize
	}
	ngl := c.GPULayers
	if ngl < 0 {
		ngl = allGPULayers
	}
	return []string{
		"-m", model,
		"--mmproj", clip,
		"-c", strconv.Itoa(ctxSize),
		"-ngl", strconv.Itoa(ngl),
		"--host", host,
		"--port", strconv.Itoa(port),
	}
}

// LlamaCpp describes images with a local vision model pair (model weights
// plus multimodal projector) served by llama-server. Init starts the server
// and waits for it to load; Close on the handle stops it.
type LlamaCpp struct {
	Server ServerConfig

	// ServerBin is the llama-server executable used when no ContainerImage
	// is set.
	ServerBin string

	// ContainerImage runs the server in a docker or podman container.
	ContainerImage string

	StartupTimeout time.Duration
	MaxRetries     int
	Log            zerolog.Logger

	// Launcher overrides how the server is started.
	Launcher Launcher
}

func (l *LlamaCpp) Name() string { return "llamacpp" }

func (l *LlamaCpp) Init(ctx context.Context) (describe.Handle, error) {
	for _, p := range []string{l.Server.ModelPath, l.Server.ClipModelPath} {
		if p == "" {
			return nil, fmt.Errorf("llamacpp backend: model_path and clip_model_path are required")
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("llamacpp backend: %w", err)
		}
	}

	launcher, err := l.launcher()
	if err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("choosing server port: %w", err)
	}

	l.Log.Info().
		Str("model", filepath.Base(l.Server.ModelPath)).
		Str("mmproj", filepath.Base(l.Server.ClipModelPath)).
		Int("port", port).
		Msg("starting llama.cpp server")

	srv, err := launcher.Launch(ctx, l.Server, port)
	if err != nil {
		return nil, fmt.Errorf("starting llama.cpp server: %w", err)
	}

	timeout := l.StartupTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}
	if err := waitHealthy(ctx, srv, timeout); err != nil {
		if stopErr := srv.Stop(); stopErr != nil {
			l.Log.Warn().Err(stopErr).Msg("stopping llama.cpp server")
		}
		return nil, err
	}

	h, err := newOpenAIHandle(srv.URL()+"/v1", localToken, localModel, l.MaxRetries, l.Log)
	if err != nil {
		srv.Stop()
		return nil, err
	}
	h.closeFn = srv.Stop
	return h, nil
}

func (l *LlamaCpp) launcher() (Launcher, error) {
	if l.Launcher != nil {
		return l.Launcher, nil
	}
	if l.ContainerImage != "" {
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, fmt.Errorf("llamacpp backend: %w", err)
		}
		return &ContainerLauncher{Runtime: rt, Image: l.ContainerImage, Log: l.Log}, nil
	}
	bin := l.ServerBin
	if bin == "" {
		bin = defaultServerBin
	}
	return &ProcessLauncher{Bin: bin, Log: l.Log}, nil
}

// waitHealthy polls GET /health until it answers 200, the server exits, or
// timeout elapses. llama-server answers 503 while the model is loading.
func waitHealthy(ctx context.Context, srv Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	healthURL := srv.URL() + "/health"
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("building health request: %w", err)
		}
		if resp, err := client.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case err := <-srv.Exited():
			if err == nil {
				err = errors.New("exited")
			}
			return fmt.Errorf("llama.cpp server stopped before becoming healthy: %w", err)
		case <-ctx.Done():
			return fmt.Errorf("llama.cpp server not healthy after %s: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// freePort asks the kernel for an unused loopback port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// ProcessLauncher runs llama-server as a child process.
type ProcessLauncher struct {
	Bin string
	Log zerolog.Logger
}

func (p *ProcessLauncher) Launch(ctx context.Context, cfg ServerConfig, port int) (Server, error) {
	cmd := exec.Command(p.Bin, cfg.args(cfg.ModelPath, cfg.ClipModelPath, "127.0.0.1", port)...)
	out := &lineLogger{log: p.Log.With().Str("source", "llama-server").Logger()}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("running %s: %w", p.Bin, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	return &processServer{
		url:    "http://127.0.0.1:" + strconv.Itoa(port),
		cmd:    cmd,
		exited: exited,
	}, nil
}

type processServer struct {
	url    string
	cmd    *exec.Cmd
	exited chan error
}

func (s *processServer) URL() string          { return s.url }
func (s *processServer) Exited() <-chan error { return s.exited }

// stopGrace is how long Stop waits after an interrupt before killing.
const stopGrace = 10 * time.Second

func (s *processServer) Stop() error {
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		// Already gone.
		return nil
	}
	select {
	case <-s.exited:
		return nil
	case <-time.After(stopGrace):
		if err := s.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("killing llama-server: %w", err)
		}
		<-s.exited
		return nil
	}
}

// ContainerLauncher runs llama-server inside a container, mounting the model
// directories read-only.
type ContainerLauncher struct {
	Runtime container.Runtime
	Image   string
	Log     zerolog.Logger
}

const (
	modelMount = "/models/model"
	clipMount  = "/models/mmproj"
)

func (c *ContainerLauncher) Launch(ctx context.Context, cfg ServerConfig, port int) (Server, error) {
	image := c.Image
	if image == "" {
		image = DefaultServerImage
	}
	if err := c.Runtime.ImageExists(image); err != nil {
		c.Log.Info().Str("image", image).Msg("image not present locally; the runtime will pull it")
	}

	modelPath, err := filepath.Abs(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("resolving model path: %w", err)
	}
	clipPath, err := filepath.Abs(cfg.ClipModelPath)
	if err != nil {
		return nil, fmt.Errorf("resolving mmproj path: %w", err)
	}

	mounts := []container.Mount{{Source: filepath.Dir(modelPath), Target: modelMount, ReadOnly: true}}
	clipDir := modelMount
	if filepath.Dir(clipPath) != filepath.Dir(modelPath) {
		mounts = append(mounts, container.Mount{Source: filepath.Dir(clipPath), Target: clipMount, ReadOnly: true})
		clipDir = clipMount
	}

	spec := container.RunSpec{
		Image:  image,
		Ports:  map[int]int{port: containerPort},
		Mounts: mounts,
		Args: cfg.args(
			modelMount+"/"+filepath.Base(modelPath),
			clipDir+"/"+filepath.Base(clipPath),
			"0.0.0.0", containerPort,
		),
	}
	if cfg.GPULayers != 0 {
		spec.GPUs = "all"
	}

	id, err := c.Runtime.Start(spec)
	if err != nil {
		return nil, err
	}
	c.Log.Debug().Str("runtime", c.Runtime.Name()).Str("container", id).Msg("llama.cpp container started")

	return &containerServer{
		url:     "http://127.0.0.1:" + strconv.Itoa(port),
		id:      id,
		runtime: c.Runtime,
	}, nil
}

type containerServer struct {
	url     string
	id      string
	runtime container.Runtime
}

func (s *containerServer) URL() string { return s.url }

// Exited returns nil; container exit is detected through the health timeout.
func (s *containerServer) Exited() <-chan error { return nil }
func (s *containerServer) Stop() error          { return s.runtime.Stop(s.id) }

// lineLogger forwards server output to the logger one line at a time.
type lineLogger struct {
	log zerolog.Logger
	buf []byte
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(w.buf[:i])); line != "" {
			w.log.Debug().Msg(line)
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

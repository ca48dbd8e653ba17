// Package assistant invokes the external AI assistant CLI as a subprocess.
// Prompts are delivered over stdin (never argv, never a shell) and responses
// are read from stdout, with a watchdog timeout that force-kills the process
// group and a liveness side channel for "still working" feedback.
package assistant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/agentpane/agentpane/pkg/logger"
	"github.com/agentpane/agentpane/pkg/osutil"
	"github.com/agentpane/agentpane/pkg/presenter"
)

const (
	// DefaultBinaryName is the assistant executable looked up on PATH.
	DefaultBinaryName = "claude"
	// DefaultModel is the fixed model identifier passed to the assistant.
	DefaultModel = "sonnet"
	// DefaultTimeout bounds generation calls unless the caller overrides it.
	DefaultTimeout = 5 * time.Minute

	probeTimeout     = 5 * time.Second
	livenessInterval = 10 * time.Second
	outputPreviewLen = 200
)

// Result is the structured outcome of one assistant invocation. Content
// holds partial stdout even on failure, for diagnostics.
type Result struct {
	Success bool
	Content string
	Err     string
}

// Client runs the external assistant. At most one subprocess exists per
// Execute call; callers are expected to serialize calls.
type Client struct {
	binPath           string
	model             string
	bypassPermissions bool
	observer          presenter.Sink
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithModel overrides the model identifier.
func WithModel(model string) ClientOption {
	return func(c *Client) error {
		if model == "" {
			return errors.New("model must not be empty")
		}
		c.model = model
		return nil
	}
}

// WithBypassPermissions threads the caller's persisted consent flag into the
// client. Only when true does the assistant get the flag that skips its
// interactive confirmation prompts; the client never reads ambient state.
func WithBypassPermissions(bypass bool) ClientOption {
	return func(c *Client) error {
		c.bypassPermissions = bypass
		return nil
	}
}

// WithObserver sets the sink receiving liveness progress lines.
func WithObserver(sink presenter.Sink) ClientOption {
	return func(c *Client) error {
		if sink == nil {
			return errors.New("observer sink must not be nil")
		}
		c.observer = sink
		return nil
	}
}

// WithBinaryPath overrides assistant binary resolution.
func WithBinaryPath(path string) ClientOption {
	return func(c *Client) error {
		if path == "" {
			return errors.New("binary path must not be empty")
		}
		c.binPath = path
		return nil
	}
}

// NewClient creates a Client, resolving the assistant binary from PATH with
// a fallback to the well-known per-user install location.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		model:    DefaultModel,
		observer: presenter.NopSink{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "failed to apply assistant client option")
		}
	}
	if c.binPath == "" {
		c.binPath = resolveBinary()
	}
	return c, nil
}

// resolveBinary prefers PATH, then ~/.claude/local/<bin>. If neither exists
// the bare name is returned and the spawn failure surfaces in the Result.
func resolveBinary() string {
	if path, err := exec.LookPath(DefaultBinaryName); err == nil {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		fallback := filepath.Join(home, ".claude", "local", DefaultBinaryName)
		if _, statErr := os.Stat(fallback); statErr == nil {
			return fallback
		}
	}
	return DefaultBinaryName
}

// ExecuteOptions tune a single Execute call.
type ExecuteOptions struct {
	// Timeout bounds the call; zero means DefaultTimeout.
	Timeout time.Duration
}

// Execute runs the assistant in print mode with the prompt on stdin and
// returns a structured result. It never returns an error: every failure mode
// (spawn failure, timeout, nonzero exit) is folded into the Result.
func (c *Client) Execute(ctx context.Context, prompt string, opts ExecuteOptions) Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	callID := uuid.NewString()
	log := logger.G(ctx).WithField("call_id", callID)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--print", "--model", c.model}
	if c.bypassPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	cmd := exec.CommandContext(execCtx, c.binPath, args...)
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to create stdin pipe").Error()}
	}

	start := time.Now()
	log.WithField("timeout", timeout.String()).Debug("Invoking assistant")

	if err := cmd.Start(); err != nil {
		log.WithError(err).Warn("Failed to start assistant")
		return Result{
			Err: fmt.Sprintf("failed to start assistant %q: %v (is the assistant CLI installed?)", c.binPath, err),
		}
	}

	go func() {
		defer stdin.Close()
		_, _ = io.WriteString(stdin, prompt)
	}()

	stopLiveness := c.startLiveness(callID, cmd.Process.Pid, start)
	waitErr := cmd.Wait()
	stopLiveness()

	content := stdout.String()

	if execCtx.Err() == context.DeadlineExceeded {
		log.WithField("elapsed", time.Since(start).String()).Warn("Assistant timed out")
		return Result{
			Content: content,
			Err: fmt.Sprintf("assistant timed out after %s; partial output: %s",
				timeout, preview(content)),
		}
	}

	if waitErr != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				errMsg = fmt.Sprintf("assistant exited with code %d", exitErr.ExitCode())
			} else {
				errMsg = waitErr.Error()
			}
		}
		log.WithField("error", errMsg).Warn("Assistant failed")
		return Result{Content: content, Err: errMsg}
	}

	log.WithField("elapsed", time.Since(start).String()).Debug("Assistant call complete")
	return Result{Success: true, Content: content}
}

// startLiveness emits a progress line every 10 seconds while the subprocess
// is alive. Returns a stop function.
func (c *Client) startLiveness(callID string, pid int, start time.Time) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(livenessInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if alive, _ := process.PidExists(int32(pid)); !alive {
					return
				}
				elapsed := int(time.Since(start).Seconds())
				c.observer.Progress(fmt.Sprintf("assistant still working (%ds elapsed, call %s)", elapsed, callID[:8]))
			}
		}
	}()
	return func() { close(done) }
}

// IsAvailable probes the assistant with a short version call. Any error or
// nonzero exit means "not available"; it never panics.
func (c *Client) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, c.binPath, "--version")
	return cmd.Run() == nil
}

func preview(s string) string {
	if len(s) > outputPreviewLen {
		return s[:outputPreviewLen]
	}
	return s
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"sync"
)

// supportedAudioExtensions lists the formats the player accepts.
var supportedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".aiff": true,
	".aif":  true,
	".ogg":  true,
	".flac": true,
	".m4a":  true,
}

// ExecPlayer plays clips through a command-line tool (paplay by default).
// Local paths and file:// URLs are played in place; http(s) sources are
// downloaded once when the clip is created.
type ExecPlayer struct {
	command string
	client  *http.Client
}

func NewExecPlayer(command string, client *http.Client) *ExecPlayer {
	if command == "" {
		command = "paplay"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ExecPlayer{command: command, client: client}
}

// Available reports whether the playback tool is on PATH.
func (p *ExecPlayer) Available() bool {
	return toolAvailable(p.command)
}

func (p *ExecPlayer) Load(ctx context.Context, rawURL string) (Clip, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if !supportedAudioExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported audio format %q", ErrInvalidSource, ext)
	}

	switch u.Scheme {
	case "", "file":
		info, err := os.Stat(u.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidSource, u.Path)
		}
		return &execClip{command: p.command, path: u.Path}, nil
	case "http", "https":
		file, err := p.download(ctx, u.String(), ext)
		if err != nil {
			return nil, err
		}
		return &execClip{command: p.command, path: file, temp: true}, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidSource, u.Scheme)
	}
}

func (p *ExecPlayer) download(ctx context.Context, src, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch sound: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: fetch %s: status %s", ErrInvalidSource, src, resp.Status)
	default:
		return "", fmt.Errorf("failed to fetch sound: status %s", resp.Status)
	}

	f, err := os.CreateTemp("", "dashboard-sound-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create sound file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to download sound: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to download sound: %w", err)
	}
	return f.Name(), nil
}

// execClip plays one file. Only one playback process runs at a time; a new
// playback always starts from the beginning.
type execClip struct {
	command string
	path    string
	temp    bool

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (c *execClip) Rewind() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	c.cmd = nil
	return nil
}

// Play blocks until playback ends. Starting a playback stops the one in
// progress, so at most one process runs per clip. A playback cut short this
// way or by Rewind is not an error; the tool exiting non-zero means it could
// not decode the file.
func (c *execClip) Play(ctx context.Context, volume float64) error {
	cmd := exec.CommandContext(ctx, c.command, fmt.Sprintf("--volume=%d", int(volume*65536)), c.path)

	c.mu.Lock()
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	c.cmd = nil
	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to start %s: %w", c.command, err)
	}
	c.cmd = cmd
	c.mu.Unlock()

	err := cmd.Wait()

	c.mu.Lock()
	superseded := c.cmd != cmd
	if !superseded {
		c.cmd = nil
	}
	c.mu.Unlock()

	if err == nil || superseded || ctx.Err() != nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return fmt.Errorf("%w: %s exited with status %d", ErrInvalidSource, c.command, exitErr.ExitCode())
	}
	return err
}

func (c *execClip) Close() error {
	_ = c.Rewind()
	if c.temp {
		return os.Remove(c.path)
	}
	return nil
}

// toolAvailable checks if a command-line tool is available in PATH
func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

package notify

import (
	"context"
	"sync"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

// mockClip records rewinds and playbacks.
type mockClip struct {
	mu      sync.Mutex
	url     string
	playErr error
	events  []string
	volumes []float64
}

func (c *mockClip) Rewind() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, "rewind")
	return nil
}

func (c *mockClip) Play(_ context.Context, volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, "play")
	c.volumes = append(c.volumes, volume)
	return c.playErr
}

func (c *mockClip) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// mockPlayer hands out mockClips and counts loads per URL.
type mockPlayer struct {
	mu      sync.Mutex
	loads   map[string]int
	clips   []*mockClip
	loadErr error
	playErr error
}

func newMockPlayer() *mockPlayer {
	return &mockPlayer{loads: make(map[string]int)}
}

func (p *mockPlayer) Load(_ context.Context, url string) (Clip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads[url]++
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	clip := &mockClip{url: url, playErr: p.playErr}
	p.clips = append(p.clips, clip)
	return clip, nil
}

func (p *mockPlayer) Loads(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads[url]
}

// mockDesktop is a Desktop with a fixed permission answer.
type mockDesktop struct {
	mu         sync.Mutex
	permission Permission
	onRequest  Permission
	requests   int
	shown      []model.ActiveNotification
	showErr    error
}

func (d *mockDesktop) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

func (d *mockDesktop) RequestPermission(context.Context) Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests++
	if d.permission == PermissionDefault && d.onRequest != "" {
		d.permission = d.onRequest
	}
	return d.permission
}

func (d *mockDesktop) Show(_ context.Context, n model.ActiveNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, n)
	return d.showErr
}

func (d *mockDesktop) Shown() []model.ActiveNotification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.ActiveNotification(nil), d.shown...)
}

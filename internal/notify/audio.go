package notify

import (
	"context"
	"errors"
	"io"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidSource marks failures caused by the sound URL itself: an
// unsupported format, a missing file or a source the policy refuses. Clips
// failing this way are evicted so the next request builds a fresh one.
var ErrInvalidSource = errors.New("invalid audio source")

// DefaultAudioCacheSize bounds the number of clips kept alive at once.
const DefaultAudioCacheSize = 32

// Clip is a reusable, playable handle for one sound URL.
type Clip interface {
	// Rewind moves playback back to the start, stopping any playback in
	// progress.
	Rewind() error
	Play(ctx context.Context, volume float64) error
}

// Player builds clips from sound URLs.
type Player interface {
	Load(ctx context.Context, url string) (Clip, error)
}

// AudioCache holds at most one clip per URL. Concurrent requests for a URL
// that is not cached yet share one Load call.
type AudioCache struct {
	player Player
	clips  *lru.Cache
	group  singleflight.Group
}

// NewAudioCache returns a cache holding up to size clips; the least recently
// used clip is closed and dropped when the cache is full.
func NewAudioCache(player Player, size int) *AudioCache {
	if size <= 0 {
		size = DefaultAudioCacheSize
	}
	clips, err := lru.NewWithEvict(size, func(_, value interface{}) {
		closeClip(value.(Clip))
	})
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &AudioCache{player: player, clips: clips}
}

// Get returns the cached clip for url, creating it on first use.
func (c *AudioCache) Get(ctx context.Context, url string) (Clip, error) {
	if clip, ok := c.clips.Get(url); ok {
		return clip.(Clip), nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		if clip, ok := c.clips.Get(url); ok {
			return clip, nil
		}
		clip, err := c.player.Load(ctx, url)
		if err != nil {
			return nil, err
		}
		c.clips.Add(url, clip)
		return clip, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Clip), nil
}

// Invalidate drops the clip cached for url, if any.
func (c *AudioCache) Invalidate(url string) {
	c.clips.Remove(url)
}

func (c *AudioCache) Contains(url string) bool {
	return c.clips.Contains(url)
}

func (c *AudioCache) Len() int {
	return c.clips.Len()
}

// Purge closes and drops every clip.
func (c *AudioCache) Purge() {
	c.clips.Purge()
}

func closeClip(clip Clip) {
	if closer, ok := clip.(io.Closer); ok {
		_ = closer.Close()
	}
}

package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

// DefaultLifetime is how long a toast stays visible when the caller does not
// say otherwise.
const DefaultLifetime = 5 * time.Second

// Sound selects a clip and playback volume. Volume nil means full volume.
type Sound struct {
	URL    string   `json:"url"`
	Volume *float64 `json:"volume,omitempty"`
}

func SoundURL(url string) *Sound {
	return &Sound{URL: url}
}

func SoundAt(url string, volume float64) *Sound {
	return &Sound{URL: url, Volume: &volume}
}

// UnmarshalJSON accepts either a bare URL string or {"url", "volume"}.
func (s *Sound) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		*s = Sound{URL: url}
		return nil
	}
	type plain Sound
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("sound must be a url or {url, volume}: %w", err)
	}
	*s = Sound(p)
	return nil
}

// volume returns the requested volume clamped to [0, 1].
func (s *Sound) volume() float64 {
	if s.Volume == nil {
		return 1
	}
	v := *s.Volume
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

type Options struct {
	Severity model.Severity
	Lifetime time.Duration
	Sound    *Sound
	Desktop  bool
}

func (o Options) withDefaults(lifetime time.Duration) Options {
	if !o.Severity.Valid() {
		o.Severity = model.SeverityInfo
	}
	if o.Lifetime <= 0 {
		o.Lifetime = lifetime
	}
	if o.Sound != nil && o.Sound.URL == "" {
		o.Sound = nil
	}
	return o
}

package model

import "time"

type WidgetSize string

const (
	WidgetSizeSmall  WidgetSize = "small"
	WidgetSizeMedium WidgetSize = "medium"
	WidgetSizeLarge  WidgetSize = "large"
)

type General struct {
	ShowNotifications    bool `json:"showNotifications"`
	AutoSave             bool `json:"autoSave"`
	ConfirmWidgetRemoval bool `json:"confirmWidgetRemoval"`
}

type Appearance struct {
	DefaultWidgetSize WidgetSize `json:"defaultWidgetSize" validate:"oneof=small medium large"`
	WidgetSpacing     int        `json:"widgetSpacing" validate:"min=0,max=64"`
}

type Performance struct {
	EnableAnimations        bool `json:"enableAnimations"`
	ReduceBackgroundUpdates bool `json:"reduceBackgroundUpdates"`
}

type Credential struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Service   string    `json:"service" validate:"required"`
	Secret    string    `json:"secret" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

// Configuration is the whole persisted settings tree.
type Configuration struct {
	General     General      `json:"general"`
	Appearance  Appearance   `json:"appearance"`
	Performance Performance  `json:"performance"`
	Credentials []Credential `json:"credentials"`
	Widgets     []Widget     `json:"widgets"`
}

// DefaultConfiguration returns the value used for every field absent from
// the persisted payload.
func DefaultConfiguration() Configuration {
	return Configuration{
		General: General{
			ShowNotifications:    true,
			AutoSave:             true,
			ConfirmWidgetRemoval: true,
		},
		Appearance: Appearance{
			DefaultWidgetSize: WidgetSizeMedium,
			WidgetSpacing:     16,
		},
		Performance: Performance{
			EnableAnimations:        true,
			ReduceBackgroundUpdates: false,
		},
		Credentials: []Credential{},
		Widgets:     []Widget{},
	}
}

// Clone returns a deep copy so callers never share the store's slices or maps.
func (c Configuration) Clone() Configuration {
	out := c
	out.Credentials = make([]Credential, len(c.Credentials))
	copy(out.Credentials, c.Credentials)
	out.Widgets = make([]Widget, len(c.Widgets))
	for i, w := range c.Widgets {
		out.Widgets[i] = w.Clone()
	}
	return out
}

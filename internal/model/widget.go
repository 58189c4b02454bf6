package model

type WidgetKind string

const (
	WidgetCountdown   WidgetKind = "countdown"
	WidgetWeather     WidgetKind = "weather"
	WidgetMarketplace WidgetKind = "marketplace"
)

func (k WidgetKind) Valid() bool {
	switch k {
	case WidgetCountdown, WidgetWeather, WidgetMarketplace:
		return true
	}
	return false
}

// Widget is a dashboard panel. Config is opaque to the host; only the widget
// itself interprets it.
type Widget struct {
	ID     string         `json:"id"`
	Kind   WidgetKind     `json:"kind"`
	Config map[string]any `json:"config"`
}

// Clone copies the widget, including nested maps and slices in Config.
func (w Widget) Clone() Widget {
	out := w
	out.Config = cloneMap(w.Config)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

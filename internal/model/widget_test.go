package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWidgetClone_CopiesNestedConfig(t *testing.T) {
	t.Parallel()
	w := Widget{
		ID:   "w1",
		Kind: WidgetWeather,
		Config: map[string]any{
			"city":     "Oslo",
			"location": map[string]any{"lat": 59.9, "lon": 10.7},
			"alerts":   []any{"wind", map[string]any{"level": "high"}},
		},
	}

	c := w.Clone()
	c.Config["location"].(map[string]any)["lat"] = 0.0
	c.Config["alerts"].([]any)[0] = "rain"
	c.Config["alerts"].([]any)[1].(map[string]any)["level"] = "low"
	c.Config["city"] = "Bergen"

	assert.Equal(t, 59.9, w.Config["location"].(map[string]any)["lat"])
	assert.Equal(t, "wind", w.Config["alerts"].([]any)[0])
	assert.Equal(t, "high", w.Config["alerts"].([]any)[1].(map[string]any)["level"])
	assert.Equal(t, "Oslo", w.Config["city"])
}

func TestWidgetClone_NilConfig(t *testing.T) {
	t.Parallel()
	c := Widget{ID: "w1", Kind: WidgetCountdown}.Clone()
	assert.NotNil(t, c.Config)
	assert.Empty(t, c.Config)
}

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "dashboard.json")
	s := NewStore(path, testclock.NewClock(epoch), nil)
	require.NoError(t, s.Load())
	return s, path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	assert.Equal(t, model.DefaultConfiguration(), s.Read())
}

func TestLoad_CorruptPayloadUsesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dashboard.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewStore(path, nil, nil)
	require.NoError(t, s.Load())
	assert.Equal(t, model.DefaultConfiguration(), s.Read())
}

func TestLoad_MissingFieldsFallBackPerField(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dashboard.json")
	payload := `{"appearance": {"widgetSpacing": 8}, "general": {"autoSave": false}, "credentials": null}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	s := NewStore(path, nil, nil)
	require.NoError(t, s.Load())
	cfg := s.Read()

	assert.Equal(t, 8, cfg.Appearance.WidgetSpacing)
	assert.Equal(t, model.WidgetSizeMedium, cfg.Appearance.DefaultWidgetSize)
	assert.False(t, cfg.General.AutoSave)
	assert.True(t, cfg.General.ShowNotifications)
	assert.True(t, cfg.Performance.EnableAnimations)
	assert.NotNil(t, cfg.Credentials)
	assert.NotNil(t, cfg.Widgets)
}

func TestLoad_OutOfRangeFieldsFallBack(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dashboard.json")
	payload := `{"appearance": {"defaultWidgetSize": "huge", "widgetSpacing": 12}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	s := NewStore(path, nil, nil)
	require.NoError(t, s.Load())
	cfg := s.Read()

	assert.Equal(t, model.WidgetSizeMedium, cfg.Appearance.DefaultWidgetSize)
	assert.Equal(t, 12, cfg.Appearance.WidgetSpacing)
}

func TestUpdate_MergesWithinSection(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	require.NoError(t, s.Update(SectionAppearance, map[string]any{"defaultWidgetSize": "large"}))
	require.NoError(t, s.Update(SectionAppearance, map[string]any{"widgetSpacing": float64(24)}))

	cfg := s.Read()
	assert.Equal(t, model.WidgetSizeLarge, cfg.Appearance.DefaultWidgetSize)
	assert.Equal(t, 24, cfg.Appearance.WidgetSpacing)
	assert.Equal(t, model.DefaultConfiguration().General, cfg.General)
}

func TestUpdate_PersistsAndReloads(t *testing.T) {
	t.Parallel()
	s, path := newTestStore(t)

	require.NoError(t, s.Update(SectionPerformance, map[string]any{"reduceBackgroundUpdates": true}))

	reloaded := NewStore(path, nil, nil)
	require.NoError(t, reloaded.Load())
	cfg := reloaded.Read()
	assert.True(t, cfg.Performance.ReduceBackgroundUpdates)
	assert.True(t, cfg.Performance.EnableAnimations)
}

func TestUpdate_Rejections(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		section Section
		fields  map[string]any
		target  error
	}{
		"unknown section": {
			section: Section("layout"),
			fields:  map[string]any{"x": 1},
			target:  ErrUnknownSection,
		},
		"unknown field": {
			section: SectionGeneral,
			fields:  map[string]any{"darkMode": true},
		},
		"invalid enum": {
			section: SectionAppearance,
			fields:  map[string]any{"defaultWidgetSize": "huge"},
		},
		"out of range": {
			section: SectionAppearance,
			fields:  map[string]any{"widgetSpacing": 500},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestStore(t)
			err := s.Update(tt.section, tt.fields)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, model.DefaultConfiguration(), s.Read())
		})
	}
}

func TestUpdate_WriteFailureIsRecoverable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	s := NewStore(filepath.Join(blocker, "dashboard.json"), nil, nil)

	err := s.Update(SectionGeneral, map[string]any{"autoSave": false})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.False(t, s.Read().General.AutoSave)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	var got []model.Configuration
	unsubscribe := s.Subscribe(func(cfg model.Configuration) {
		got = append(got, cfg)
	})

	require.NoError(t, s.Update(SectionGeneral, map[string]any{"showNotifications": false}))
	require.Len(t, got, 1)
	assert.False(t, got[0].General.ShowNotifications)

	unsubscribe()
	require.NoError(t, s.Update(SectionGeneral, map[string]any{"showNotifications": true}))
	assert.Len(t, got, 1)
}

func TestRead_ReturnsCopy(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	_, err := s.AddCredential("GitHub", "github", "ghp_x")
	require.NoError(t, err)

	cfg := s.Read()
	cfg.Credentials[0].Secret = "tampered"
	assert.Equal(t, "ghp_x", s.Read().Credentials[0].Secret)
}

package credentials

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/widget-dashboard/internal/storage"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s := storage.NewStore(filepath.Join(t.TempDir(), "dashboard.json"), nil, nil)
	require.NoError(t, s.Load())
	return s
}

func TestByService_CaseInsensitiveInOrder(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	r := NewRegistry(s)

	a, err := s.AddCredential("personal", "GitHub", "1")
	require.NoError(t, err)
	_, err = s.AddCredential("token", "pushover", "2")
	require.NoError(t, err)
	c, err := s.AddCredential("work", "github", "3")
	require.NoError(t, err)

	got := r.ByService("GITHUB")
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, c.ID, got[1].ID)

	assert.Empty(t, r.ByService("git"))
}

func TestLookupsReflectCurrentStore(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	var lookup Lookup = NewRegistry(s)

	c, err := s.AddCredential("token", "pushover", "abc")
	require.NoError(t, err)

	secret, ok := lookup.ResolveSecret(c.ID)
	require.True(t, ok)
	assert.Equal(t, "abc", secret)

	require.NoError(t, s.UpdateCredential(c.ID, map[string]any{"secret": "def"}))
	secret, ok = lookup.ResolveSecret(c.ID)
	require.True(t, ok)
	assert.Equal(t, "def", secret)

	require.NoError(t, s.RemoveCredential(c.ID))
	_, ok = lookup.ResolveSecret(c.ID)
	assert.False(t, ok)
	assert.Empty(t, lookup.ListByService("pushover"))
}

func TestByID(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	r := NewRegistry(s)

	c, err := s.AddCredential("n", "svc", "x")
	require.NoError(t, err)

	got, ok := r.ByID(c.ID)
	require.True(t, ok)
	assert.Equal(t, c, got)

	_, ok = r.ByID("missing")
	assert.False(t, ok)
}

package storage

import (
	"errors"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

var ErrWidgetNotFound = errors.New("widget not found")

func (s *Store) Widget(id string) (model.Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.widgetIndex(id); idx >= 0 {
		return s.data.Widgets[idx].Clone(), true
	}
	return model.Widget{}, false
}

// Widgets returns every widget in dashboard order.
func (s *Store) Widgets() []model.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Widget, len(s.data.Widgets))
	for i, w := range s.data.Widgets {
		out[i] = w.Clone()
	}
	return out
}

// PutWidget inserts w, or replaces the widget with the same id in place.
func (s *Store) PutWidget(w model.Widget) error {
	w = w.Clone()

	s.mu.Lock()
	widgets := make([]model.Widget, len(s.data.Widgets), len(s.data.Widgets)+1)
	copy(widgets, s.data.Widgets)
	if idx := s.widgetIndex(w.ID); idx >= 0 {
		widgets[idx] = w
	} else {
		widgets = append(widgets, w)
	}
	s.data.Widgets = widgets
	return s.commit()
}

// UpdateWidget merges partial into the widget's config blob key by key.
func (s *Store) UpdateWidget(id string, partial map[string]any) error {
	s.mu.Lock()
	idx := s.widgetIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrWidgetNotFound
	}

	w := s.data.Widgets[idx].Clone()
	for k, v := range partial {
		w.Config[k] = v
	}
	widgets := make([]model.Widget, len(s.data.Widgets))
	copy(widgets, s.data.Widgets)
	widgets[idx] = w
	s.data.Widgets = widgets
	return s.commit()
}

// RemoveWidget deletes the widget's blob. An unknown id is a no-op.
func (s *Store) RemoveWidget(id string) error {
	s.mu.Lock()
	idx := s.widgetIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	widgets := make([]model.Widget, 0, len(s.data.Widgets)-1)
	widgets = append(widgets, s.data.Widgets[:idx]...)
	widgets = append(widgets, s.data.Widgets[idx+1:]...)
	s.data.Widgets = widgets
	return s.commit()
}

func (s *Store) widgetIndex(id string) int {
	for i, w := range s.data.Widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

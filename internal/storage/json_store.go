package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

// ErrPersist wraps every failure to write the configuration file. The
// in-memory state still holds the attempted change when it is returned.
var ErrPersist = errors.New("failed to persist configuration")

// Store is the process-wide configuration store. It is the only mutator of
// the configuration tree; all writes are serialized by mu.
type Store struct {
	mu       sync.RWMutex
	filePath string
	data     model.Configuration

	clock    clock.Clock
	logger   *slog.Logger
	validate *validator.Validate

	subMu       sync.Mutex
	subscribers map[int]func(model.Configuration)
	nextSub     int
}

func NewStore(filePath string, clk clock.Clock, logger *slog.Logger) *Store {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		filePath:    filePath,
		data:        model.DefaultConfiguration(),
		clock:       clk,
		logger:      logger,
		validate:    validator.New(),
		subscribers: make(map[int]func(model.Configuration)),
	}
}

// Load reads the persisted payload. A missing, empty or corrupt payload
// leaves the store on defaults; only I/O errors other than "not exist" are
// returned.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = model.DefaultConfiguration()
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		s.data = model.DefaultConfiguration()
		return nil
	}

	cfg := model.DefaultConfiguration()
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Warn("corrupt configuration payload, using defaults", "path", s.filePath, "error", err)
		s.data = model.DefaultConfiguration()
		return nil
	}

	s.data = s.withDefaults(cfg)
	return nil
}

// withDefaults replaces out-of-range or null fields with their defaults.
func (s *Store) withDefaults(cfg model.Configuration) model.Configuration {
	def := model.DefaultConfiguration()

	if err := s.validate.Struct(cfg.Appearance); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.StructField() {
				case "DefaultWidgetSize":
					cfg.Appearance.DefaultWidgetSize = def.Appearance.DefaultWidgetSize
				case "WidgetSpacing":
					cfg.Appearance.WidgetSpacing = def.Appearance.WidgetSpacing
				}
			}
		}
	}
	if cfg.Credentials == nil {
		cfg.Credentials = def.Credentials
	}
	if cfg.Widgets == nil {
		cfg.Widgets = def.Widgets
	}
	for i := range cfg.Widgets {
		if cfg.Widgets[i].Config == nil {
			cfg.Widgets[i].Config = map[string]any{}
		}
	}
	return cfg
}

// Read returns a copy of the last durably known configuration.
func (s *Store) Read() model.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Subscribe registers fn to be called with the new configuration after every
// successful mutation. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(model.Configuration)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(cfg model.Configuration) {
	s.subMu.Lock()
	fns := make([]func(model.Configuration), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(cfg.Clone())
	}
}

// commit persists the current tree and publishes it. Callers hold mu for
// writing; commit releases it before running subscribers.
func (s *Store) commit() error {
	err := s.persistLocked()
	snapshot := s.data.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	return err
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersist, err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create storage directory: %v", ErrPersist, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close: %v", ErrPersist, err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", ErrPersist, err)
	}
	return nil
}

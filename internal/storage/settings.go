package storage

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

type Section string

const (
	SectionGeneral     Section = "general"
	SectionAppearance  Section = "appearance"
	SectionPerformance Section = "performance"
)

var ErrUnknownSection = errors.New("unknown settings section")

// Update shallow-merges fields into one section. Fields not named in the map
// keep their values. Invalid input leaves the store untouched; a write
// failure is returned wrapped in ErrPersist.
func (s *Store) Update(section Section, fields map[string]any) error {
	s.mu.Lock()

	next := s.data
	var err error
	switch section {
	case SectionGeneral:
		err = s.merge(&next.General, fields)
	case SectionAppearance:
		err = s.merge(&next.Appearance, fields)
	case SectionPerformance:
		err = s.merge(&next.Performance, fields)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.data = next
	return s.commit()
}

// merge decodes fields onto target, which already holds the current values,
// then validates the result.
func (s *Store) merge(target any, fields map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("invalid fields: %w", err)
	}
	if err := s.validate.Struct(target); err != nil {
		return fmt.Errorf("invalid fields: %w", err)
	}
	return nil
}

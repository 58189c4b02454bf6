package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

var ErrImmutableField = errors.New("field cannot be changed")

// AddCredential appends a new credential. Name, service and secret must all
// be non-empty.
func (s *Store) AddCredential(name, service, secret string) (model.Credential, error) {
	c := model.Credential{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Service: strings.TrimSpace(service),
		Secret:  secret,
	}
	if err := s.validate.Struct(c); err != nil {
		return model.Credential{}, fmt.Errorf("invalid credential: %w", err)
	}

	s.mu.Lock()
	c.CreatedAt = s.clock.Now().UTC()
	creds := make([]model.Credential, 0, len(s.data.Credentials)+1)
	creds = append(creds, s.data.Credentials...)
	s.data.Credentials = append(creds, c)
	return c, s.commit()
}

// RemoveCredential drops the credential with the given id. An unknown id is
// a no-op.
func (s *Store) RemoveCredential(id string) error {
	s.mu.Lock()
	idx := s.credentialIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	creds := make([]model.Credential, 0, len(s.data.Credentials)-1)
	for _, c := range s.data.Credentials {
		if c.ID != id {
			creds = append(creds, c)
		}
	}
	s.data.Credentials = creds
	return s.commit()
}

// UpdateCredential merges fields into the credential with the given id.
// An unknown id leaves the table untouched and is not an error.
func (s *Store) UpdateCredential(id string, fields map[string]any) error {
	for _, key := range []string{"id", "createdAt"} {
		if _, ok := fields[key]; ok {
			return fmt.Errorf("%w: %s", ErrImmutableField, key)
		}
	}

	s.mu.Lock()
	idx := s.credentialIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	updated := s.data.Credentials[idx]
	if err := s.merge(&updated, fields); err != nil {
		s.mu.Unlock()
		return err
	}

	creds := make([]model.Credential, len(s.data.Credentials))
	copy(creds, s.data.Credentials)
	creds[idx] = updated
	s.data.Credentials = creds
	return s.commit()
}

func (s *Store) credentialIndex(id string) int {
	for i, c := range s.data.Credentials {
		if c.ID == id {
			return i
		}
	}
	return -1
}

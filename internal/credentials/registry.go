// Package credentials exposes read-only lookups over the credential table
// held by the configuration store.
package credentials

import (
	"strings"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

// Source is the configuration read contract. *storage.Store implements it.
type Source interface {
	Read() model.Configuration
}

// Lookup is what widgets receive. They never see the whole table.
type Lookup interface {
	ListByService(service string) []model.Credential
	ResolveSecret(id string) (string, bool)
}

// Registry reads through to its Source on every call and keeps no copy.
type Registry struct {
	src Source
}

func NewRegistry(src Source) *Registry {
	return &Registry{src: src}
}

// ByService returns the credentials whose service matches name, ignoring
// case, in insertion order.
func (r *Registry) ByService(name string) []model.Credential {
	var out []model.Credential
	for _, c := range r.src.Read().Credentials {
		if strings.EqualFold(c.Service, name) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) ByID(id string) (model.Credential, bool) {
	for _, c := range r.src.Read().Credentials {
		if c.ID == id {
			return c, true
		}
	}
	return model.Credential{}, false
}

func (r *Registry) SecretByID(id string) (string, bool) {
	c, ok := r.ByID(id)
	if !ok {
		return "", false
	}
	return c.Secret, true
}

func (r *Registry) ListByService(service string) []model.Credential {
	return r.ByService(service)
}

func (r *Registry) ResolveSecret(id string) (string, bool) {
	return r.SecretByID(id)
}

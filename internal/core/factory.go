package core

import (
	"fmt"

	"github.com/google/uuid"

	"shipyard/pkg/domain"
)

// TemplateSource resolves catalog templates by id. *catalog.Catalog satisfies it.
type TemplateSource interface {
	Lookup(id string) (Template, bool)
}

// IDGenerator produces instance identifiers.
type IDGenerator func() (string, error)

// NewUUIDv7 returns a UUIDv7 string: a 48-bit millisecond timestamp followed
// by 74 random bits.
func NewUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate instance id: %w", err)
	}
	return id.String(), nil
}

// InstanceFactory creates room instances from catalog templates.
type InstanceFactory struct {
	templates TemplateSource
	newID     IDGenerator
}

// NewInstanceFactory builds a factory over templates. A nil generator
// defaults to NewUUIDv7.
func NewInstanceFactory(templates TemplateSource, newID IDGenerator) *InstanceFactory {
	if newID == nil {
		newID = NewUUIDv7
	}
	return &InstanceFactory{templates: templates, newID: newID}
}

// CreateInstance copies the template into a fresh instance with a new id and
// full health.
func (f *InstanceFactory) CreateInstance(templateID string) (RoomInstance, error) {
	if f.templates == nil {
		return RoomInstance{}, domain.UnknownTemplateError{TemplateID: templateID}
	}
	t, ok := f.templates.Lookup(templateID)
	if !ok {
		return RoomInstance{}, domain.UnknownTemplateError{TemplateID: templateID}
	}
	id, err := f.newID()
	if err != nil {
		return RoomInstance{}, err
	}
	return domain.NewRoomInstance(id, t), nil
}

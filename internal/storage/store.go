package storage

import (
	"context"
	"errors"

	"coursegen/internal/course"
)

// ErrNotFound is returned when a module id does not exist.
var ErrNotFound = errors.New("module not found")

// ModuleStore persists course modules together with their subsections.
type ModuleStore interface {
	// SaveModule upserts a module, subsections included.
	SaveModule(ctx context.Context, m *course.Module) error

	// SaveModules upserts several modules in one transaction.
	SaveModules(ctx context.Context, modules []*course.Module) error

	// GetModule retrieves a module by its ID.
	GetModule(ctx context.Context, id string) (*course.Module, error)

	// ListModules returns the modules of a course ordered by ID. An empty
	// courseID lists every module.
	ListModules(ctx context.Context, courseID string) ([]*course.Module, error)

	// DeleteModule removes a module.
	DeleteModule(ctx context.Context, id string) error

	Close() error
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"

	perrors "github.com/abgdnv/fscatalog/internal/errors"
	"github.com/go-playground/validator/v10"
)

// ReadPolicy decides what Load does with a collection that exists but cannot be read or decoded.
type ReadPolicy string

const (
	// ReadLenient treats an unreadable or corrupt collection as empty for reads.
	// Mutations still refuse to run on it, so a damaged file is never replaced
	// by a collection built from nothing.
	ReadLenient ReadPolicy = "lenient"
	// ReadStrict reports an unreadable or corrupt collection as a PersistenceError.
	// An absent collection is still empty.
	ReadStrict ReadPolicy = "strict"
)

// Options configures a FileStore.
type Options struct {
	ReadPolicy  ReadPolicy
	Placeholder string
}

// FileStore implements ProductStore over a single encoded collection held by a Backend.
//
// Mutations run load, mutate and persist under one exclusive lock, so concurrent
// writers never lose each other's updates. Reads take no lock and rely on the
// backend replacing the document atomically.
type FileStore struct {
	mu          sync.Mutex
	backend     Backend
	policy      ReadPolicy
	placeholder string
	validate    *validator.Validate
	logger      *slog.Logger
}

var _ ProductStore = (*FileStore)(nil)

// NewFileStore creates a FileStore on top of backend.
func NewFileStore(backend Backend, opts Options, logger *slog.Logger) *FileStore {
	if opts.ReadPolicy == "" {
		opts.ReadPolicy = ReadLenient
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultThumbnail
	}
	return &FileStore{
		backend:     backend,
		policy:      opts.ReadPolicy,
		placeholder: opts.Placeholder,
		validate:    newValidator(),
		logger:      logger.With("component", "store", "location", backend.Location()),
	}
}

// Load reads and decodes the whole collection, applying the store's read policy.
func (s *FileStore) Load(ctx context.Context) (Collection, error) {
	return s.load(ctx, s.policy)
}

func (s *FileStore) load(ctx context.Context, policy ReadPolicy) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.backend.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Collection{}, nil
		}
		return s.readFailure(ctx, policy, "read", err)
	}
	c, err := decodeCollection(data)
	if err != nil {
		return s.readFailure(ctx, policy, "decode", err)
	}
	return c, nil
}

// decodeCollection decodes a stored document. A JSON null is an empty collection.
func decodeCollection(data []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}

func (s *FileStore) readFailure(ctx context.Context, policy ReadPolicy, op string, err error) (Collection, error) {
	if policy == ReadStrict {
		return nil, &perrors.PersistenceError{Op: op, Path: s.backend.Location(), Err: err}
	}
	s.logger.WarnContext(ctx, "Collection unreadable, treating as empty", "op", op, "error", err)
	return Collection{}, nil
}

// Persist replaces the stored collection with c.
func (s *FileStore) Persist(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.backend.Lock()
	if err != nil {
		return &perrors.PersistenceError{Op: "lock", Path: s.backend.Location(), Err: err}
	}
	defer s.release(ctx, unlock)

	return s.persist(ctx, c)
}

func (s *FileStore) persist(ctx context.Context, c Collection) error {
	if c == nil {
		c = Collection{}
	}
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return &perrors.PersistenceError{Op: "encode", Path: s.backend.Location(), Err: err}
	}
	if err := s.backend.Replace(data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist collection", "error", err)
		return &perrors.PersistenceError{Op: "write", Path: s.backend.Location(), Err: err}
	}
	return nil
}

func (s *FileStore) release(ctx context.Context, unlock func() error) {
	if err := unlock(); err != nil {
		s.logger.WarnContext(ctx, "Failed to release writer lock", "error", err)
	}
}

// mutate runs fn against a fresh snapshot and persists its result while holding the writer lock.
// The snapshot is always loaded strictly, so an unreadable collection is never overwritten.
// Nothing is written when fn fails.
func (s *FileStore) mutate(ctx context.Context, fn func(Collection) (Collection, error)) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.backend.Lock()
	if err != nil {
		return nil, &perrors.PersistenceError{Op: "lock", Path: s.backend.Location(), Err: err}
	}
	defer s.release(ctx, unlock)

	current, err := s.load(ctx, ReadStrict)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Create validates fields, assigns the next id and appends the new product.
func (s *FileStore) Create(ctx context.Context, fields Fields) (Collection, error) {
	return s.mutate(ctx, func(c Collection) (Collection, error) {
		p, err := buildProduct(fields, s.placeholder, s.validate)
		if err != nil {
			return nil, err
		}
		if existing, taken := c.byCode(p.Code, 0); taken {
			return nil, &perrors.ConflictError{Code: p.Code, ExistingID: existing.ID, ExistingTitle: existing.Title}
		}
		p.ID = nextID(c)
		return append(c, p), nil
	})
}

// GetAll returns the full current collection.
func (s *FileStore) GetAll(ctx context.Context) (Collection, error) {
	return s.Load(ctx)
}

// GetBy returns the first product, in collection order, matching every constraint of predicate.
func (s *FileStore) GetBy(ctx context.Context, predicate Predicate) (*Product, error) {
	constraints, err := compilePredicate(predicate)
	if err != nil {
		return nil, err
	}
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range c {
		if c[i].matches(constraints) {
			found := c[i]
			return &found, nil
		}
	}
	return nil, &perrors.NotFoundError{Key: fmt.Sprintf("%v", map[string]any(predicate))}
}

// Update merges fields over the product with the given id.
func (s *FileStore) Update(ctx context.Context, id int, fields Fields) (Collection, error) {
	return s.mutate(ctx, func(c Collection) (Collection, error) {
		i := c.indexOf(id)
		if i == -1 {
			return nil, &perrors.NotFoundError{Key: fmt.Sprintf("id %d", id)}
		}
		merged, err := mergeProduct(c[i], fields, s.validate)
		if err != nil {
			return nil, err
		}
		if existing, taken := c.byCode(merged.Code, id); taken {
			return nil, &perrors.ConflictError{Code: merged.Code, ExistingID: existing.ID, ExistingTitle: existing.Title}
		}
		c[i] = merged
		return c, nil
	})
}

// Remove deletes the product with the given id.
func (s *FileStore) Remove(ctx context.Context, id int) error {
	var removed Product
	_, err := s.mutate(ctx, func(c Collection) (Collection, error) {
		i := c.indexOf(id)
		if i == -1 {
			return nil, &perrors.NotFoundError{Key: fmt.Sprintf("id %d", id)}
		}
		removed = c[i]
		return slices.Delete(c, i, i+1), nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Product removed", "id", removed.ID, "title", removed.Title)
	return nil
}

// NextID reports the id the next Create would assign.
func (s *FileStore) NextID(ctx context.Context) (int, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return nextID(c), nil
}

// Ping reports whether the stored collection, if any, can be read and decoded into products.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.backend.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &perrors.PersistenceError{Op: "read", Path: s.backend.Location(), Err: err}
	}
	if _, err := decodeCollection(data); err != nil {
		return &perrors.PersistenceError{Op: "decode", Path: s.backend.Location(), Err: err}
	}
	return nil
}

// Package service provides the product catalog use cases on top of the product store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/fscatalog/internal/store"
	"github.com/abgdnv/fscatalog/pkg/messaging"
	"github.com/abgdnv/fscatalog/pkg/messaging/events"
	"github.com/abgdnv/fscatalog/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/abgdnv/fscatalog/internal/service"

// ProductService defines the methods for managing products.
// Errors returned by the store are wrapped and still match the store error types.
type ProductService interface {
	// Create adds a new product and returns the updated collection.
	Create(ctx context.Context, fields store.Fields) (store.Collection, error)

	// FindAll returns the full collection.
	FindAll(ctx context.Context) (store.Collection, error)

	// FindBy returns the first product matching predicate.
	FindBy(ctx context.Context, predicate store.Predicate) (*store.Product, error)

	// FindByID returns the product with the given id.
	FindByID(ctx context.Context, id int) (*store.Product, error)

	// Update merges fields over the product with the given id and returns the updated collection.
	Update(ctx context.Context, id int, fields store.Fields) (store.Collection, error)

	// Remove deletes the product with the given id.
	Remove(ctx context.Context, id int) error

	// Ready reports whether the underlying storage can serve requests.
	Ready(ctx context.Context) error
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository    store.ProductStore
	publisher     messaging.Publisher
	metrics       *metrics.StoreMetrics
	subjectPrefix string
	tracer        trace.Tracer
	logger        *slog.Logger
	now           func() time.Time
}

// Options carries the optional collaborators of a Service.
// A nil Publisher drops events and nil Metrics disables instrumentation.
type Options struct {
	Publisher     messaging.Publisher
	Metrics       *metrics.StoreMetrics
	SubjectPrefix string
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore, opts Options, logger *slog.Logger) *Service {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Service{
		repository:    repo,
		publisher:     publisher,
		metrics:       opts.Metrics,
		subjectPrefix: opts.SubjectPrefix,
		tracer:        otel.Tracer(tracerName),
		logger:        logger.With("component", "service"),
		now:           time.Now,
	}
}

// Create creates a new product and returns the updated collection.
func (s *Service) Create(ctx context.Context, fields store.Fields) (c store.Collection, err error) {
	ctx, end := s.begin(ctx, "create")
	defer func() { end(err, c) }()

	c, err = s.repository.Create(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	created := c[len(c)-1]
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("product.id", created.ID))
	s.publish(ctx, events.ProductCreated, created)
	return c, nil
}

// FindAll returns the full collection.
func (s *Service) FindAll(ctx context.Context) (c store.Collection, err error) {
	ctx, end := s.begin(ctx, "get_all")
	defer func() { end(err, c) }()

	c, err = s.repository.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return c, nil
}

// FindBy returns the first product matching predicate.
func (s *Service) FindBy(ctx context.Context, predicate store.Predicate) (p *store.Product, err error) {
	ctx, end := s.begin(ctx, "get_by")
	defer func() { end(err, nil) }()

	p, err = s.repository.GetBy(ctx, predicate)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return p, nil
}

// FindByID returns the product with the given id.
func (s *Service) FindByID(ctx context.Context, id int) (*store.Product, error) {
	return s.FindBy(ctx, store.Predicate{"id": id})
}

// Update merges fields over the product with the given id.
func (s *Service) Update(ctx context.Context, id int, fields store.Fields) (c store.Collection, err error) {
	ctx, end := s.begin(ctx, "update", attribute.Int("product.id", id))
	defer func() { end(err, c) }()

	c, err = s.repository.Update(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}
	for _, p := range c {
		if p.ID == id {
			s.publish(ctx, events.ProductUpdated, p)
			break
		}
	}
	return c, nil
}

// Remove deletes the product with the given id.
func (s *Service) Remove(ctx context.Context, id int) (err error) {
	ctx, end := s.begin(ctx, "remove", attribute.Int("product.id", id))
	defer func() { end(err, nil) }()

	if err = s.repository.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove product with ID %d: %w", id, err)
	}
	s.publish(ctx, events.ProductRemoved, store.Product{ID: id})
	return nil
}

// Ready reports whether the underlying storage can serve requests.
func (s *Service) Ready(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// begin starts a span for op and returns the function finishing span and metrics.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error, store.Collection)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error, c store.Collection) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.metrics == nil {
			return
		}
		s.metrics.Observe(op, start, err)
		if err == nil && c != nil {
			s.metrics.Products.Set(float64(len(c)))
		}
	}
}

// publish emits a change event. A failed publish is logged and never undoes the persisted change.
func (s *Service) publish(ctx context.Context, action string, p store.Product) {
	event := events.ProductChangedEvent{
		Prefix:     s.subjectPrefix,
		Action:     action,
		ProductID:  p.ID,
		Code:       p.Code,
		Title:      p.Title,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish product event", "subject", event.Subject(), "product_id", p.ID, "error", err)
	}
}

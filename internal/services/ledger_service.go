// Package services orchestrates ledger mutations with logging and event
// publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// Publisher delivers ledger events. amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService is the single entry point for reads and writes used by the
// web layer. The store is authoritative: events are published only after a
// mutation is persisted, and a failed publish never fails the mutation.
type LedgerService struct {
	store     *ledger.Store
	publisher Publisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewLedgerService wires the store with an optional publisher (nil disables
// events) and logger.
func NewLedgerService(store *ledger.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentLedger)
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) AddEntry(ctx context.Context, in core.EntryInput) (core.Entry, error) {
	e, rev, err := s.store.Add(ctx, in)
	if err != nil {
		s.logFailure(ctx, "Failed to add entry", err, log.OpCreate)
		return core.Entry{}, err
	}
	s.events.LogEntryChange(ctx, log.OpCreate, e.ID, e.Amount.Cents, e.Category, e.Date.String(), rev)
	s.publish(ctx, amqp.NewEntryEvent(amqp.EntryCreated, e, rev))
	return e, nil
}

func (s *LedgerService) UpdateEntry(ctx context.Context, id string, in core.EntryInput) (core.Entry, error) {
	e, rev, err := s.store.Update(ctx, id, in)
	if err != nil {
		s.logFailure(ctx, "Failed to update entry", err, log.OpUpdate)
		return core.Entry{}, err
	}
	s.events.LogEntryChange(ctx, log.OpUpdate, e.ID, e.Amount.Cents, e.Category, e.Date.String(), rev)
	s.publish(ctx, amqp.NewEntryEvent(amqp.EntryUpdated, e, rev))
	return e, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, id string) (core.Entry, error) {
	e, rev, err := s.store.Remove(ctx, id)
	if err != nil {
		s.logFailure(ctx, "Failed to delete entry", err, log.OpDelete)
		return core.Entry{}, err
	}
	s.events.LogEntryChange(ctx, log.OpDelete, e.ID, e.Amount.Cents, e.Category, e.Date.String(), rev)
	s.publish(ctx, amqp.NewEntryEvent(amqp.EntryDeleted, e, rev))
	return e, nil
}

func (s *LedgerService) AddCategory(ctx context.Context, name string, kind core.Kind) (core.Category, error) {
	c, rev, err := s.store.AddCategory(ctx, name, kind)
	if err != nil {
		s.logFailure(ctx, "Failed to add category", err, log.OpCreate)
		return core.Category{}, err
	}
	s.events.LogCategoryChange(ctx, log.OpCreate, c.Name, string(c.Kind), rev)
	s.publish(ctx, amqp.NewCategoryEvent(amqp.CategoryCreated, c, rev))
	return c, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, name string) (core.Category, error) {
	c, rev, err := s.store.RemoveCategory(ctx, name)
	if err != nil {
		s.logFailure(ctx, "Failed to delete category", err, log.OpDelete)
		return core.Category{}, err
	}
	s.events.LogCategoryChange(ctx, log.OpDelete, c.Name, string(c.Kind), rev)
	s.publish(ctx, amqp.NewCategoryEvent(amqp.CategoryDeleted, c, rev))
	return c, nil
}

func (s *LedgerService) Entries(f core.Filter) []core.Entry { return s.store.Entries(f) }

func (s *LedgerService) Entry(id string) (core.Entry, error) { return s.store.Get(id) }

func (s *LedgerService) Categories(kind core.Kind) []core.Category { return s.store.Categories(kind) }

func (s *LedgerService) CategoryUsage() map[string]int { return s.store.CategoryUsage() }

func (s *LedgerService) Revision() uint64 { return s.store.Revision() }

// Ready reports whether the backend behind the store is reachable.
func (s *LedgerService) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("backend not ready: %w", err)
	}
	return nil
}

// Close releases the publisher when it holds a connection.
func (s *LedgerService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WithComponent(log.ComponentAMQP).WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, ev.Type,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err.Error())
	}
}

// logFailure keeps user mistakes at debug level and storage failures at error.
func (s *LedgerService) logFailure(ctx context.Context, msg string, err error, op string) {
	switch {
	case core.IsValidation(err):
		s.logger.DebugContext(ctx, msg, log.FieldOperation, op, log.FieldErrorType, log.ErrorTypeValidation, log.FieldError, err.Error())
	case core.IsNotFound(err):
		s.logger.DebugContext(ctx, msg, log.FieldOperation, op, log.FieldErrorType, log.ErrorTypeNotFound, log.FieldError, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.ErrorContext(ctx, msg, log.FieldOperation, op, log.FieldErrorType, log.ErrorTypeTimeout, log.FieldError, err.Error())
	default:
		s.logger.ErrorContext(ctx, msg, log.FieldOperation, op, log.FieldErrorType, log.ErrorTypeDatabase, log.FieldError, err.Error())
	}
}

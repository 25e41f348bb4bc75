package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"visita/internal/audit"
	"visita/internal/church/metrics"
	"visita/internal/church/models"
	"visita/internal/notify"
	"visita/internal/platform/middleware"
)

type ProfileStore interface {
	Create(ctx context.Context, p *models.ChurchProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ChurchProfile, error)
	FindByParish(ctx context.Context, parishID string) (*models.ChurchProfile, error)
	Update(ctx context.Context, p *models.ChurchProfile) error
	ListByStatus(ctx context.Context, status models.ProfileStatus) ([]*models.ChurchProfile, error)
}

type PendingStore interface {
	Create(ctx context.Context, cs *models.PendingChangeSet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PendingChangeSet, error)
	FindOpenByChurch(ctx context.Context, churchID uuid.UUID) (*models.PendingChangeSet, error)
	Update(ctx context.Context, cs *models.PendingChangeSet) error
	ListOpen(ctx context.Context) ([]*models.PendingChangeSet, error)
}

// PublishedCache holds the public view of approved profiles. Misses fall
// through to the profile store.
type PublishedCache interface {
	Get(ctx context.Context, churchID uuid.UUID) (models.FieldMap, error)
	Set(ctx context.Context, churchID uuid.UUID, view models.FieldMap) error
	Invalidate(ctx context.Context, churchID uuid.UUID) error
}

type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// TxRunner provides a transactional boundary spanning the profile and pending
// stores. The callback receives a context carrying the transaction; store
// calls made with it land in the same transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates the church profile review workflow: lifecycle
// transitions, the staging engine for approved-profile edits, and pending
// change-set resolution.
type Service struct {
	profiles       ProfileStore
	pending        PendingStore
	tx             TxRunner
	cache          PublishedCache
	notifier       Notifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithPublishedCache(cache PublishedCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(profiles ProfileStore, pending PendingStore, opts ...Option) *Service {
	s := &Service{profiles: profiles, pending: pending, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		event.RequestID = requestID
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"church_id", event.ChurchID,
			"actor_id", event.ActorID,
			"fields", event.Fields,
			"request_id", event.RequestID,
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

// dispatch sends a notification and converts failures into a warning string.
// Notification delivery never fails the operation that triggered it.
func (s *Service) dispatch(ctx context.Context, n notify.Notification) string {
	if s.notifier == nil {
		return ""
	}
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "notification dispatch failed",
				"audience", string(n.Audience),
				"church_id", n.ChurchID,
				"error", err,
			)
		}
		return "notification could not be delivered"
	}
	return ""
}

// invalidateCache drops the cached public view. Best effort: a stale entry
// expires on its own TTL, so failures are logged and swallowed.
func (s *Service) invalidateCache(ctx context.Context, churchID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, churchID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "published view invalidation failed",
			"church_id", churchID,
			"error", err,
		)
	}
}

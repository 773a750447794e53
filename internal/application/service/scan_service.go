package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/ozzus/fare-watcher/internal/domain/ports"
	"github.com/ozzus/fare-watcher/internal/domain/search"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ScanSettings is the per-run search configuration.
type ScanSettings struct {
	Space            models.SearchSpace
	CeilingPerPax    decimal.Decimal
	DestinationLabel string
	MaxRequests      int
}

type ScanService struct {
	log      *zap.Logger
	tokens   ports.TokenProvider
	source   ports.OfferSource
	notifier ports.Notifier
	settings ScanSettings
}

func NewScanService(log *zap.Logger, tokens ports.TokenProvider, source ports.OfferSource, notifier ports.Notifier, settings ScanSettings) *ScanService {
	if log == nil {
		log = zap.NewNop()
	}

	return &ScanService{
		log:      log,
		tokens:   tokens,
		source:   source,
		notifier: notifier,
		settings: settings,
	}
}

// Run walks the search space once. Only an authentication failure that a
// fresh credential cannot cure aborts the run; every other failure is logged
// and the report is still returned.
func (s *ScanService) Run(ctx context.Context) (models.RunReport, error) {
	const op = "service.ScanService.Run"
	tracer := otel.Tracer("fare-watcher/service")
	ctx, span := tracer.Start(ctx, "scan.Run")
	defer span.End()

	report := models.RunReport{
		RunID:      uuid.NewString(),
		Enumerated: search.Count(s.settings.Space),
	}
	span.SetAttributes(
		attribute.String("scan.run_id", report.RunID),
		attribute.Int("scan.space_size", report.Enumerated),
		attribute.Int("scan.budget", s.settings.MaxRequests),
	)

	logger := s.log.With(
		zap.String("op", op),
		zap.String("run_id", report.RunID),
	)

	credential, err := s.tokens.Acquire(ctx)
	if err != nil {
		logger.Error("failed to acquire access token", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "authentication failed")
		return report, fmt.Errorf("%s: %w", op, err)
	}

	budget := search.NewBudget(s.settings.MaxRequests)
	if report.Enumerated > budget.Remaining() {
		logger.Warn("coverage_bias: search space exceeds request budget, later origins may be skipped",
			zap.Int("space_size", report.Enumerated),
			zap.Int("budget", budget.Remaining()),
		)
	}

	var best *models.BestOffer
	refreshed := false
	for query := range search.Enumerate(s.settings.Space) {
		if !budget.Consume() {
			report.BudgetExhausted = true
			logger.Info("request budget exhausted", zap.Int("dispatched", report.Dispatched))
			break
		}
		report.Dispatched++

		offers, err := s.source.FetchOffers(ctx, credential, query)
		if err != nil {
			report.Failed++

			// A rejected credential is replaced once per run; a second
			// rejection means the fresh one is bad too.
			if errors.Is(err, derr.ErrAuth) {
				span.RecordError(err)
				if refreshed {
					logger.Error("search rejected refreshed credential", zap.Error(err))
					span.SetStatus(otelcodes.Error, "authentication failed")
					return report, fmt.Errorf("%s: %w", op, err)
				}
				refreshed = true

				logger.Warn("search rejected credential, acquiring a new one",
					zap.String("origin", query.Origin),
					zap.String("destination", query.Destination),
					zap.Error(err),
				)
				credential, err = s.refreshCredential(ctx, logger)
				if err != nil {
					logger.Error("failed to reacquire access token", zap.Error(err))
					span.RecordError(err)
					span.SetStatus(otelcodes.Error, "authentication failed")
					return report, fmt.Errorf("%s: %w", op, err)
				}
				continue
			}

			logger.Warn("search failed",
				zap.String("origin", query.Origin),
				zap.String("destination", query.Destination),
				zap.String("depart", query.DepartDate.Format(models.DateLayout)),
				zap.Error(err),
			)
			span.AddEvent(
				"scan.query_error",
				trace.WithAttributes(
					attribute.String("scan.origin", query.Origin),
					attribute.String("scan.destination", query.Destination),
					attribute.String("scan.depart", query.DepartDate.Format(models.DateLayout)),
				),
			)
			span.RecordError(err)
			continue
		}

		report.OffersSeen += len(offers)
		ceiling := search.Ceiling(s.settings.CeilingPerPax, query.Passengers)
		for _, offer := range offers {
			best = search.Consider(best, offer, query, ceiling)
		}
	}

	report.Best = best
	span.SetAttributes(
		attribute.Int("scan.dispatched", report.Dispatched),
		attribute.Int("scan.failed", report.Failed),
		attribute.Bool("scan.budget_exhausted", report.BudgetExhausted),
	)

	summary := []zap.Field{
		zap.Int("dispatched", report.Dispatched),
		zap.Int("failed", report.Failed),
		zap.Int("offers_seen", report.OffersSeen),
		zap.Bool("budget_exhausted", report.BudgetExhausted),
	}

	if best == nil {
		logger.Info("no deals under threshold this run", summary...)
		span.SetStatus(otelcodes.Ok, "no deals")
		return report, nil
	}

	logger.Info("best offer found", append(summary,
		zap.String("origin", best.Query.Origin),
		zap.String("destination", best.Query.Destination),
		zap.String("depart", best.Query.DepartDate.Format(models.DateLayout)),
		zap.String("price", best.Offer.TotalPrice.StringFixed(2)),
		zap.String("currency", best.Offer.Currency),
	)...)

	s.notify(ctx, logger, span, FormatAlert(*best, s.settings.DestinationLabel, s.settings.CeilingPerPax))

	span.SetStatus(otelcodes.Ok, "ok")
	return report, nil
}

func (s *ScanService) refreshCredential(ctx context.Context, logger *zap.Logger) (models.Credential, error) {
	if err := s.tokens.Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate access token", zap.Error(err))
	}
	return s.tokens.Acquire(ctx)
}

func (s *ScanService) notify(ctx context.Context, logger *zap.Logger, span trace.Span, text string) {
	if s.notifier == nil {
		return
	}

	err := s.notifier.Notify(ctx, text)
	if err == nil {
		span.AddEvent("scan.notified")
		return
	}

	var notifyErr *derr.NotificationError
	if !errors.As(err, &notifyErr) {
		err = &derr.NotificationError{Err: err}
	}
	logger.Warn("alert delivery failed", zap.Error(err))
	span.RecordError(err)
}

package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/apperror"
	"github.com/fd1az/marketlive/internal/logger"
)

// GenericOfferError is shown when an offer fails without a server message.
const GenericOfferError = "Error processing the offer"

// OfferView receives the UI side effects of a submission.
type OfferView interface {
	SetOfferPending(ctx context.Context, pending bool)
	ApplyOfferResult(ctx context.Context, result domain.OfferResult, submittedAmount decimal.Decimal)
	ShowAlert(ctx context.Context, kind AlertKind, text string) string
}

// OfferSubmitter validates offers and sends them one at a time.
type OfferSubmitter struct {
	api     OfferAPI
	view    OfferView
	logger  logger.LoggerInterface
	pending atomic.Bool

	tracer   trace.Tracer
	results  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOfferSubmitter creates an OfferSubmitter.
func NewOfferSubmitter(api OfferAPI, view OfferView, log logger.LoggerInterface) (*OfferSubmitter, error) {
	meter := otel.Meter(meterName)

	results, err := meter.Int64Counter(
		"offers_total",
		metric.WithDescription("Offer submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"offer_submit_duration_ms",
		metric.WithDescription("Offer round-trip latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &OfferSubmitter{
		api:      api,
		view:     view,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		results:  results,
		duration: duration,
	}, nil
}

// Pending reports whether a submission is in flight.
func (s *OfferSubmitter) Pending() bool {
	return s.pending.Load()
}

// Submit validates form and sends it.
//
// A call made while another submission is in flight does nothing and
// returns CodeOfferPending. Invalid input is reported through an error alert
// and never reaches the network. The submit control is disabled for the
// whole round trip and re-enabled on every exit path.
func (s *OfferSubmitter) Submit(ctx context.Context, form domain.OfferForm) (domain.OfferResult, error) {
	if !s.pending.CompareAndSwap(false, true) {
		return domain.OfferResult{}, apperror.New(apperror.CodeOfferPending)
	}

	req, err := form.Validate()
	if err != nil {
		s.pending.Store(false)
		s.record(ctx, "invalid")
		s.view.ShowAlert(ctx, AlertError, apperror.UserMessage(err, domain.ValidationMessage))
		return domain.OfferResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "offer.submit",
		trace.WithAttributes(
			attribute.String("offer.item_id", req.ItemID),
			attribute.String("offer.amount", req.Amount.String()),
		),
	)
	defer span.End()

	s.view.SetOfferPending(ctx, true)
	defer func() {
		s.pending.Store(false)
		s.view.SetOfferPending(ctx, false)
	}()

	start := time.Now()
	result, err := s.api.SubmitOffer(ctx, req)
	s.duration.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		s.logger.Warn(ctx, "offer submission failed", "item_id", req.ItemID, "error", err)
		result = domain.OfferResult{Success: false, Message: GenericOfferError}
	}

	s.view.ApplyOfferResult(ctx, result, req.Amount)

	if !result.Success {
		s.record(ctx, "rejected")
		if err == nil {
			s.logger.Info(ctx, "offer rejected", "item_id", req.ItemID, "message", result.Message)
		}
		msg := result.Message
		if msg == "" {
			msg = GenericOfferError
		}
		return result, apperror.New(apperror.CodeOfferRejected,
			apperror.WithMessage(msg),
			apperror.WithCause(err))
	}

	s.record(ctx, "accepted")
	s.logger.Info(ctx, "offer registered",
		"item_id", req.ItemID,
		"amount", req.Amount.StringFixed(2),
		"new_price", result.NewPrice)
	return result, nil
}

func (s *OfferSubmitter) record(ctx context.Context, outcome string) {
	s.results.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

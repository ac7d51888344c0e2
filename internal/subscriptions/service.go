package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/pkg/auth"
	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/payloads"
	"github.com/quickcart-labs/quickcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages recurring deliveries for a user.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*SubscriptionDTO, error)
	List(ctx context.Context, userID uuid.UUID, query ListQuery) (pagination.Page[SubscriptionDTO], error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*SubscriptionDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*SubscriptionDTO, error)
	AdvanceDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type service struct {
	tx      txRunner
	subs    *Repository
	catalog *products.Repository
	outbox  outbox.Emitter
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(tx txRunner, subs *Repository, catalog *products.Repository, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, subs: subs, catalog: catalog, outbox: emitter, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*SubscriptionDTO, error) {
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	freq, day, err := parseSchedule(input.Frequency, input.DeliveryDay)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive || !product.AllowSubscription {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not available for subscription")
	}

	now := s.now().UTC()
	next, err := NextDeliveryDate(freq, day, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid schedule")
	}
	sub := &models.Subscription{
		UserID:           actor.UserID,
		ProductID:        product.ID,
		Quantity:         quantity,
		Frequency:        freq,
		DeliveryDay:      day,
		NextDeliveryDate: next,
		TotalCost:        product.EffectivePrice().Mul(decimal.NewFromInt(int64(quantity))),
		Status:           enums.SubscriptionActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription")
	}
	sub.Product = product

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID.String(),
		"product_id":      product.ID.String(),
		"frequency":       freq,
	}), "subscription.created")
	dto := FromModel(*sub)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, query ListQuery) (pagination.Page[SubscriptionDTO], error) {
	params := pagination.Params{Page: query.Page, Limit: query.Limit}.Normalize()
	status := enums.SubscriptionActive
	if strings.TrimSpace(query.Status) != "" {
		parsed, err := enums.ParseSubscriptionStatus(query.Status)
		if err != nil {
			return pagination.Page[SubscriptionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		status = parsed
	}

	rows, total, err := s.subs.ListByUser(ctx, userID, status, params)
	if err != nil {
		return pagination.Page[SubscriptionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	items := make([]SubscriptionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return pagination.NewPage(items, total, params), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*SubscriptionDTO, error) {
	sub, err := s.subs.FindForUser(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if sub.Status == enums.SubscriptionCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cancelled subscriptions cannot be changed")
	}

	freqRaw, dayRaw := string(sub.Frequency), string(sub.DeliveryDay)
	if input.Frequency != nil {
		freqRaw = *input.Frequency
	}
	if input.DeliveryDay != nil {
		dayRaw = *input.DeliveryDay
	}
	freq, day, err := parseSchedule(freqRaw, dayRaw)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	fields := map[string]any{"frequency": freq, "delivery_day": day, "updated_at": now}
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		sub.Quantity = *input.Quantity
		fields["quantity"] = sub.Quantity
		if sub.Product != nil {
			sub.TotalCost = sub.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(sub.Quantity)))
			fields["total_cost"] = sub.TotalCost
		}
	}
	if input.Status != nil {
		status, err := enums.ParseSubscriptionStatus(*input.Status)
		if err != nil || status == enums.SubscriptionCancelled {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active or paused")
		}
		sub.Status = status
		fields["status"] = status
	}
	next, err := NextDeliveryDate(freq, day, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid schedule")
	}
	fields["next_delivery_date"] = next

	if err := s.subs.Update(ctx, sub.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update subscription")
	}
	sub.Frequency, sub.DeliveryDay, sub.NextDeliveryDate, sub.UpdatedAt = freq, day, next, now
	dto := FromModel(*sub)
	return &dto, nil
}

// Cancel is idempotent; cancelling twice keeps the first cancelled_at.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subs.FindForUser(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if sub.Status != enums.SubscriptionCancelled {
		now := s.now().UTC()
		if err := s.subs.Update(ctx, sub.ID, map[string]any{
			"status":       enums.SubscriptionCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel subscription")
		}
		sub.Status = enums.SubscriptionCancelled
		sub.CancelledAt = &now
		s.logg.Info(s.logg.WithField(ctx, "subscription_id", sub.ID.String()), "subscription.cancelled")
	}
	dto := FromModel(*sub)
	return &dto, nil
}

// AdvanceDue rolls every due active subscription to its next date and emits
// subscription.due for each, one transaction per subscription. Failures are
// collected so one bad row does not stall the batch.
func (s *service) AdvanceDue(ctx context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	due, err := s.subs.ListDue(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due subscriptions")
	}

	advanced := 0
	var errs error
	for i := range due {
		sub := due[i]
		next, err := rollForward(sub.Frequency, sub.DeliveryDay, sub.NextDeliveryDate, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		moved := false
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.subs.WithTx(tx).Advance(ctx, sub.ID, sub.NextDeliveryDate, next, now)
			if err != nil || !ok {
				return err
			}
			moved = true
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionDue,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				Data: payloads.SubscriptionDueEvent{
					SubscriptionID:   sub.ID,
					UserID:           sub.UserID,
					ProductID:        sub.ProductID,
					Quantity:         sub.Quantity,
					DueDate:          sub.NextDeliveryDate,
					NextDeliveryDate: next,
				},
			})
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		if moved {
			advanced++
		}
	}
	return advanced, errs
}

func parseSchedule(freqRaw, dayRaw string) (enums.SubscriptionFrequency, enums.DeliveryDay, error) {
	if strings.TrimSpace(freqRaw) == "" {
		freqRaw = string(enums.FrequencyWeekly)
	}
	if strings.TrimSpace(dayRaw) == "" {
		dayRaw = string(enums.Monday)
	}
	freq, err := enums.ParseSubscriptionFrequency(freqRaw)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency")
	}
	day, err := enums.ParseDeliveryDay(dayRaw)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deliveryDay")
	}
	return freq, day, nil
}

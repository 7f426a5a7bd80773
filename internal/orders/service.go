package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/orderstate"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/outbox"
	"github.com/crumbhouse/bakery-backend/pkg/outbox/payloads"
	"github.com/crumbhouse/bakery-backend/pkg/pagination"
)

// ReasonInvalidTransition tags rejected lifecycle events.
const ReasonInvalidTransition = "INVALID_TRANSITION"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers customer order reads and the admin lifecycle.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[OrderDTO], error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListAdmin(ctx context.Context, input AdminListInput) (pagination.Page[OrderDTO], error)
	GetAdmin(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ApplyEvent(ctx context.Context, input ApplyEventInput) (*TransitionResult, error)
	UpdateDelivery(ctx context.Context, input UpdateDeliveryInput) (*OrderDTO, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics *metrics.ShopMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    *Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics *metrics.ShopMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[OrderDTO], error) {
	return s.list(ctx, ListFilter{UserID: &userID}, params, FromModel)
}

func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOwned(ctx, userID, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListAdmin(ctx context.Context, input AdminListInput) (pagination.Page[OrderDTO], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return pagination.Page[OrderDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	return s.list(ctx, ListFilter{Status: input.Status}, pagination.Params{Limit: input.Limit, Cursor: input.Cursor}, adminView)
}

func (s *service) GetAdmin(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := adminView(order)
	return &dto, nil
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params, view func(*models.Order) OrderDTO) (pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor
	filter.Limit = params.Limit

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page := pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, view(&page.Items[i]))
	}
	return out, nil
}

// ApplyEvent runs an admin lifecycle event. The status write and its outbox
// event commit together; a repeated event is acknowledged without writes.
func (s *service) ApplyEvent(ctx context.Context, input ApplyEventInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	event, err := enums.ParseOrderEvent(strings.TrimSpace(string(input.Event)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event").
			WithDetails(map[string]any{"event": input.Event})
	}

	var result *TransitionResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}

		from := stateOf(order)
		res, err := orderstate.Apply(from, event)
		if err != nil {
			if errors.Is(err, orderstate.ErrInvalidTransition) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "transition not allowed").
					WithReason(ReasonInvalidTransition, map[string]any{
						"event":          event,
						"status":         from.Status,
						"payment_status": from.Payment,
						"allowed_events": orderstate.Allowed(from),
					})
			}
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event")
		}

		result = &TransitionResult{
			Success:       true,
			Changed:       res.Changed,
			NewStatus:     res.To.Status,
			PaymentStatus: res.To.Payment,
		}
		if !res.Changed {
			return nil
		}

		if err := repo.ApplyTransition(ctx, order.ID, res.From, res.To, effectColumns(res.Effect, s.now())); err != nil {
			if errors.Is(err, ErrStaleOrder) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently; reload and retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor(input.ActorID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:           order.ID,
				OrderNumber:       order.OrderNumber,
				Event:             event,
				FromStatus:        res.From.Status,
				ToStatus:          res.To.Status,
				FromPaymentStatus: res.From.Payment,
				ToPaymentStatus:   res.To.Payment,
			},
		})
	})
	if err != nil {
		s.metrics.IncTransition(string(event), transitionOutcome(err))
		return nil, err
	}

	if result.Changed {
		s.metrics.IncTransition(string(event), "applied")
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{"event": event, "status": result.NewStatus})
			s.logg.Info(logCtx, "order transition applied")
		}
	} else {
		s.metrics.IncTransition(string(event), "noop")
	}
	return result, nil
}

func (s *service) UpdateDelivery(ctx context.Context, input UpdateDeliveryInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	updates := map[string]any{}
	if input.EstimatedDeliveryTime != nil {
		eta := input.EstimatedDeliveryTime.UTC()
		updates["estimated_delivery_time"] = eta
	}
	if input.DeliveryPersonName != nil {
		updates["delivery_person_name"] = nullable(*input.DeliveryPersonName)
	}
	if input.DeliveryPersonContact != nil {
		updates["delivery_person_contact"] = nullable(*input.DeliveryPersonContact)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no delivery fields provided")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if err := orderstate.CanEditDelivery(order.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order is closed").
				WithReason("ORDER_CLOSED", map[string]any{"status": order.Status})
		}
		if err := repo.UpdateDelivery(ctx, order.ID, updates); err != nil {
			if errors.Is(err, ErrStaleOrder) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently; reload and retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery details")
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeliveryInfo,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor(input.ActorID, enums.UserRoleAdmin),
			Data: payloads.OrderDeliveryUpdatedEvent{
				OrderID:               updated.ID,
				OrderNumber:           updated.OrderNumber,
				EstimatedDeliveryTime: updated.EstimatedDeliveryTime,
				DeliveryPersonName:    updated.DeliveryPersonName,
				DeliveryPersonContact: updated.DeliveryPersonContact,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := adminView(updated)
	return &dto, nil
}

func effectColumns(effect orderstate.Effect, now time.Time) map[string]any {
	switch effect {
	case orderstate.EffectRecordPayment:
		return map[string]any{"paid_at": now}
	case orderstate.EffectRecordDelivery:
		return map[string]any{"delivered_at": now}
	case orderstate.EffectRecordCancellation:
		return map[string]any{"cancelled_at": now}
	default:
		return nil
	}
}

func transitionOutcome(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeStateConflict:
			return "rejected"
		case pkgerrors.CodeConflict:
			return "conflict"
		case pkgerrors.CodeNotFound:
			return "not_found"
		}
	}
	return "error"
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}

func actor(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}

// nullable clears a column when the admin sends an empty string.
func nullable(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

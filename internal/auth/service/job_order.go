package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/idx"
)

// JobOrderPatch carries the fields of a create or update. Nil fields are
// left unchanged; a section replaces the stored section as a whole.
type JobOrderPatch struct {
	OrderNo     *string
	Status      *domain.JobOrderStatus
	DateRequest *time.Time
	DateStarted *time.Time
	DateFinish  *time.Time
	Customer    *domain.JobOrderCustomer
	Engineer    *domain.JobOrderEngineer
}

func (p JobOrderPatch) apply(jo *domain.JobOrder) error {
	if p.Status != nil {
		if !p.Status.Valid() {
			return invalid("Invalid job order status")
		}
		jo.Status = *p.Status
	}
	if p.OrderNo != nil {
		jo.OrderNo = *p.OrderNo
	}
	if p.DateRequest != nil {
		jo.DateRequest = p.DateRequest
	}
	if p.DateStarted != nil {
		jo.DateStarted = p.DateStarted
	}
	if p.DateFinish != nil {
		jo.DateFinish = p.DateFinish
	}
	if p.Customer != nil {
		jo.Customer = *p.Customer
	}
	if p.Engineer != nil {
		jo.Engineer = *p.Engineer
	}
	return nil
}

type JobOrderService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *JobOrderService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *JobOrderService) List(ctx context.Context) ([]domain.JobOrder, error) {
	return s.Store.JobOrders().ListJobOrders(ctx)
}

func (s *JobOrderService) Get(ctx context.Context, id string) (domain.JobOrder, error) {
	jo, err := s.Store.JobOrders().GetJobOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.JobOrder{}, ErrJobOrderNotFound
	}
	return jo, err
}

// Create stores a new job order owned by createdBy. Status defaults to
// pending.
func (s *JobOrderService) Create(ctx context.Context, createdBy string, p JobOrderPatch) (domain.JobOrder, error) {
	now := s.now()
	jo := domain.JobOrder{
		ID:        idx.NewAt(now).String(),
		Status:    domain.JobOrderPending,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.apply(&jo); err != nil {
		return domain.JobOrder{}, err
	}
	if err := s.Store.JobOrders().CreateJobOrder(ctx, jo); err != nil {
		return domain.JobOrder{}, err
	}
	return jo, nil
}

func (s *JobOrderService) Update(ctx context.Context, id string, p JobOrderPatch) (domain.JobOrder, error) {
	var jo domain.JobOrder
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.JobOrders().GetJobOrder(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrJobOrderNotFound
			}
			return err
		}
		if err := p.apply(&current); err != nil {
			return err
		}
		current.UpdatedAt = s.now()
		if err := tx.JobOrders().UpdateJobOrder(ctx, current); err != nil {
			return err
		}
		jo = current
		return nil
	})
	return jo, err
}

func (s *JobOrderService) Delete(ctx context.Context, id string) error {
	err := s.Store.JobOrders().DeleteJobOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrJobOrderNotFound
	}
	return err
}

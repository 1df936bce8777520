package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/dbx"
)

const jobOrderColumns = `id, order_no, status, date_request, date_started, date_finish,
	customer, engineer, created_by, created_at, updated_at`

type jobOrdersRepo struct {
	db dbx.DBTX
}

func scanJobOrder(s dbx.Scanner) (domain.JobOrder, error) {
	var (
		jo                 domain.JobOrder
		customer, engineer []byte
	)
	err := s.Scan(&jo.ID, &jo.OrderNo, &jo.Status, &jo.DateRequest, &jo.DateStarted, &jo.DateFinish,
		&customer, &engineer, &jo.CreatedBy, &jo.CreatedAt, &jo.UpdatedAt)
	if err != nil {
		return domain.JobOrder{}, mapNotFound(err)
	}
	if err := json.Unmarshal(customer, &jo.Customer); err != nil {
		return domain.JobOrder{}, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(engineer, &jo.Engineer); err != nil {
		return domain.JobOrder{}, fmt.Errorf("decode engineer: %w", err)
	}
	return jo, nil
}

func encodeSections(jo domain.JobOrder) (string, string, error) {
	customer, err := json.Marshal(jo.Customer)
	if err != nil {
		return "", "", err
	}
	engineer, err := json.Marshal(jo.Engineer)
	if err != nil {
		return "", "", err
	}
	return string(customer), string(engineer), nil
}

func (r *jobOrdersRepo) CreateJobOrder(ctx context.Context, jo domain.JobOrder) error {
	customer, engineer, err := encodeSections(jo)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO job_orders (`+jobOrderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		jo.ID, jo.OrderNo, string(jo.Status), jo.DateRequest, jo.DateStarted, jo.DateFinish,
		customer, engineer, jo.CreatedBy, jo.CreatedAt, jo.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *jobOrdersRepo) GetJobOrder(ctx context.Context, id string) (domain.JobOrder, error) {
	return scanJobOrder(r.db.QueryRowContext(ctx, `SELECT `+jobOrderColumns+` FROM job_orders WHERE id = $1`, id))
}

func (r *jobOrdersRepo) ListJobOrders(ctx context.Context) ([]domain.JobOrder, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobOrderColumns+` FROM job_orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return dbx.CollectRows(rows, scanJobOrder)
}

func (r *jobOrdersRepo) UpdateJobOrder(ctx context.Context, jo domain.JobOrder) error {
	customer, engineer, err := encodeSections(jo)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_orders SET
			order_no = $1, status = $2, date_request = $3, date_started = $4, date_finish = $5,
			customer = $6, engineer = $7, updated_at = $8
		WHERE id = $9`,
		jo.OrderNo, string(jo.Status), jo.DateRequest, jo.DateStarted, jo.DateFinish,
		customer, engineer, jo.UpdatedAt, jo.ID,
	)
	return requireOne(res, err, store.ErrNotFound)
}

func (r *jobOrdersRepo) DeleteJobOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM job_orders WHERE id = $1`, id)
	return requireOne(res, err, store.ErrNotFound)
}

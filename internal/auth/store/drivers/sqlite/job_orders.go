package sqlite

import (
	"context"
	"database/sql"
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
		jo                                   domain.JobOrder
		dateRequest, dateStarted, dateFinish sql.NullInt64
		customer, engineer                   string
		createdAt, updatedAt                 int64
	)
	err := s.Scan(&jo.ID, &jo.OrderNo, &jo.Status, &dateRequest, &dateStarted, &dateFinish,
		&customer, &engineer, &jo.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return domain.JobOrder{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(customer), &jo.Customer); err != nil {
		return domain.JobOrder{}, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal([]byte(engineer), &jo.Engineer); err != nil {
		return domain.JobOrder{}, fmt.Errorf("decode engineer: %w", err)
	}
	jo.DateRequest = fromNullMillis(dateRequest)
	jo.DateStarted = fromNullMillis(dateStarted)
	jo.DateFinish = fromNullMillis(dateFinish)
	jo.CreatedAt = fromMillis(createdAt)
	jo.UpdatedAt = fromMillis(updatedAt)
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jo.ID, jo.OrderNo, jo.Status,
		toNullMillis(jo.DateRequest), toNullMillis(jo.DateStarted), toNullMillis(jo.DateFinish),
		customer, engineer, jo.CreatedBy, toMillis(jo.CreatedAt), toMillis(jo.UpdatedAt),
	)
	return mapUniqueViolation(err)
}

func (r *jobOrdersRepo) GetJobOrder(ctx context.Context, id string) (domain.JobOrder, error) {
	return scanJobOrder(r.db.QueryRowContext(ctx, `SELECT `+jobOrderColumns+` FROM job_orders WHERE id = ?`, id))
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
			order_no = ?, status = ?, date_request = ?, date_started = ?, date_finish = ?,
			customer = ?, engineer = ?, updated_at = ?
		WHERE id = ?`,
		jo.OrderNo, jo.Status,
		toNullMillis(jo.DateRequest), toNullMillis(jo.DateStarted), toNullMillis(jo.DateFinish),
		customer, engineer, toMillis(jo.UpdatedAt), jo.ID,
	)
	return requireOne(res, err, store.ErrNotFound)
}

func (r *jobOrdersRepo) DeleteJobOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM job_orders WHERE id = ?`, id)
	return requireOne(res, err, store.ErrNotFound)
}

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestJobOrderService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := &service.JobOrderService{Store: f.store}

	orderNo := "JO-0001"
	requested := time.Now().UTC().Truncate(time.Millisecond)
	jo, err := svc.Create(ctx, "user-1", service.JobOrderPatch{
		OrderNo:     &orderNo,
		DateRequest: &requested,
		Customer:    &domain.JobOrderCustomer{Company: "Acme", Attachments: []string{"site.jpg"}},
	})
	require.NoError(t, err)
	require.Equal(t, domain.JobOrderPending, jo.Status)
	require.Equal(t, "user-1", jo.CreatedBy)

	got, err := svc.Get(ctx, jo.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", got.Customer.Company)
	require.Equal(t, []string{"site.jpg"}, got.Customer.Attachments)
	require.True(t, requested.Equal(*got.DateRequest))

	status := domain.JobOrderInProgress
	updated, err := svc.Update(ctx, jo.ID, service.JobOrderPatch{
		Status:   &status,
		Engineer: &domain.JobOrderEngineer{Remarks: "on site", SignApprove: true},
	})
	require.NoError(t, err)
	require.Equal(t, domain.JobOrderInProgress, updated.Status)
	require.Equal(t, "Acme", updated.Customer.Company)
	require.True(t, updated.Engineer.SignApprove)

	bogus := domain.JobOrderStatus("lost")
	_, err = svc.Update(ctx, jo.ID, service.JobOrderPatch{Status: &bogus})
	requireValidation(t, err, "Invalid job order status")

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, jo.ID))
	require.ErrorIs(t, svc.Delete(ctx, jo.ID), service.ErrJobOrderNotFound)
	_, err = svc.Get(ctx, jo.ID)
	require.ErrorIs(t, err, service.ErrJobOrderNotFound)
	_, err = svc.Update(ctx, jo.ID, service.JobOrderPatch{})
	require.ErrorIs(t, err, service.ErrJobOrderNotFound)
}

package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

func (s *Session) ListJobOrders(ctx context.Context) ([]JobOrder, error) {
	var res JobOrderListResponse
	if err := s.doJSON(ctx, http.MethodGet, "/job-orders", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.JobOrders, nil
}

func (s *Session) GetJobOrder(ctx context.Context, id string) (*JobOrder, error) {
	var res JobOrderResponse
	if err := s.doJSON(ctx, http.MethodGet, "/job-orders/"+url.PathEscape(id), nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.JobOrder, nil
}

// CreateJobOrder creates a job order owned by the signed-in user.
func (s *Session) CreateJobOrder(ctx context.Context, req JobOrderRequest) (*JobOrder, error) {
	var res JobOrderResponse
	if err := s.doJSON(ctx, http.MethodPost, "/job-orders", req, &res, http.StatusCreated); err != nil {
		return nil, err
	}
	return res.JobOrder, nil
}

// UpdateJobOrder changes the fields set in req.
func (s *Session) UpdateJobOrder(ctx context.Context, id string, req JobOrderRequest) (*JobOrder, error) {
	var res JobOrderResponse
	if err := s.doJSON(ctx, http.MethodPut, "/job-orders/"+url.PathEscape(id), req, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.JobOrder, nil
}

func (s *Session) DeleteJobOrder(ctx context.Context, id string) error {
	return s.doJSON(ctx, http.MethodDelete, "/job-orders/"+url.PathEscape(id), nil, nil, http.StatusOK)
}

package http

import (
	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
)

func toUser(u domain.User) *authsdk.User {
	return &authsdk.User{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		IsVerified:          u.IsVerified,
		IsLocked:            u.IsLocked,
		ProfileCompleted:    u.ProfileCompleted,
		HasCompletedProfile: u.HasCompletedProfile(),
		HasPassword:         u.PasswordHash != "",
		HasPIN:              u.PINHash != "",
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func toUsers(us []domain.User) []authsdk.User {
	out := make([]authsdk.User, 0, len(us))
	for _, u := range us {
		out = append(out, *toUser(u))
	}
	return out
}

func toJobOrder(jo domain.JobOrder) *authsdk.JobOrder {
	return &authsdk.JobOrder{
		ID:          jo.ID,
		OrderNo:     jo.OrderNo,
		Status:      string(jo.Status),
		DateRequest: jo.DateRequest,
		DateStarted: jo.DateStarted,
		DateFinish:  jo.DateFinish,
		Customer:    authsdk.JobOrderCustomer(jo.Customer),
		Engineer:    authsdk.JobOrderEngineer(jo.Engineer),
		CreatedBy:   jo.CreatedBy,
		CreatedAt:   jo.CreatedAt,
		UpdatedAt:   jo.UpdatedAt,
	}
}

func toJobOrders(jos []domain.JobOrder) []authsdk.JobOrder {
	out := make([]authsdk.JobOrder, 0, len(jos))
	for _, jo := range jos {
		out = append(out, *toJobOrder(jo))
	}
	return out
}

func toJobOrderPatch(req authsdk.JobOrderRequest) service.JobOrderPatch {
	p := service.JobOrderPatch{
		OrderNo:     req.OrderNo,
		DateRequest: req.DateRequest,
		DateStarted: req.DateStarted,
		DateFinish:  req.DateFinish,
	}
	if req.Status != nil {
		s := domain.JobOrderStatus(*req.Status)
		p.Status = &s
	}
	if req.Customer != nil {
		c := domain.JobOrderCustomer(*req.Customer)
		p.Customer = &c
	}
	if req.Engineer != nil {
		e := domain.JobOrderEngineer(*req.Engineer)
		p.Engineer = &e
	}
	return p
}

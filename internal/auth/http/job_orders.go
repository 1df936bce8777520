package http

import (
	"net/http"

	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
)

type JobOrdersHandler struct {
	JobOrderService *service.JobOrderService
}

// HandleList godoc
//
//	@Summary	List job orders
//	@Tags		JobOrders
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	authsdk.JobOrderListResponse
//	@Router		/api/v1/job-orders [get].
func (h *JobOrdersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	jos, err := h.JobOrderService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.JobOrderListResponse{
		Success:   true,
		JobOrders: toJobOrders(jos),
	})
}

// HandleGet godoc
//
//	@Summary	Get job order
//	@Tags		JobOrders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Job order ID"
//	@Success	200	{object}	authsdk.JobOrderResponse
//	@Failure	404	{object}	httpx.ErrorResponse	"Job order not found"
//	@Router		/api/v1/job-orders/{id} [get].
func (h *JobOrdersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	jo, err := h.JobOrderService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.JobOrderResponse{Success: true, JobOrder: toJobOrder(jo)})
}

// HandleCreate godoc
//
//	@Summary	Create job order
//	@Description	Status defaults to pending. The caller is recorded as creator.
//	@Tags		JobOrders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		authsdk.JobOrderRequest	true	"Job order"
//	@Success	201		{object}	authsdk.JobOrderResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Router		/api/v1/job-orders [post].
func (h *JobOrdersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.JobOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	jo, err := h.JobOrderService.Create(r.Context(), userID, toJobOrderPatch(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.JobOrderResponse{
		Success:  true,
		Message:  "Job order created",
		JobOrder: toJobOrder(jo),
	})
}

// HandleUpdate godoc
//
//	@Summary	Update job order
//	@Tags		JobOrders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"Job order ID"
//	@Param		request	body		authsdk.JobOrderRequest	true	"Fields to change"
//	@Success	200		{object}	authsdk.JobOrderResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Router		/api/v1/job-orders/{id} [put].
func (h *JobOrdersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.JobOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	jo, err := h.JobOrderService.Update(r.Context(), r.PathValue("id"), toJobOrderPatch(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.JobOrderResponse{
		Success:  true,
		Message:  "Job order updated",
		JobOrder: toJobOrder(jo),
	})
}

// HandleDelete godoc
//
//	@Summary	Delete job order
//	@Tags		JobOrders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Job order ID"
//	@Success	200	{object}	httpx.MessageResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/v1/job-orders/{id} [delete].
func (h *JobOrdersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.JobOrderService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Job order deleted")
}

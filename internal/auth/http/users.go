package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
)

type UsersHandler struct {
	UserService *service.UserService
	Transport   SessionTransport
}

// HandleList godoc
//
//	@Summary	List users
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	authsdk.UserListResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Router		/api/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserListResponse{
		Success: true,
		Message: "Users retrieved successfully",
		Data:    toUsers(users),
	})
}

// HandleMe godoc
//
//	@Summary	Current user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	authsdk.UserResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/v1/users/me [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	user, err := h.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUser(w, http.StatusOK, "Current user retrieved successfully", toUser(user))
}

// HandleCompleteProfile godoc
//
//	@Summary	Complete profile
//	@Description	Sets name, password (at least 6 characters) and a 4-6 digit PIN.
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		authsdk.CompleteProfileRequest	true	"Profile"
//	@Success	200		{object}	authsdk.UserResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse	"Email not verified"
//	@Router		/api/v1/users/complete-profile [post].
func (h *UsersHandler) HandleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.CompleteProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.UserService.CompleteProfile(r.Context(), userID, req.Name, req.Password, req.PIN)
	if err != nil {
		if errors.Is(err, service.ErrNotVerified) {
			httpx.WriteError(w, http.StatusForbidden, "Email must be verified before completing profile")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeUser(w, http.StatusOK, "Profile completed successfully", toUser(user))
}

// HandleUpdateProfile godoc
//
//	@Summary	Update profile
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		authsdk.UpdateProfileRequest	true	"Profile"
//	@Success	200		{object}	authsdk.UserResponse
//	@Router		/api/v1/users/profile [put].
func (h *UsersHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.UpdateProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.UserService.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUser(w, http.StatusOK, "Profile updated successfully", toUser(user))
}

// HandleUpdatePassword godoc
//
//	@Summary	Create or change password
//	@Description	oldPassword is required once a password is set.
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		authsdk.UpdatePasswordRequest	true	"Passwords"
//	@Success	200		{object}	httpx.MessageResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Router		/api/v1/users/password [put].
func (h *UsersHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.UpdatePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	created, err := h.UserService.UpdatePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if created {
		httpx.WriteMessage(w, http.StatusOK, "Password created successfully")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Password updated successfully")
}

// HandleUpdatePIN godoc
//
//	@Summary	Create or change PIN
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		authsdk.UpdatePINRequest	true	"PINs"
//	@Success	200		{object}	httpx.MessageResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Router		/api/v1/users/pin [put].
func (h *UsersHandler) HandleUpdatePIN(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.UpdatePINRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	created, err := h.UserService.UpdatePIN(r.Context(), userID, req.OldPIN, req.NewPIN)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if created {
		httpx.WriteMessage(w, http.StatusOK, "PIN created successfully")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "PIN updated successfully")
}

// HandleDeleteMe godoc
//
//	@Summary	Delete own account
//	@Description	Removes the account and clears session cookies.
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	authsdk.UserResponse
//	@Router		/api/v1/users/me [delete].
func (h *UsersHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.UserService.DeleteUser(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.Transport.Clear(w)
	writeUser(w, http.StatusOK, "User deleted successfully", nil)
}

// HandleGet godoc
//
//	@Summary	Get user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	authsdk.UserResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUser(w, http.StatusOK, "User retrieved successfully", toUser(user))
}

// HandleUpdate godoc
//
//	@Summary	Update user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"User ID"
//	@Param		request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success	200		{object}	authsdk.UserResponse
//	@Failure	400		{object}	httpx.ErrorResponse	"No valid updates provided"
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Router		/api/v1/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.UserService.UpdateUser(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUser(w, http.StatusOK, "User updated successfully", toUser(user))
}

// HandleDelete godoc
//
//	@Summary	Delete user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	authsdk.UserResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUser(w, http.StatusOK, "User deleted successfully", nil)
}

func writeUser(w http.ResponseWriter, status int, message string, user *authsdk.User) {
	httpx.WriteJSON(w, status, authsdk.UserResponse{
		Success: true,
		Message: message,
		Data:    user,
	})
}

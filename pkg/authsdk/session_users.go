package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me fetches the signed-in user and refreshes the cached copy.
func (s *Session) Me(ctx context.Context) (*User, error) {
	var res UserResponse
	if err := s.doJSON(ctx, http.MethodGet, "/users/me", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	s.cacheUser(ctx, res.Data)
	return res.Data, nil
}

// DeleteMe removes the signed-in account and ends the session.
func (s *Session) DeleteMe(ctx context.Context) error {
	if err := s.doJSON(ctx, http.MethodDelete, "/users/me", nil, nil, http.StatusOK); err != nil {
		return err
	}
	s.clear(ctx)
	return nil
}

// CompleteProfile sets the name, password and PIN of a verified account.
func (s *Session) CompleteProfile(ctx context.Context, req CompleteProfileRequest) (*User, error) {
	var res UserResponse
	if err := s.doJSON(ctx, http.MethodPost, "/users/complete-profile", req, &res, http.StatusOK); err != nil {
		return nil, err
	}
	s.cacheUser(ctx, res.Data)
	return res.Data, nil
}

func (s *Session) UpdateProfile(ctx context.Context, name string) (*User, error) {
	var res UserResponse
	err := s.doJSON(ctx, http.MethodPut, "/users/profile", UpdateProfileRequest{Name: name}, &res, http.StatusOK)
	if err != nil {
		return nil, err
	}
	s.cacheUser(ctx, res.Data)
	return res.Data, nil
}

// UpdatePassword creates a password, or changes it when oldPassword is
// given.
func (s *Session) UpdatePassword(ctx context.Context, oldPassword, newPassword string) (*MessageResponse, error) {
	var res MessageResponse
	req := UpdatePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := s.doJSON(ctx, http.MethodPut, "/users/password", req, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdatePIN creates a PIN, or changes it when oldPIN is given.
func (s *Session) UpdatePIN(ctx context.Context, oldPIN, newPIN string) (*MessageResponse, error) {
	var res MessageResponse
	req := UpdatePINRequest{OldPIN: oldPIN, NewPIN: newPIN}
	if err := s.doJSON(ctx, http.MethodPut, "/users/pin", req, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	var res UserListResponse
	if err := s.doJSON(ctx, http.MethodGet, "/users", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	var res UserResponse
	if err := s.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	var res UserResponse
	if err := s.doJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (s *Session) DeleteUser(ctx context.Context, id string) error {
	return s.doJSON(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, http.StatusOK)
}

func (s *Session) cacheUser(ctx context.Context, u *User) {
	if u == nil {
		return
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.save(ctx)
}

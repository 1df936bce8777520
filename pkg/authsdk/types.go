package authsdk

import "time"

// MessageResponse is the bare success envelope.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	OTPStore string `json:"otp_store,omitempty"`
}

// ============================================================================
// Users
// ============================================================================

// User is the public snapshot of an account. Secrets never leave the server.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	IsVerified          bool      `json:"isVerified"`
	IsLocked            bool      `json:"isLocked"`
	ProfileCompleted    bool      `json:"profileCompleted"`
	HasCompletedProfile bool      `json:"hasCompletedProfile"`
	HasPassword         bool      `json:"hasPassword"`
	HasPIN              bool      `json:"hasPin"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type UserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *User  `json:"data"`
}

type UserListResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    []User `json:"data"`
}

type CompleteProfileRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	PIN      string `json:"pin"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword"`
}

type UpdatePINRequest struct {
	OldPIN string `json:"oldPin,omitempty"`
	NewPIN string `json:"newPin"`
}

// UpdateUserRequest is an admin update. Only the name can change.
type UpdateUserRequest struct {
	Name *string `json:"name,omitempty"`
}

// ============================================================================
// Auth flows
// ============================================================================

type EmailRequest struct {
	Email string `json:"email"`
}

// SendCodeResponse acknowledges that a verification code was sent.
type SendCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PINLoginRequest struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

// AuthResponse is returned when a flow issues a session. Tokens are only
// present when the server hands them out in the body (bearer transport).
type AuthResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type RefreshResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type ValidateTokenResponse struct {
	Success bool   `json:"success"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

// ============================================================================
// Job orders
// ============================================================================

type JobOrderCustomer struct {
	Company        string   `json:"company"`
	ContactPerson  string   `json:"contact_person"`
	Department     string   `json:"department"`
	TelNo          string   `json:"telno"`
	Address        string   `json:"address"`
	Remarks        string   `json:"remarks"`
	Attachments    []string `json:"attachments"`
	SignApprove    bool     `json:"sign_approve"`
	CustomerUserID string   `json:"customer_user_id"`
}

type JobOrderEngineer struct {
	Remarks        string   `json:"remarks"`
	Attachments    []string `json:"attachments"`
	SignApprove    bool     `json:"sign_approve"`
	EngineerUserID string   `json:"engineer_user_id"`
}

type JobOrder struct {
	ID          string           `json:"id"`
	OrderNo     string           `json:"order_no"`
	Status      string           `json:"status"`
	DateRequest *time.Time       `json:"date_request,omitempty"`
	DateStarted *time.Time       `json:"date_started,omitempty"`
	DateFinish  *time.Time       `json:"date_finish,omitempty"`
	Customer    JobOrderCustomer `json:"customer"`
	Engineer    JobOrderEngineer `json:"engineer"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// JobOrderRequest creates or updates a job order. Omitted fields are left
// unchanged on update.
type JobOrderRequest struct {
	OrderNo     *string           `json:"order_no,omitempty"`
	Status      *string           `json:"status,omitempty"`
	DateRequest *time.Time        `json:"date_request,omitempty"`
	DateStarted *time.Time        `json:"date_started,omitempty"`
	DateFinish  *time.Time        `json:"date_finish,omitempty"`
	Customer    *JobOrderCustomer `json:"customer,omitempty"`
	Engineer    *JobOrderEngineer `json:"engineer,omitempty"`
}

type JobOrderResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	JobOrder *JobOrder `json:"jobOrder"`
}

type JobOrderListResponse struct {
	Success   bool       `json:"success"`
	JobOrders []JobOrder `json:"jobOrders"`
}

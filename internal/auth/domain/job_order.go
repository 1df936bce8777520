package domain

import "time"

type JobOrderStatus string

const (
	JobOrderPending    JobOrderStatus = "pending"
	JobOrderInProgress JobOrderStatus = "in_progress"
	JobOrderCompleted  JobOrderStatus = "completed"
	JobOrderCancelled  JobOrderStatus = "cancelled"
)

func (s JobOrderStatus) Valid() bool {
	switch s {
	case JobOrderPending, JobOrderInProgress, JobOrderCompleted, JobOrderCancelled:
		return true
	}
	return false
}

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
	ID          string
	OrderNo     string
	Status      JobOrderStatus
	DateRequest *time.Time
	DateStarted *time.Time
	DateFinish  *time.Time
	Customer    JobOrderCustomer
	Engineer    JobOrderEngineer
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

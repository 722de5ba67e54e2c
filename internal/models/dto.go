package models

import (
	"strings"
	"time"
)

// StoreRecoveryRequest is the input for issuing a recovery code
type StoreRecoveryRequest struct {
	User          User   `json:"user"`
	Code          string `json:"code"`
	Scenario      string `json:"scenario"`
	Step          string `json:"step"`
	RemainingData string `json:"remainingData,omitempty"`
}

// VerifyRecoveryRequest looks a code up for a known user and flow
type VerifyRecoveryRequest struct {
	User     User   `json:"user"`
	Code     string `json:"code"`
	Scenario string `json:"scenario"`
	Step     string `json:"step"`
}

// UserRequest addresses every code of a single user
type UserRequest struct {
	User User `json:"user"`
}

// RecoveryRecordResponse is the wire form of a RecoveryRecord
type RecoveryRecordResponse struct {
	User          User      `json:"user"`
	Code          string    `json:"code"`
	Scenario      string    `json:"scenario"`
	Step          string    `json:"step"`
	CreatedAt     time.Time `json:"createdAt"`
	RemainingData string    `json:"remainingData,omitempty"`
}

// TenantConfigRequest sets a tenant scoped configuration override
type TenantConfigRequest struct {
	Value string `json:"value"`
}

// NewRecoveryRecordResponse converts a record for the wire.
func NewRecoveryRecordResponse(r *RecoveryRecord) *RecoveryRecordResponse {
	return &RecoveryRecordResponse{
		User:          r.User,
		Code:          r.Code,
		Scenario:      string(r.Flow.Scenario()),
		Step:          string(r.Flow.Step()),
		CreatedAt:     r.CreatedAt,
		RemainingData: r.RemainingData,
	}
}

// Validate reports the first missing identity field, or "" when complete.
func (u User) Validate() string {
	switch {
	case strings.TrimSpace(u.UserName) == "":
		return "user.userName is required"
	case strings.TrimSpace(u.UserStoreDomain) == "":
		return "user.userStoreDomain is required"
	case strings.TrimSpace(u.TenantDomain) == "":
		return "user.tenantDomain is required"
	}
	return ""
}

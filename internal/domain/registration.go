package domain

import "encoding/json"

// Code purposes. A code issued under one purpose never validates an attempt
// under another; the code store namespaces its keys with the purpose tag.
const (
	PurposeRegister = "register"
	PurposeLogin    = "login"
)

// PendingRegistration is the ephemeral saga payload held by the code store
// between Register and VerifyAndCommit. The identity draft and profile draft
// are written and consumed as a single unit under one TTL, so a stale draft
// can never be verified against a reissued code.
type PendingRegistration struct {
	IdentityDraft Identity        `json:"identity_draft"`
	ProfileDraft  json.RawMessage `json:"profile_draft"`
}

// RegisterRequest is the public registration input. Password is required for
// password-bearing roles only; ProfileFields is the role-specific shape
// forwarded to the downstream profile service after commit.
type RegisterRequest struct {
	Email         string          `json:"email" validate:"required,email"`
	Password      string          `json:"password" validate:"omitempty,min=8,max=72"`
	Role          string          `json:"role" validate:"required,oneof=user partner"`
	ProfileFields json.RawMessage `json:"profile_fields" validate:"required"`
}

// UserProfileDraft is the shape required of profile_fields for RoleUser.
type UserProfileDraft struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
}

// PartnerProfileDraft is the shape required of profile_fields for
// RolePartner. Vehicle and bank details are owned by the partner profile
// service; they pass through the saga opaquely beyond shape validation.
type PartnerProfileDraft struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Phone         string `json:"phone" validate:"required,e164"`
	VehicleType   string `json:"vehicle_type" validate:"required"`
	LicensePlate  string `json:"license_plate" validate:"required"`
	BankAccountNo string `json:"bank_account_no"`
}

// VerifyRequest submits the one-time code for a pending registration.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

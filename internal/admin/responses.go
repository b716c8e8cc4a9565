package admin

import (
	"strings"

	dErrors "crewauction/pkg/domain-errors"
)

// AuthRequest is the body of POST /api/admin/auth.
type AuthRequest struct {
	AccessCode string `json:"accessCode"`
}

func (r *AuthRequest) Validate() error {
	r.AccessCode = strings.TrimSpace(r.AccessCode)
	if r.AccessCode == "" {
		return dErrors.New(dErrors.CodeAuthFailure, "Invalid admin code")
	}
	return nil
}

type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type VerifyResponse struct {
	Success bool `json:"success"`
}

package service

import (
	"errors"
	"fmt"
)

// Sentinel errors let handlers map business failures to status codes.
var (
	ErrCustomerRequired   = errors.New("please select a customer first")
	ErrNoCargoSelected    = errors.New("please select at least one cargo detail")
	ErrInvalidCargoDetail = errors.New("invalid cargo detail id")
	ErrNoEligibleCargo    = errors.New("no eligible cargo details found, they may have already been invoiced")
	ErrCompanyRequired    = errors.New("please select a company first")
	ErrInvoiceNotFound    = errors.New("sales invoice not found")
	ErrInvalidDocStatus   = errors.New("invalid document status for this action")
	ErrCargoRaced         = errors.New("some cargo details were invoiced by another request")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTaxRuleNotFound    = errors.New("tax rule not found")
	ErrInvalidTaxRule     = errors.New("invalid tax rule")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("a user with that username or email already exists")
	ErrInvalidRole        = errors.New("invalid role: must be admin, accounts or dispatcher")
	ErrCannotDeleteSelf   = errors.New("you cannot delete your own account")
	ErrTaxRuleOverlap     = errors.New("a tax rule of this type already covers part of that period")
)

// ValidationError wraps a sentinel with details for the user.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(err error, details string) error {
	return &ValidationError{Err: err, Details: details}
}

// IsValidationError reports whether err is a user-facing validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

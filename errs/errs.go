package errs

import "errors"

// Delivery-layer error taxonomy. A delivery miss (recipient offline) is
// deliberately absent: it is an outcome, not an error.
var (
	ErrUnauthorized      = errors.New("unauthorized principal")
	ErrTenantMismatch    = errors.New("participants belong to different tenants")
	ErrRecipientNotFound = errors.New("recipient not found in tenant")
	ErrStoreUnavailable  = errors.New("record store unavailable")
)

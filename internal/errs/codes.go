package errs

// StatusHint classifies a business error for the transport layer without
// prescribing a concrete wire status.
type StatusHint int

const (
	HintNotImplemented StatusHint = iota
	HintBadRequest
	HintForbidden
)

// Kind enumerates every business-rule failure the service reports to callers.
// The set is closed; adding a kind requires a fresh, unused code. Codes are
// persisted and logged downstream, so they are never reused or renumbered.
type Kind int

const (
	NoCode Kind = iota
	IncorrectCurrentPassword
	NewPasswordMismatch
	AccountLocked
	AccountDisabled
	BadCredentials
)

// Entry is the catalog record behind a Kind.
type Entry struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Hint    StatusHint `json:"-"`
}

// Lookup resolves a kind to its catalog entry. It is total: any value outside
// the defined kinds falls back to the NoCode sentinel, which is also what
// infrastructure failures surface as.
func Lookup(k Kind) Entry {
	switch k {
	case IncorrectCurrentPassword:
		return Entry{Code: 300, Message: "Current password is incorrect", Hint: HintBadRequest}
	case NewPasswordMismatch:
		return Entry{Code: 301, Message: "The new password does not match", Hint: HintBadRequest}
	case AccountLocked:
		return Entry{Code: 302, Message: "User account is locked", Hint: HintForbidden}
	case AccountDisabled:
		return Entry{Code: 303, Message: "User account is disabled", Hint: HintForbidden}
	case BadCredentials:
		return Entry{Code: 304, Message: "Login and / or password is incorrect", Hint: HintForbidden}
	default:
		return Entry{Code: 0, Message: "No code", Hint: HintNotImplemented}
	}
}

// Error makes kinds usable as typed errors; services return them directly and
// callers match with errors.Is.
func (k Kind) Error() string { return Lookup(k).Message }

// Code returns the stable numeric code for k.
func (k Kind) Code() int { return Lookup(k).Code }

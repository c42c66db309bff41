package apperr

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable denial code returned to callers.
type Reason string

const (
	ReasonSubscriptionInactive   Reason = "subscription_inactive"
	ReasonSubscriptionExpired    Reason = "subscription_expired"
	ReasonPostTypeNotInPlan      Reason = "post_type_not_in_plan"
	ReasonQuotaExhausted         Reason = "quota_exhausted"
	ReasonPushQuotaExhausted     Reason = "push_quota_exhausted"
	ReasonListingPackageInactive Reason = "listing_package_inactive"
	ReasonConcurrencyConflict    Reason = "concurrency_conflict"
	ReasonNotFound               Reason = "not_found"
	ReasonValidation             Reason = "validation_error"
	ReasonSubscriptionExists     Reason = "subscription_exists"
	ReasonTrialUsed              Reason = "trial_used"
	ReasonInvalidTransition      Reason = "invalid_transition"
	ReasonEventDuplicate         Reason = "event_duplicate"
)

var (
	ErrNoSubscription         = errors.New("no subscription for user")
	ErrListingNotFound        = errors.New("listing not found")
	ErrSubscriptionInactive   = errors.New("subscription is not active")
	ErrSubscriptionExpired    = errors.New("subscription is expired")
	ErrPostTypeNotInPlan      = errors.New("post type is not part of the plan")
	ErrQuotaExhausted         = errors.New("post quota exhausted")
	ErrPushQuotaExhausted     = errors.New("push quota exhausted")
	ErrListingPackageInactive = errors.New("listing package is inactive")
	ErrConcurrencyConflict    = errors.New("concurrent update conflict")
	ErrSubscriptionExists     = errors.New("live subscription already exists")
	ErrTrialUsed              = errors.New("trial already used")
	ErrInvalidTransition      = errors.New("invalid subscription transition")
	ErrHistoryImmutable       = errors.New("package history entries are immutable")
	ErrEventDuplicate         = errors.New("purchase event already applied")
)

var reasons = map[error]Reason{
	ErrNoSubscription:         ReasonNotFound,
	ErrListingNotFound:        ReasonNotFound,
	ErrSubscriptionInactive:   ReasonSubscriptionInactive,
	ErrSubscriptionExpired:    ReasonSubscriptionExpired,
	ErrPostTypeNotInPlan:      ReasonPostTypeNotInPlan,
	ErrQuotaExhausted:         ReasonQuotaExhausted,
	ErrPushQuotaExhausted:     ReasonPushQuotaExhausted,
	ErrListingPackageInactive: ReasonListingPackageInactive,
	ErrConcurrencyConflict:    ReasonConcurrencyConflict,
	ErrSubscriptionExists:     ReasonSubscriptionExists,
	ErrTrialUsed:              ReasonTrialUsed,
	ErrInvalidTransition:      ReasonInvalidTransition,
	ErrEventDuplicate:         ReasonEventDuplicate,
}

// ValidationError reports an unknown plan, post type or a malformed request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the reason code carried by err, or "" when err is not a
// domain error.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ReasonValidation
	}
	for target, reason := range reasons {
		if errors.Is(err, target) {
			return reason
		}
	}
	return ""
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSubscription) || errors.Is(err, ErrListingNotFound)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrSubscriptionExists) || errors.Is(err, ErrEventDuplicate)
}

// IsDenial reports whether err is an entitlement decision rather than a fault.
func IsDenial(err error) bool {
	switch ReasonOf(err) {
	case ReasonSubscriptionInactive, ReasonSubscriptionExpired, ReasonPostTypeNotInPlan,
		ReasonQuotaExhausted, ReasonPushQuotaExhausted, ReasonListingPackageInactive,
		ReasonTrialUsed, ReasonInvalidTransition:
		return true
	}
	return false
}

package types

type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusUpgraded  SubscriptionStatus = "upgraded"
	SubscriptionStatusRenewed   SubscriptionStatus = "renewed"
)

// LiveStatuses are the statuses a subscription can grant entitlements in.
var LiveStatuses = []SubscriptionStatus{SubscriptionStatusTrial, SubscriptionStatusActive}

func (s SubscriptionStatus) IsLive() bool {
	return s == SubscriptionStatusTrial || s == SubscriptionStatusActive
}

func (s SubscriptionStatus) IsTerminal() bool {
	switch s {
	case SubscriptionStatusExpired, SubscriptionStatusCancelled, SubscriptionStatusUpgraded, SubscriptionStatusRenewed:
		return true
	}
	return false
}

func (s SubscriptionStatus) Valid() bool {
	return s.IsLive() || s.IsTerminal()
}

type transition struct {
	from SubscriptionStatus
	to   SubscriptionStatus
}

var validTransitions = map[transition]bool{
	{SubscriptionStatusTrial, SubscriptionStatusExpired}:    true,
	{SubscriptionStatusTrial, SubscriptionStatusCancelled}:  true,
	{SubscriptionStatusTrial, SubscriptionStatusUpgraded}:   true,
	{SubscriptionStatusTrial, SubscriptionStatusRenewed}:    true,
	{SubscriptionStatusActive, SubscriptionStatusExpired}:   true,
	{SubscriptionStatusActive, SubscriptionStatusCancelled}: true,
	{SubscriptionStatusActive, SubscriptionStatusUpgraded}:  true,
	{SubscriptionStatusActive, SubscriptionStatusRenewed}:   true,
}

// CanTransition reports whether a subscription may move from one status to
// another. Terminal statuses have no outgoing edges.
func CanTransition(from, to SubscriptionStatus) bool {
	return validTransitions[transition{from, to}]
}

// PurchaseMode is how a validated purchase relates to the current subscription.
type PurchaseMode string

const (
	PurchaseModeNew     PurchaseMode = "new"
	PurchaseModeUpgrade PurchaseMode = "upgrade"
	PurchaseModeRenew   PurchaseMode = "renew"
)

func (m PurchaseMode) Valid() bool {
	switch m {
	case PurchaseModeNew, PurchaseModeUpgrade, PurchaseModeRenew:
		return true
	}
	return false
}

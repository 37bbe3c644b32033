// Package progress delivers solver progress to interested listeners.
//
// Delivery is best-effort: notifying never blocks and never fails, whether
// there are zero listeners or listeners that fell behind.
package progress

import "lukechampine.com/uint128"

//go:generate mockgen -package mocks -destination mocks/notifier.go . Notifier

// Notifier receives the nonce of every solved fragment.
// Implementations must not block.
type Notifier interface {
	Notify(nonce uint128.Uint128)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(nonce uint128.Uint128)

func (f NotifierFunc) Notify(nonce uint128.Uint128) {
	f(nonce)
}

type discard struct{}

func (discard) Notify(uint128.Uint128) {}

// Discard drops every notification.
var Discard Notifier = discard{}

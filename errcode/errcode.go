// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errcode maps the sentinel errors returned by the supply, vesting
// and IDO packages back onto the numeric abort codes of the reference
// accounting system, so callers that need code-for-code parity with it
// (tests, audit tooling) don't have to string-match error text.
//
// Codes are scoped per subsystem: the same integer means different things
// in the supply, vesting and IDO tables, mirroring the reference system's
// own module-local abort code enumerations.
package errcode

import "errors"

// Code is a numeric abort code from one of the Supply, Vesting or IDO
// subsystem tables below.
type Code int

// IDO subsystem codes.
const (
	NotOwner            Code = 1
	MaxOut              Code = 2
	DepositTime         Code = 3
	PoolDuplicates      Code = 5
	TimeOrder           Code = 6
	Cap                 Code = 7
	Treasury            Code = 8
	ClaimTime           Code = 9
	NoDeposit           Code = 10
	WithdrawPaymentTime Code = 11
	WithdrawZeroAmt     Code = 12
	Claimed             Code = 13
	VestingSetting      Code = 14
	DuplicateTokens     Code = 15
	PaymentToken        Code = 16
	Refund              Code = 19
	PaymentDecimals     Code = 20
	Withdrawn           Code = 21
)

// Supply subsystem codes.
const (
	SupplyInfo          Code = 4
	PendingAmtNotEnough Code = 5
)

// Allocation vester subsystem codes.
const (
	AllocationAlreadyInit Code = 6
	NoEventsResources     Code = 7
)

// registry associates a sentinel error with its subsystem code. Lookups are
// by identity (errors.Is), not by string, so wrapping with fmt.Errorf("%w")
// upstream still resolves.
type entry struct {
	err  error
	code Code
}

var registry []entry

// Register records the abort code for a sentinel error. Called once per
// sentinel from each subsystem's package init.
func Register(err error, code Code) {
	registry = append(registry, entry{err: err, code: code})
}

// Lookup returns the abort code registered for err, or ok=false if err (or
// anything it wraps) was never registered.
func Lookup(err error) (Code, bool) {
	for _, e := range registry {
		if errors.Is(err, e.err) {
			return e.code, true
		}
	}
	return 0, false
}

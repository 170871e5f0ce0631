// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vesting implements the allocation vester: four fixed,
// admin-claimed tranches of HOU under TGE+cliff+linear-vesting rules.
// Grounded on dex/vaults.go's ownership-keyed schedule state and
// dex/lending.go's StateDB persistence idiom, generalized from one
// position per depositor to one Allocation per fixed tranche index.
package vesting

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/launchpad/clock"
	"github.com/luxfi/launchpad/contract"
	"github.com/luxfi/launchpad/errcode"
	"github.com/luxfi/launchpad/ledger"
)

// PrecisionScale is the fixed-point scale used for the vesting-interval
// fraction in pendingClaim, per the numeric constants table.
var PrecisionScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

// OneMonth is 365*24*3600/12 seconds.
const OneMonth = 365 * 24 * 3600 / 12

// Tranche indices, in fixed initialization order.
const (
	TrancheEcosystem = 0
	TrancheTeam      = 1
	TrancheAdvisor   = 2
	TrancheLaunchpad = 3
)

// M is 10^8 base units per token, matching HOU's decimals.
var M = new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil)

var (
	ErrPendingAmtNotEnough  = errors.New("vesting: claim amount exceeds pending claimable")
	ErrAllocationAlreadyInit = errors.New("vesting: allocation already initialized")
	ErrNotOwner             = errors.New("vesting: caller is not admin")
)

func init() {
	errcode.Register(ErrPendingAmtNotEnough, errcode.PendingAmtNotEnough)
	errcode.Register(ErrAllocationAlreadyInit, errcode.AllocationAlreadyInit)
	errcode.Register(ErrNotOwner, errcode.NotOwner)
}

// Allocation is one tranche's schedule and watermark.
type Allocation struct {
	Name          string
	Max           *big.Int
	Minted        *big.Int
	TGEMint       *big.Int
	CliffAmount   *big.Int
	CliffStart    uint64
	CliffPeriod   uint64
	VestingAmount *big.Int
	VestingStart  uint64
	VestingPeriod uint64
}

// VestingEvent mirrors spec.md's VestingEvent record.
type VestingEvent struct {
	PoolID uint64
	Amount *big.Int
	To     common.Address
}

// AllocationStore is the ordered sequence of tranches for one admin.
type AllocationStore struct {
	Allocations []*Allocation
}

// Controller is the vesting subsystem's business logic.
type Controller struct {
	ledger ledger.Ledger
	clock  clock.Clock

	mintCap ledger.MintCap
	stores  map[common.Address]*AllocationStore
}

// NewController constructs the vesting controller bound to a shared ledger
// and clock, and the HOU mint capability issued to the vester.
func NewController(l ledger.Ledger, c clock.Clock, mintCap ledger.MintCap) *Controller {
	return &Controller{
		ledger:  l,
		clock:   c,
		mintCap: mintCap,
		stores:  make(map[common.Address]*AllocationStore),
	}
}

// InitializeAllocation one-shot populates the four fixed tranches for admin.
func (c *Controller) InitializeAllocation(admin common.Address) error {
	if _, ok := c.stores[admin]; ok {
		return ErrAllocationAlreadyInit
	}

	now := c.clock.Now()
	tokens := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), M) }
	pct := func(bp int64, of *big.Int) *big.Int {
		return new(big.Int).Div(new(big.Int).Mul(of, big.NewInt(bp)), big.NewInt(100))
	}

	ecosystemMax := tokens(260_000_000)
	teamMax := tokens(250_000_000)
	advisorMax := tokens(20_000_000)
	launchpadMax := tokens(20_000_000)

	allocations := []*Allocation{
		{
			Name:          "Ecosystem",
			Max:           ecosystemMax,
			Minted:        big.NewInt(0),
			TGEMint:       pct(5, ecosystemMax),
			CliffAmount:   big.NewInt(0),
			VestingAmount: new(big.Int).Sub(ecosystemMax, pct(5, ecosystemMax)),
			VestingStart:  now,
			VestingPeriod: 24 * OneMonth,
		},
		{
			Name:          "Team",
			Max:           teamMax,
			Minted:        big.NewInt(0),
			TGEMint:       big.NewInt(0),
			CliffAmount:   pct(10, teamMax),
			CliffStart:    now,
			CliffPeriod:   6 * OneMonth,
			VestingAmount: new(big.Int).Sub(teamMax, pct(10, teamMax)),
			VestingStart:  now + 6*OneMonth,
			VestingPeriod: 36 * OneMonth,
		},
		{
			Name:          "Advisor",
			Max:           advisorMax,
			Minted:        big.NewInt(0),
			TGEMint:       big.NewInt(0),
			CliffAmount:   pct(10, advisorMax),
			CliffStart:    now,
			CliffPeriod:   6 * OneMonth,
			VestingAmount: new(big.Int).Sub(advisorMax, pct(10, advisorMax)),
			VestingStart:  now + 6*OneMonth,
			VestingPeriod: 36 * OneMonth,
		},
		{
			Name:          "Launchpad",
			Max:           launchpadMax,
			Minted:        big.NewInt(0),
			TGEMint:       new(big.Int).Set(launchpadMax),
			CliffAmount:   big.NewInt(0),
			VestingAmount: big.NewInt(0),
		},
	}

	c.stores[admin] = &AllocationStore{Allocations: allocations}
	return nil
}

func (c *Controller) allocation(admin common.Address, poolID int) (*Allocation, error) {
	store, ok := c.stores[admin]
	if !ok {
		return nil, ErrPendingAmtNotEnough
	}
	if poolID < 0 || poolID >= len(store.Allocations) {
		return nil, ErrPendingAmtNotEnough
	}
	return store.Allocations[poolID], nil
}

// PendingClaim is a pure read: claimable HOU for the given tranche right now.
func (c *Controller) PendingClaim(admin common.Address, poolID int) (*big.Int, error) {
	a, err := c.allocation(admin, poolID)
	if err != nil {
		return nil, err
	}
	return c.pendingClaimLocked(a), nil
}

func (c *Controller) pendingClaimLocked(a *Allocation) *big.Int {
	now := c.clock.Now()
	entitled := new(big.Int).Set(a.TGEMint)

	if a.CliffAmount.Sign() > 0 && now >= a.CliffStart+a.CliffPeriod {
		entitled.Add(entitled, a.CliffAmount)
	}

	if a.VestingAmount.Sign() > 0 && now > a.VestingStart {
		elapsed := now - a.VestingStart
		if elapsed >= a.VestingPeriod {
			entitled.Add(entitled, a.VestingAmount)
		} else {
			scaled := new(big.Int).Mul(a.VestingAmount, PrecisionScale)
			scaled.Mul(scaled, new(big.Int).SetUint64(elapsed))
			scaled.Div(scaled, new(big.Int).SetUint64(a.VestingPeriod))
			scaled.Div(scaled, PrecisionScale)
			entitled.Add(entitled, scaled)
		}
	}

	claimable := new(big.Int).Sub(entitled, a.Minted)
	if claimable.Sign() < 0 {
		claimable.SetInt64(0)
	}

	maxClaimable := new(big.Int).Sub(a.Max, a.Minted)
	if claimable.Cmp(maxClaimable) > 0 {
		claimable = maxClaimable
	}
	return claimable
}

// Claim is admin-gated: mints amount (or all pending if amount==0) from
// tranche poolID and deposits it to to.
func (c *Controller) Claim(state contract.StateDB, admin common.Address, poolID int, amount *big.Int, to common.Address) (VestingEvent, error) {
	a, err := c.allocation(admin, poolID)
	if err != nil {
		return VestingEvent{}, err
	}

	pending := c.pendingClaimLocked(a)
	if amount.Sign() == 0 {
		amount = pending
	} else if amount.Cmp(pending) > 0 {
		return VestingEvent{}, ErrPendingAmtNotEnough
	}

	a.Minted = new(big.Int).Add(a.Minted, amount)

	coin := c.ledger.Mint(state, amount, c.mintCap)
	c.ledger.Deposit(state, to, coin)

	ev := VestingEvent{PoolID: uint64(poolID), Amount: new(big.Int).Set(amount), To: to}
	return ev, nil
}

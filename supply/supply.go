// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supply implements the HOU mint-cap and linear-emission
// controller: a single SupplyInfo reconciled on every mint, gated by the
// mining/burning capability witnesses. Grounded on dex/module.go's
// precompile dispatch shape and ai/ai_mining.go's accrual-against-a-cap
// pattern (accrue a reward pool linearly, reconcile against a hard cap
// before minting).
package supply

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/launchpad/clock"
	"github.com/luxfi/launchpad/contract"
	"github.com/luxfi/launchpad/errcode"
	"github.com/luxfi/launchpad/ledger"
)

// HOU asset identity and metadata, per the numeric constants table.
const (
	HOUName     = "Houston Token"
	HOUSymbol   = "HOU"
	HOUDecimals = uint8(8)
)

// HOUMaxSupply is HOU's maximum total supply: 10^9 * 10^8. No mint path in
// this module checks against it; Mint enforces only MiningCap.
var HOUMaxSupply = new(big.Int).Mul(big.NewInt(1_000_000_000), pow10(8))

// MiningCap is the hard cap on cumulative mining emission: 4.5*10^8 * 10^8.
var MiningCap = new(big.Int).Mul(big.NewInt(450_000_000), pow10(8))

// ThreeYearsSeconds is the emission window: supply_per_sec = MiningCap / ThreeYearsSeconds.
const ThreeYearsSeconds = 3 * 365 * 24 * 3600

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

var (
	ErrMaxOut              = errors.New("supply: total minted would exceed max")
	ErrPendingAmtNotEnough = errors.New("supply: amount exceeds accrued pending supply")
	ErrSupplyInfo          = errors.New("supply: mining not initialized")
	ErrNotOwner            = errors.New("supply: caller is not admin")
)

func init() {
	errcode.Register(ErrMaxOut, errcode.MaxOut)
	errcode.Register(ErrPendingAmtNotEnough, errcode.PendingAmtNotEnough)
	errcode.Register(ErrSupplyInfo, errcode.SupplyInfo)
	errcode.Register(ErrNotOwner, errcode.NotOwner)
}

// HOUAsset is the ledger asset id HOU is registered under. It is the
// supply precompile's own address, following the teacher's idiom of a
// module addressing its native asset by its own contract address.
var HOUAsset = ledger.AssetID(common.HexToAddress("0x0000000000000000000000000000000000c000"))

// SupplyInfo is the singleton emission-accrual state for one admin.
type SupplyInfo struct {
	Max          *big.Int
	SupplyPerSec *big.Int
	AccSupply    *big.Int
	LastSupplyTS uint64
	TotalMinted  *big.Int
}

// MiningCapability is an empty witness: possessing one authorizes Mint.
type MiningCapability struct{}

// BurningCapability is an empty witness: possessing one authorizes Burn.
type BurningCapability struct{}

var (
	supplyInfoPrefix = []byte("supply/info")
)

func infoKey(admin common.Address) common.Hash {
	h := blake3.New()
	h.Write(supplyInfoPrefix)
	h.Write(admin.Bytes())
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// Controller is the supply subsystem's business logic, independent of the
// precompile ABI wrapper in module.go. One Controller instance backs the
// singleton precompile.
type Controller struct {
	ledger ledger.Ledger
	clock  clock.Clock

	mintCap ledger.MintCap
	burnCap ledger.BurnCap
	caps    map[common.Address]bool // admins who hold Caps<HOU>
	infos   map[common.Address]*SupplyInfo
}

// NewController constructs the supply controller bound to a shared ledger
// and clock.
func NewController(l ledger.Ledger, c clock.Clock) *Controller {
	return &Controller{
		ledger: l,
		clock:  c,
		caps:   make(map[common.Address]bool),
		infos:  make(map[common.Address]*SupplyInfo),
	}
}

// MintCap returns the HOU mint capability held by this controller, once
// InitializeCoin has registered the asset. Exposed so sibling modules
// (vesting) that also mint HOU can share the same capability without the
// ledger issuing a second one.
func (c *Controller) MintCap() ledger.MintCap {
	return c.mintCap
}

// InitializeCoin idempotently registers HOU with the ledger and records
// that admin holds its mint/freeze/burn capability triple.
func (c *Controller) InitializeCoin(state contract.StateDB, admin common.Address) {
	if c.caps[admin] {
		return
	}
	if c.ledger.IsInitialized(state, HOUAsset) {
		c.caps[admin] = true
		return
	}
	burnCap, _, mintCap := c.ledger.Initialize(state, HOUAsset, HOUName, HOUSymbol, HOUDecimals, true)
	c.mintCap = mintCap
	c.burnCap = burnCap
	c.caps[admin] = true
}

// InitializeMining idempotently creates SupplyInfo for admin.
func (c *Controller) InitializeMining(state contract.StateDB, admin common.Address) error {
	if !c.caps[admin] {
		return ErrNotOwner
	}
	if _, ok := c.infos[admin]; ok {
		return nil
	}
	c.infos[admin] = &SupplyInfo{
		Max:          new(big.Int).Set(MiningCap),
		SupplyPerSec: new(big.Int).Div(MiningCap, big.NewInt(ThreeYearsSeconds)),
		AccSupply:    big.NewInt(0),
		LastSupplyTS: c.clock.Now(),
		TotalMinted:  big.NewInt(0),
	}
	return nil
}

// PendingSupply is a pure read: accrued-but-unminted HOU, clamped to the cap.
func (c *Controller) PendingSupply(admin common.Address) (*big.Int, error) {
	info, ok := c.infos[admin]
	if !ok {
		return nil, ErrSupplyInfo
	}
	return c.pendingSupplyLocked(info), nil
}

func (c *Controller) pendingSupplyLocked(info *SupplyInfo) *big.Int {
	elapsed := c.clock.Now() - info.LastSupplyTS
	linear := new(big.Int).Mul(info.SupplyPerSec, new(big.Int).SetUint64(elapsed))
	pending := new(big.Int).Add(info.AccSupply, linear)

	remaining := new(big.Int).Sub(info.Max, info.TotalMinted)
	if pending.Cmp(remaining) > 0 {
		pending = new(big.Int).Set(remaining)
	}
	return pending
}

// AuthorizeMining issues a MiningCapability iff admin holds both Caps<HOU>
// and an initialized SupplyInfo.
func (c *Controller) AuthorizeMining(admin common.Address) (MiningCapability, error) {
	if !c.caps[admin] {
		return MiningCapability{}, ErrNotOwner
	}
	if _, ok := c.infos[admin]; !ok {
		return MiningCapability{}, ErrSupplyInfo
	}
	return MiningCapability{}, nil
}

// AuthorizeBurning issues a BurningCapability under the same guard as
// AuthorizeMining.
func (c *Controller) AuthorizeBurning(admin common.Address) (BurningCapability, error) {
	if !c.caps[admin] {
		return BurningCapability{}, ErrNotOwner
	}
	if _, ok := c.infos[admin]; !ok {
		return BurningCapability{}, ErrSupplyInfo
	}
	return BurningCapability{}, nil
}

// Mint reconciles accrual and mints amount HOU, gated by possession of a
// MiningCapability. admin identifies which SupplyInfo is reconciled.
func (c *Controller) Mint(state contract.StateDB, admin common.Address, _ MiningCapability, amount *big.Int) (ledger.Coin, error) {
	info, ok := c.infos[admin]
	if !ok {
		return ledger.Coin{}, ErrSupplyInfo
	}

	newTotal := new(big.Int).Add(info.TotalMinted, amount)
	if newTotal.Cmp(info.Max) > 0 {
		return ledger.Coin{}, ErrMaxOut
	}

	info.AccSupply = c.pendingSupplyLocked(info)
	info.LastSupplyTS = c.clock.Now()

	if amount.Sign() == 0 {
		return ledger.Zero(HOUAsset), nil
	}
	if amount.Cmp(info.AccSupply) > 0 {
		return ledger.Coin{}, ErrPendingAmtNotEnough
	}

	info.AccSupply = new(big.Int).Sub(info.AccSupply, amount)
	info.TotalMinted = newTotal

	return c.ledger.Mint(state, amount, c.mintCap), nil
}

// Burn ledger-burns coin, gated by possession of a BurningCapability.
func (c *Controller) Burn(state contract.StateDB, _ BurningCapability, coin ledger.Coin) {
	c.ledger.Burn(state, coin, c.burnCap)
}

// ManualBurnEvent mirrors spec.md's ManualBurnEvent record.
type ManualBurnEvent struct {
	Amount *big.Int
}

// ManualBurn is an admin-gated self-burn of admin's own HOU balance.
func (c *Controller) ManualBurn(state contract.StateDB, admin common.Address, amount *big.Int) (ManualBurnEvent, error) {
	if !c.caps[admin] {
		return ManualBurnEvent{}, ErrNotOwner
	}
	coin := c.ledger.Withdraw(state, HOUAsset, admin, amount)
	c.ledger.Burn(state, coin, c.burnCap)
	return ManualBurnEvent{Amount: new(big.Int).Set(amount)}, nil
}

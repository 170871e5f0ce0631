// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger implements the fungible-asset subsystem every other
// package in this module builds on: per-asset registration, balances, and
// the mint/freeze/burn capability triple issued at registration. Metadata
// and supply are cached in memory and persisted through StateDB storage
// slots addressed by a blake3 hash of a prefix and an asset id, following
// the teacher's dex/lending.go idiom. Balances go through the same native
// uint256 boundary lending.go's transferAsset uses (StateDB.GetBalance/
// AddBalance/SubBalance): since that boundary carries a single balance per
// address with no asset dimension, each (asset, account) pair is addressed
// by a synthetic account derived from a blake3 hash of the two, the same
// derivation trick makeKey uses for storage slots.
package ledger

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/launchpad/contract"
)

// AssetID names a registered fungible asset. The reference system
// parameterizes its ledger operations by a phantom type per asset; since Go
// has no phantom types, each asset is instead identified by a stable
// address, exactly as the teacher's dex package addresses a Currency.
type AssetID common.Address

// Coin is a plain value carrying an amount of a given asset. Unlike the
// reference system's linear-typed Coin<T>, nothing here prevents a caller
// from copying or dropping one outside the ledger's own Mint/Burn/Withdraw/
// Deposit/Merge/Extract entry points — conservation is a convention this
// package's callers are expected to honor, not a type-system guarantee.
type Coin struct {
	Asset  AssetID
	Amount *big.Int
}

// Value returns the coin's amount.
func (c Coin) Value() *big.Int {
	if c.Amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(c.Amount)
}

// Zero returns the empty coin of asset.
func Zero(asset AssetID) Coin {
	return Coin{Asset: asset, Amount: big.NewInt(0)}
}

// Merge folds src into dst in place, following dex's merge-by-addition
// idiom for position accounting.
func Merge(dst *Coin, src Coin) {
	if dst.Asset != src.Asset {
		panic("ledger: merge of mismatched assets")
	}
	dst.Amount = new(big.Int).Add(dst.Value(), src.Value())
}

// Extract splits amount out of src in place and returns it as a new Coin.
func Extract(src *Coin, amount *big.Int) Coin {
	if src.Value().Cmp(amount) < 0 {
		panic("ledger: extract exceeds coin value")
	}
	src.Amount = new(big.Int).Sub(src.Value(), amount)
	return Coin{Asset: src.Asset, Amount: new(big.Int).Set(amount)}
}

// MintCap is held by whichever module registered an asset with minting
// enabled; possessing one is what authorizes Mint, following the teacher's
// capability-witness pattern (see supply.MiningCapability).
type MintCap struct{ asset AssetID }

// FreezeCap is held by whichever module registered an asset with freeze
// enabled. Unused by any entry point in this module but carried for parity
// with the reference system's initialize<T> return triple.
type FreezeCap struct{ asset AssetID }

// BurnCap is held by whichever module registered an asset with burning
// enabled; possessing one is what authorizes Burn.
type BurnCap struct{ asset AssetID }

// assetMeta is the registered metadata for one asset.
type assetMeta struct {
	Name          string
	Symbol        string
	Decimals      uint8
	MonitorSupply bool
}

var (
	ledgerAddr = common.HexToAddress("0x000000000000000000000000000000000000Ac00")

	assetMetaPrefix   = []byte("ledger/meta")
	assetSupplyPrefix = []byte("ledger/supply")
	balanceAcctPrefix = []byte("ledger/balanceAcct")
)

// Ledger is the interface every subsystem package depends on. stateLedger
// is the only implementation; it is exported as a constructor rather than a
// concrete type so the domain packages depend only on this interface.
type Ledger interface {
	// Initialize registers a new asset and returns its capability triple.
	// Initializing the same asset twice panics — the reference system's
	// is_initialized<T> guard is the caller's responsibility to check
	// first if a soft failure is wanted instead.
	Initialize(state contract.StateDB, asset AssetID, name, symbol string, decimals uint8, monitorSupply bool) (BurnCap, FreezeCap, MintCap)
	IsInitialized(state contract.StateDB, asset AssetID) bool
	Decimals(state contract.StateDB, asset AssetID) uint8
	Supply(state contract.StateDB, asset AssetID) (*big.Int, bool)

	Mint(state contract.StateDB, amount *big.Int, cap MintCap) Coin
	Burn(state contract.StateDB, coin Coin, cap BurnCap)

	Balance(state contract.StateDB, asset AssetID, addr common.Address) *big.Int
	Withdraw(state contract.StateDB, asset AssetID, addr common.Address, amount *big.Int) Coin
	Deposit(state contract.StateDB, addr common.Address, coin Coin)

	IsRegistered(state contract.StateDB, asset AssetID, addr common.Address) bool
	Register(state contract.StateDB, asset AssetID, addr common.Address)
}

// stateLedger is the StateDB-backed Ledger implementation.
type stateLedger struct {
	mu sync.RWMutex

	meta   map[AssetID]*assetMeta
	supply map[AssetID]*big.Int
}

// New constructs the module's single Ledger instance.
func New() Ledger {
	return &stateLedger{
		meta:   make(map[AssetID]*assetMeta),
		supply: make(map[AssetID]*big.Int),
	}
}

func makeKey(prefix []byte, ids ...[]byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	for _, id := range ids {
		h.Write(id)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// balanceAccount derives the synthetic account StateDB.GetBalance/
// AddBalance/SubBalance track asset's balance for addr under, since the
// native balance boundary has no asset dimension of its own.
func balanceAccount(asset AssetID, addr common.Address) common.Address {
	return common.BytesToAddress(makeKey(balanceAcctPrefix, asset[:], addr.Bytes()).Bytes())
}

func (l *stateLedger) Initialize(state contract.StateDB, asset AssetID, name, symbol string, decimals uint8, monitorSupply bool) (BurnCap, FreezeCap, MintCap) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.meta[asset]; ok {
		panic("ledger: asset already initialized")
	}
	m := &assetMeta{Name: name, Symbol: symbol, Decimals: decimals, MonitorSupply: monitorSupply}
	l.meta[asset] = m
	l.supply[asset] = big.NewInt(0)

	state.SetState(ledgerAddr, makeKey(assetMetaPrefix, asset[:]), common.BytesToHash([]byte{1, decimals, boolByte(monitorSupply)}))
	state.SetState(ledgerAddr, makeKey(assetSupplyPrefix, asset[:]), common.Hash{})

	return BurnCap{asset: asset}, FreezeCap{asset: asset}, MintCap{asset: asset}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (l *stateLedger) IsInitialized(state contract.StateDB, asset AssetID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.meta[asset]; ok {
		return true
	}
	h := state.GetState(ledgerAddr, makeKey(assetMetaPrefix, asset[:]))
	return h != (common.Hash{})
}

func (l *stateLedger) Decimals(state contract.StateDB, asset AssetID) uint8 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if m, ok := l.meta[asset]; ok {
		return m.Decimals
	}
	return 0
}

func (l *stateLedger) Supply(state contract.StateDB, asset AssetID) (*big.Int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.meta[asset]
	if !ok || !m.MonitorSupply {
		return nil, false
	}
	if s, ok := l.supply[asset]; ok {
		return new(big.Int).Set(s), true
	}
	h := state.GetState(ledgerAddr, makeKey(assetSupplyPrefix, asset[:]))
	return new(big.Int).SetBytes(h[:]), true
}

func (l *stateLedger) addSupply(state contract.StateDB, asset AssetID, delta *big.Int) {
	s, ok := l.supply[asset]
	if !ok {
		s = big.NewInt(0)
	}
	s = new(big.Int).Add(s, delta)
	l.supply[asset] = s
	state.SetState(ledgerAddr, makeKey(assetSupplyPrefix, asset[:]), common.BigToHash(s))
}

func (l *stateLedger) Mint(state contract.StateDB, amount *big.Int, cap MintCap) Coin {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addSupply(state, cap.asset, amount)
	return Coin{Asset: cap.asset, Amount: new(big.Int).Set(amount)}
}

func (l *stateLedger) Burn(state contract.StateDB, coin Coin, cap BurnCap) {
	if coin.Asset != cap.asset {
		panic("ledger: burn cap asset mismatch")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addSupply(state, coin.Asset, new(big.Int).Neg(coin.Value()))
}

func (l *stateLedger) Balance(state contract.StateDB, asset AssetID, addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return state.GetBalance(balanceAccount(asset, addr)).ToBig()
}

func (l *stateLedger) Withdraw(state contract.StateDB, asset AssetID, addr common.Address, amount *big.Int) Coin {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := balanceAccount(asset, addr)
	if state.GetBalance(acct).ToBig().Cmp(amount) < 0 {
		panic("ledger: withdraw exceeds balance")
	}
	u, overflow := uint256.FromBig(amount)
	if overflow {
		panic("ledger: withdraw amount overflows uint256")
	}
	state.SubBalance(acct, u)
	return Coin{Asset: asset, Amount: new(big.Int).Set(amount)}
}

func (l *stateLedger) Deposit(state contract.StateDB, addr common.Address, coin Coin) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, overflow := uint256.FromBig(coin.Value())
	if overflow {
		panic("ledger: deposit amount overflows uint256")
	}
	state.AddBalance(balanceAccount(coin.Asset, addr), u)
}

func (l *stateLedger) IsRegistered(state contract.StateDB, asset AssetID, addr common.Address) bool {
	return state.Exist(addr) || !state.GetBalance(balanceAccount(asset, addr)).IsZero()
}

func (l *stateLedger) Register(state contract.StateDB, asset AssetID, addr common.Address) {
	if !state.Exist(addr) {
		state.CreateAccount(addr)
	}
}

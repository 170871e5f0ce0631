// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/launchpad/contract"
)

// fixtureStateDB is a minimal in-memory contract.StateDB, standing in for
// a real node's state database so this CLI's read-only commands can run
// standalone.
type fixtureStateDB struct {
	storage map[common.Address]map[common.Hash]common.Hash
	balance map[common.Address]*uint256.Int
	exists  map[common.Address]bool
	logs    []*types.Log
}

func newFixtureStateDB() *fixtureStateDB {
	return &fixtureStateDB{
		storage: make(map[common.Address]map[common.Hash]common.Hash),
		balance: make(map[common.Address]*uint256.Int),
		exists:  make(map[common.Address]bool),
	}
}

var _ contract.StateDB = (*fixtureStateDB)(nil)

func (f *fixtureStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	slots, ok := f.storage[addr]
	if !ok {
		return common.Hash{}
	}
	return slots[key]
}

func (f *fixtureStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	slots, ok := f.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		f.storage[addr] = slots
	}
	slots[key] = value
}

func (f *fixtureStateDB) GetBalance(addr common.Address) *uint256.Int {
	if b, ok := f.balance[addr]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

func (f *fixtureStateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	f.balance[addr] = new(uint256.Int).Add(f.GetBalance(addr), amount)
}

func (f *fixtureStateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	f.balance[addr] = new(uint256.Int).Sub(f.GetBalance(addr), amount)
}

func (f *fixtureStateDB) Exist(addr common.Address) bool {
	return f.exists[addr]
}

func (f *fixtureStateDB) CreateAccount(addr common.Address) {
	f.exists[addr] = true
}

func (f *fixtureStateDB) GetBlockNumber() uint64 {
	return 0
}

func (f *fixtureStateDB) AddLog(log *types.Log) {
	f.logs = append(f.logs, log)
}

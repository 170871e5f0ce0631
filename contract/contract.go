// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the scaffolding shared by every stateful
// precompile in this module: the state-access surface a precompile sees
// during Run, and the interfaces used to wire a precompile into the chain's
// module registry at genesis/upgrade time.
package contract

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/launchpad/precompileconfig"
)

// StateDB is the subset of the EVM state database a precompile may touch.
// Storage reads/writes are scoped to the precompile's own address; balance
// methods operate on the chain's native asset. AddLog is this module's
// event sink: every subsystem emits *types.Log records through it, giving
// an append-only, FIFO, per-address event stream.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)
	GetBlockNumber() uint64
	AddLog(log *types.Log)
}

// BlockContext carries the block-level values a precompile is allowed to
// observe: the block number (for block-indexed schedules) and the block
// timestamp in seconds (for wall-clock schedules, which is all this module
// uses — see package clock).
type BlockContext interface {
	Number() *big.Int
	Time() uint64
}

// ConfigurationBlockContext is the (possibly narrower) block context
// available at Configure time, before a block is fully assembled.
type ConfigurationBlockContext interface {
	Time() uint64
}

// AccessibleState is what a StatefulPrecompiledContract's Run method
// receives: a handle to chain state and the current block context.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
}

// StatefulPrecompiledContract is the interface every precompile in this
// module implements, mirroring the EVM's native precompile ABI
// (input/suppliedGas in, ret/remainingGas/err out) plus a read-only flag so
// static calls can reject state mutation.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)

	RequiredGas(input []byte) uint64
}

// Configurator applies a precompile's genesis/upgrade configuration to
// chain state the first time the precompile activates.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		cfg precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}

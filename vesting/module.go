// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vesting

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/crypto"
	log "github.com/luxfi/log"

	"github.com/luxfi/launchpad/clock"
	"github.com/luxfi/launchpad/contract"
	"github.com/luxfi/launchpad/modules"
	"github.com/luxfi/launchpad/precompileconfig"
	"github.com/luxfi/launchpad/supply"
)

// logger is used only at Configure/module-init time, never in the Run hot
// path, mirroring threshold/client.go's one-logger-per-component idiom.
var logger = log.NewTestLogger(log.InfoLevel)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*Contract)(nil)

// ConfigKey is the key used in genesis/upgrade config files for this module.
const ConfigKey = "vestingConfig"

// ContractAddress is where the vesting precompile lives (LP-C100 series).
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000c100")

const (
	SelectorInitializeAllocation uint32 = 0x01000000
	SelectorPendingClaim         uint32 = 0x02000000
	SelectorClaim                uint32 = 0x03000000
)

const (
	GasInitializeAllocation uint64 = 40_000
	GasPendingClaim         uint64 = 2_100
	GasClaim                uint64 = 20_000
)

// Precompile is the singleton instance; its controller shares supply's
// ledger and the supply controller's HOU MintCap, both bound at Configure
// time.
var Precompile = &Contract{}

// Module is this precompile's registration record.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     Precompile,
	Configurator: &configurator{},
}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// Contract implements the allocation vester as a stateful precompile.
type Contract struct {
	controller *Controller
}

type configurator struct{}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}

	c := clock.Fixed(blockContext.Time())
	supply.Precompile.Controller().InitializeCoin(state, config.Admin)

	Precompile.controller = NewController(supply.SharedLedger, c, supply.Precompile.Controller().MintCap())
	if config.Admin != (common.Address{}) {
		if err := Precompile.controller.InitializeAllocation(config.Admin); err != nil && err != ErrAllocationAlreadyInit {
			return err
		}
		logger.Info("vesting module configured", "admin", config.Admin)
	}
	return nil
}

// Config implements precompileconfig.Config for the vesting module.
type Config struct {
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Admin   common.Address           `json:"admin,omitempty"`
}

func (c *Config) Key() string        { return ConfigKey }
func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }
func (c *Config) IsDisabled() bool   { return c.Upgrade.Disable }

func (c *Config) Equal(other precompileconfig.Config) bool {
	o, ok := other.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&o.Upgrade) && c.Admin == o.Admin
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return nil
}

func (c *Contract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, fmt.Errorf("input too short")
	}
	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]
	state := accessibleState.GetStateDB()
	c.controller.clock = clock.FromBlockContext{BlockContext: accessibleState.GetBlockContext()}

	switch selector {
	case SelectorInitializeAllocation:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasInitializeAllocation {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		if caller != admin {
			return nil, suppliedGas - GasInitializeAllocation, ErrNotOwner
		}
		if err := c.controller.InitializeAllocation(admin); err != nil {
			return nil, suppliedGas - GasInitializeAllocation, err
		}
		return nil, suppliedGas - GasInitializeAllocation, nil

	case SelectorPendingClaim:
		if suppliedGas < GasPendingClaim {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		poolID := int(new(big.Int).SetBytes(data[32:64]).Int64())
		pending, err := c.controller.PendingClaim(admin, poolID)
		if err != nil {
			return nil, suppliedGas - GasPendingClaim, err
		}
		return common.LeftPadBytes(pending.Bytes(), 32), suppliedGas - GasPendingClaim, nil

	case SelectorClaim:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasClaim {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		if caller != admin {
			return nil, suppliedGas - GasClaim, ErrNotOwner
		}
		poolID := int(new(big.Int).SetBytes(data[32:64]).Int64())
		amount := new(big.Int).SetBytes(data[64:96])
		to := common.BytesToAddress(data[96:128])
		ev, err := c.controller.Claim(state, admin, poolID, amount, to)
		if err != nil {
			return nil, suppliedGas - GasClaim, err
		}
		emitVestingEvent(state, addr, ev)
		return common.LeftPadBytes(ev.Amount.Bytes(), 32), suppliedGas - GasClaim, nil

	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

// RequiredGas returns the flat gas cost for input's selector.
func (c *Contract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	switch binary.BigEndian.Uint32(input[:4]) {
	case SelectorInitializeAllocation:
		return GasInitializeAllocation
	case SelectorPendingClaim:
		return GasPendingClaim
	case SelectorClaim:
		return GasClaim
	default:
		return 0
	}
}

var vestingEventSig = crypto.Keccak256Hash([]byte("VestingEvent(uint64,uint256,address)"))

func emitVestingEvent(state contract.StateDB, addr common.Address, ev VestingEvent) {
	data := make([]byte, 0, 96)
	data = append(data, common.LeftPadBytes(new(big.Int).SetUint64(ev.PoolID).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(ev.Amount.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(ev.To.Bytes(), 32)...)
	state.AddLog(&types.Log{
		Address: addr,
		Topics:  []common.Hash{vestingEventSig},
		Data:    data,
	})
}

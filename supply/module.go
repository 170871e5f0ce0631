// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supply

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
	"github.com/luxfi/launchpad/ledger"
	"github.com/luxfi/launchpad/modules"
	"github.com/luxfi/launchpad/precompileconfig"
)

// logger is used only at Configure/module-init time, never in the Run hot
// path, mirroring threshold/client.go's one-logger-per-component idiom.
var logger = log.NewTestLogger(log.InfoLevel)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*Contract)(nil)

// ConfigKey is the key used in genesis/upgrade config files for this module.
const ConfigKey = "supplyConfig"

// ContractAddress is where the supply precompile lives (LP-C000 series).
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000c000")

// Method selectors, following dex/module.go's 4-byte big-endian scheme.
const (
	SelectorInitializeCoin    uint32 = 0x01000000
	SelectorInitializeMining  uint32 = 0x02000000
	SelectorPendingSupply     uint32 = 0x03000000
	SelectorMint              uint32 = 0x04000000
	SelectorManualBurn        uint32 = 0x05000000
)

// Gas costs, modeled on dex's flat per-operation gas schedule.
const (
	GasInitializeCoin   uint64 = 30_000
	GasInitializeMining uint64 = 20_000
	GasPendingSupply    uint64 = 2_100
	GasMint             uint64 = 15_000
	GasManualBurn       uint64 = 15_000
)

// SharedLedger is the ledger instance every precompile in this module binds
// to; it is a package variable (not a per-contract field) because supply,
// vesting and ido all address the same underlying asset accounting.
var SharedLedger = ledger.New()

// Precompile is the singleton instance registered into the module registry.
var Precompile = &Contract{
	controller: NewController(SharedLedger, nil),
}

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

// Contract implements the supply controller as a stateful precompile.
type Contract struct {
	controller *Controller
}

// Controller exposes the underlying business logic so sibling modules
// (vesting) can share the supply module's ledger handle and HOU caps.
func (c *Contract) Controller() *Controller {
	return c.controller
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
	if config.Admin != (common.Address{}) {
		Precompile.controller.clock = clock.Fixed(blockContext.Time())
		Precompile.controller.InitializeCoin(state, config.Admin)
		logger.Info("supply module configured", "admin", config.Admin, "autoStartMining", config.AutoStartMining)
		if config.AutoStartMining {
			if err := Precompile.controller.InitializeMining(state, config.Admin); err != nil {
				return err
			}
		}
	}
	return nil
}

// Config implements precompileconfig.Config for the supply module.
type Config struct {
	Upgrade         precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Admin           common.Address           `json:"admin,omitempty"`
	AutoStartMining bool                     `json:"autoStartMining,omitempty"`
}

func (c *Config) Key() string      { return ConfigKey }
func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }
func (c *Config) IsDisabled() bool { return c.Upgrade.Disable }

func (c *Config) Equal(other precompileconfig.Config) bool {
	o, ok := other.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&o.Upgrade) && c.Admin == o.Admin && c.AutoStartMining == o.AutoStartMining
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return nil
}

// Run dispatches a 4-byte selector plus ABI-ish payload to the controller.
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
	case SelectorInitializeCoin:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasInitializeCoin {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		if caller != admin {
			return nil, suppliedGas - GasInitializeCoin, ErrNotOwner
		}
		c.controller.InitializeCoin(state, admin)
		return nil, suppliedGas - GasInitializeCoin, nil

	case SelectorInitializeMining:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasInitializeMining {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		if caller != admin {
			return nil, suppliedGas - GasInitializeMining, ErrNotOwner
		}
		if err := c.controller.InitializeMining(state, admin); err != nil {
			return nil, suppliedGas - GasInitializeMining, err
		}
		return nil, suppliedGas - GasInitializeMining, nil

	case SelectorPendingSupply:
		if suppliedGas < GasPendingSupply {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		pending, err := c.controller.PendingSupply(admin)
		if err != nil {
			return nil, suppliedGas - GasPendingSupply, err
		}
		return common.LeftPadBytes(pending.Bytes(), 32), suppliedGas - GasPendingSupply, nil

	case SelectorMint:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasMint {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		if caller != admin {
			return nil, suppliedGas - GasMint, ErrNotOwner
		}
		amount := new(big.Int).SetBytes(data[32:64])
		mintCap, err := c.controller.AuthorizeMining(admin)
		if err != nil {
			return nil, suppliedGas - GasMint, err
		}
		coin, err := c.controller.Mint(state, admin, mintCap, amount)
		if err != nil {
			return nil, suppliedGas - GasMint, err
		}
		c.controller.ledger.Deposit(state, caller, coin)
		return common.LeftPadBytes(coin.Amount.Bytes(), 32), suppliedGas - GasMint, nil

	case SelectorManualBurn:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasManualBurn {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := common.BytesToAddress(data[:32])
		if caller != admin {
			return nil, suppliedGas - GasManualBurn, ErrNotOwner
		}
		amount := new(big.Int).SetBytes(data[32:64])
		ev, err := c.controller.ManualBurn(state, admin, amount)
		if err != nil {
			return nil, suppliedGas - GasManualBurn, err
		}
		emitManualBurn(state, addr, ev)
		return nil, suppliedGas - GasManualBurn, nil

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
	case SelectorInitializeCoin:
		return GasInitializeCoin
	case SelectorInitializeMining:
		return GasInitializeMining
	case SelectorPendingSupply:
		return GasPendingSupply
	case SelectorMint:
		return GasMint
	case SelectorManualBurn:
		return GasManualBurn
	default:
		return 0
	}
}

var manualBurnEventSig = crypto.Keccak256Hash([]byte("ManualBurnEvent(uint256)"))

func emitManualBurn(state contract.StateDB, addr common.Address, ev ManualBurnEvent) {
	state.AddLog(&types.Log{
		Address: addr,
		Topics:  []common.Hash{manualBurnEventSig},
		Data:    common.LeftPadBytes(ev.Amount.Bytes(), 32),
	})
}

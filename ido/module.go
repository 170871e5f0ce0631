// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ido

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
	"github.com/luxfi/launchpad/supply"
)

// logger is used only at Configure/module-init time, never in the Run hot
// path, mirroring threshold/client.go's one-logger-per-component idiom.
var logger = log.NewTestLogger(log.InfoLevel)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*Contract)(nil)

// ConfigKey is the key used in genesis/upgrade config files for this module.
const ConfigKey = "idoConfig"

// ContractAddress is where the IDO precompile lives (LP-C200 series).
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000c200")

// Method selectors, following dex/module.go's 4-byte big-endian scheme.
// Each word below is a 32-byte ABI-style slot unless noted.
const (
	SelectorCreateLaunch      uint32 = 0x01000000
	SelectorAddVesting        uint32 = 0x02000000
	SelectorAddPaymentTokens  uint32 = 0x03000000
	SelectorDeposit           uint32 = 0x04000000
	SelectorDepositWithCap    uint32 = 0x05000000
	SelectorClaim             uint32 = 0x06000000
	SelectorWithdrawPayment   uint32 = 0x07000000
	SelectorRequestCap        uint32 = 0x08000000
	SelectorIsIDOStarted      uint32 = 0x09000000
)

const (
	GasCreateLaunch     uint64 = 60_000
	GasAddVesting       uint64 = 10_000
	GasAddPaymentTokens uint64 = 20_000
	GasDeposit          uint64 = 25_000
	GasClaim            uint64 = 30_000
	GasWithdrawPayment  uint64 = 25_000
	GasRequestCap       uint64 = 5_000
	GasIsIDOStarted     uint64 = 2_100
)

// Precompile is the singleton instance.
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

// Contract implements the IDO engine as a stateful precompile.
type Contract struct {
	controller *Controller
}

// Ledger is set by Configure to the shared accounting ledger used across
// supply/vesting/ido, mirroring dex's shared poolManager reference. It
// defaults to supply's SharedLedger so an offered asset L can be HOU itself
// without a second, disjoint balance namespace.
var Ledger ledger.Ledger

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
	_, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	if Ledger == nil {
		Ledger = supply.SharedLedger
	}
	Precompile.controller = NewController(Ledger, clock.Fixed(blockContext.Time()))
	logger.Info("ido module configured")
	return nil
}

// Config implements precompileconfig.Config for the IDO module. It carries
// no fields of its own: every pool is created at runtime via CreateLaunch.
type Config struct {
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
}

func (c *Config) Key() string        { return ConfigKey }
func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }
func (c *Config) IsDisabled() bool   { return c.Upgrade.Disable }

func (c *Config) Equal(other precompileconfig.Config) bool {
	o, ok := other.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&o.Upgrade)
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return nil
}

func readAddress(data []byte, word int) common.Address {
	return common.BytesToAddress(data[word*32 : word*32+32])
}

func readAsset(data []byte, word int) ledger.AssetID {
	return ledger.AssetID(readAddress(data, word))
}

func readUint(data []byte, word int) *big.Int {
	return new(big.Int).SetBytes(data[word*32 : word*32+32])
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
	case SelectorCreateLaunch:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasCreateLaunch {
			return nil, 0, fmt.Errorf("out of gas")
		}
		// words: admin, treasury, payment, offered, start, end, distribute,
		// totalOfferCoins, salePrice, maxRaised, maxRaisedPerUser
		admin := readAddress(data, 0)
		if caller != admin {
			return nil, suppliedGas - GasCreateLaunch, ErrNotOwner
		}
		treasury := readAddress(data, 1)
		payment := readAsset(data, 2)
		offered := readAsset(data, 3)
		start := readUint(data, 4).Uint64()
		end := readUint(data, 5).Uint64()
		distribute := readUint(data, 6).Uint64()
		totalOfferCoins := readUint(data, 7)
		salePrice := readUint(data, 8)
		maxRaised := readUint(data, 9)
		maxRaisedPerUser := readUint(data, 10)

		ev, err := c.controller.CreateLaunch(state, admin, treasury, payment, offered, start, end, distribute, totalOfferCoins, salePrice, maxRaised, maxRaisedPerUser)
		if err != nil {
			return nil, suppliedGas - GasCreateLaunch, err
		}
		emitPoolCreated(state, addr, ev)
		return nil, suppliedGas - GasCreateLaunch, nil

	case SelectorAddVesting:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasAddVesting {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		if caller != admin {
			return nil, suppliedGas - GasAddVesting, ErrNotOwner
		}
		offered := readAsset(data, 1)
		tgePercent := readUint(data, 2)
		vestingInterval := readUint(data, 3).Uint64()
		totalVestingTime := readUint(data, 4).Uint64()
		if err := c.controller.AddVesting(admin, offered, tgePercent, vestingInterval, totalVestingTime); err != nil {
			return nil, suppliedGas - GasAddVesting, err
		}
		return nil, suppliedGas - GasAddVesting, nil

	case SelectorAddPaymentTokens:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasAddPaymentTokens {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		if caller != admin {
			return nil, suppliedGas - GasAddPaymentTokens, ErrNotOwner
		}
		offered := readAsset(data, 1)
		payment := readAsset(data, 2)
		if err := c.controller.AddPaymentTokens(state, admin, offered, payment); err != nil {
			return nil, suppliedGas - GasAddPaymentTokens, err
		}
		return nil, suppliedGas - GasAddPaymentTokens, nil

	case SelectorDeposit, SelectorDepositWithCap:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasDeposit {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		offered := readAsset(data, 1)
		payment := readAsset(data, 2)
		amount := readUint(data, 3)

		var deposited, subscribed *big.Int
		var derr error
		if selector == SelectorDepositWithCap {
			deposited, subscribed, derr = c.controller.DepositWithCap(state, admin, caller, offered, payment, amount, SubscribeCapability{})
		} else {
			deposited, subscribed, derr = c.controller.Deposit(state, admin, caller, offered, payment, amount)
		}
		if derr != nil {
			return nil, suppliedGas - GasDeposit, derr
		}
		emitDeposit(state, addr, DepositEvent{User: caller, Amount: deposited, PaymentAsset: payment})
		return common.LeftPadBytes(subscribed.Bytes(), 32), suppliedGas - GasDeposit, nil

	case SelectorClaim:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasClaim {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		offered := readAsset(data, 1)
		payment := readAsset(data, 2)
		ev, err := c.controller.Claim(state, admin, caller, offered, payment)
		if err != nil {
			return nil, suppliedGas - GasClaim, err
		}
		if ev.Claimed != nil && ev.Claimed.Sign() > 0 {
			emitClaim(state, addr, ev)
		}
		return nil, suppliedGas - GasClaim, nil

	case SelectorWithdrawPayment:
		if readOnly {
			return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
		}
		if suppliedGas < GasWithdrawPayment {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		offered := readAsset(data, 1)
		payment := readAsset(data, 2)
		ev, err := c.controller.WithdrawPayment(state, admin, caller, offered, payment)
		if err != nil {
			return nil, suppliedGas - GasWithdrawPayment, err
		}
		emitWithdrawPayment(state, addr, ev)
		return nil, suppliedGas - GasWithdrawPayment, nil

	case SelectorRequestCap:
		if suppliedGas < GasRequestCap {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		if caller != admin {
			return nil, suppliedGas - GasRequestCap, ErrNotOwner
		}
		offered := readAsset(data, 1)
		if _, err := c.controller.RequestCap(admin, offered); err != nil {
			return nil, suppliedGas - GasRequestCap, err
		}
		return nil, suppliedGas - GasRequestCap, nil

	case SelectorIsIDOStarted:
		if suppliedGas < GasIsIDOStarted {
			return nil, 0, fmt.Errorf("out of gas")
		}
		admin := readAddress(data, 0)
		offered := readAsset(data, 1)
		started := c.controller.IsIDOStarted(admin, offered)
		result := make([]byte, 32)
		if started {
			result[31] = 1
		}
		return result, suppliedGas - GasIsIDOStarted, nil

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
	case SelectorCreateLaunch:
		return GasCreateLaunch
	case SelectorAddVesting:
		return GasAddVesting
	case SelectorAddPaymentTokens:
		return GasAddPaymentTokens
	case SelectorDeposit, SelectorDepositWithCap:
		return GasDeposit
	case SelectorClaim:
		return GasClaim
	case SelectorWithdrawPayment:
		return GasWithdrawPayment
	case SelectorRequestCap:
		return GasRequestCap
	case SelectorIsIDOStarted:
		return GasIsIDOStarted
	default:
		return 0
	}
}

var (
	poolCreatedEventSig      = crypto.Keccak256Hash([]byte("PoolCreatedEvent(address,uint256,uint256,uint256)"))
	depositEventSig          = crypto.Keccak256Hash([]byte("DepositEvent(address,uint256,address)"))
	claimEventSig            = crypto.Keccak256Hash([]byte("ClaimEvent(address,uint256)"))
	withdrawPaymentEventSig  = crypto.Keccak256Hash([]byte("WithdrawPaymentEvent(address,uint256,address)"))
)

func emitPoolCreated(state contract.StateDB, addr common.Address, ev PoolCreatedEvent) {
	data := append(common.LeftPadBytes(ev.TotalDistributeAmt.Bytes(), 32), common.LeftPadBytes(ev.MaxRaised.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(ev.SalePrice.Bytes(), 32)...)
	state.AddLog(&types.Log{
		Address: addr,
		Topics:  []common.Hash{poolCreatedEventSig, common.BytesToHash(ev.Offered[:])},
		Data:    data,
	})
}

func emitDeposit(state contract.StateDB, addr common.Address, ev DepositEvent) {
	data := append(common.LeftPadBytes(ev.Amount.Bytes(), 32), common.LeftPadBytes(ev.PaymentAsset[:], 32)...)
	state.AddLog(&types.Log{
		Address: addr,
		Topics:  []common.Hash{depositEventSig, common.BytesToHash(ev.User[:])},
		Data:    data,
	})
}

func emitClaim(state contract.StateDB, addr common.Address, ev ClaimEvent) {
	state.AddLog(&types.Log{
		Address: addr,
		Topics:  []common.Hash{claimEventSig, common.BytesToHash(ev.User[:])},
		Data:    common.LeftPadBytes(ev.Claimed.Bytes(), 32),
	})
}

func emitWithdrawPayment(state contract.StateDB, addr common.Address, ev WithdrawPaymentEvent) {
	data := append(common.LeftPadBytes(ev.Amount.Bytes(), 32), common.LeftPadBytes(ev.PaymentAsset[:], 32)...)
	state.AddLog(&types.Log{
		Address: addr,
		Topics:  []common.Hash{withdrawPaymentEventSig, common.BytesToHash(ev.To[:])},
		Data:    data,
	})
}

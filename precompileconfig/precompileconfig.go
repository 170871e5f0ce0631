// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the genesis/upgrade configuration
// surface shared by every precompile module: a JSON-tagged Config struct
// per subsystem, keyed by ConfigKey, activated/deactivated through the
// embedded Upgrade helper.
package precompileconfig

import "github.com/luxfi/geth/common"

// Config is implemented by each precompile's own Config struct
// (supply.Config, vesting.Config, ido.Config, ...).
type Config interface {
	// Key returns the JSON key this config is registered under.
	Key() string
	// Timestamp returns the activation time, or nil if always active.
	Timestamp() *uint64
	// IsDisabled reports whether this upgrade disables the precompile.
	IsDisabled() bool
	// Equal reports whether two configs of the same type are identical.
	Equal(Config) bool
	// Verify checks the config is internally consistent for chainConfig.
	Verify(chainConfig ChainConfig) error
}

// ChainConfig is the minimal slice of chain configuration a Config.Verify
// or Configurator.Configure needs.
type ChainConfig interface {
	IsPrecompileEnabled(address common.Address, timestamp uint64) bool
}

// Upgrade is the shared activation/deactivation helper every subsystem's
// Config embeds, following dex.Config / dead.Config in the teacher.
type Upgrade struct {
	// BlockTimestamp is the activation time of this upgrade; nil means the
	// precompile is active from genesis.
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	// Disable, if true, deactivates the precompile as of BlockTimestamp.
	Disable bool `json:"disable,omitempty"`
}

// Timestamp returns the upgrade's activation time.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal reports whether two Upgrades describe the same activation.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	if u.BlockTimestamp != nil && *u.BlockTimestamp != *other.BlockTimestamp {
		return false
	}
	return true
}

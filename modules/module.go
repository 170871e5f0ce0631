// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/launchpad/contract"
)

// Module ties a precompile's genesis address to its implementation and its
// configurator, and is keyed by ConfigKey in the genesis/upgrade JSON.
type Module struct {
	ConfigKey    string
	Address      common.Address
	Contract     contract.StatefulPrecompiledContract
	Configurator contract.Configurator
}

// moduleArray implements sort.Interface so registeredModules can be kept
// ordered by address for deterministic iteration.
type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address[:], m[j].Address[:]) < 0
}

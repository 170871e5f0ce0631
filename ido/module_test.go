// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ido

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/launchpad/contract"
)

type mockBlockContext struct{ now uint64 }

func (m mockBlockContext) Number() *big.Int { return big.NewInt(0) }
func (m mockBlockContext) Time() uint64     { return m.now }

type mockAccessibleState struct {
	state contract.StateDB
	block contract.BlockContext
}

func (m mockAccessibleState) GetStateDB() contract.StateDB          { return m.state }
func (m mockAccessibleState) GetBlockContext() contract.BlockContext { return m.block }

func selectorInput(selector uint32, words ...[]byte) []byte {
	input := make([]byte, 4)
	binary.BigEndian.PutUint32(input, selector)
	for _, w := range words {
		input = append(input, common.LeftPadBytes(w, 32)...)
	}
	return input
}

func (h *testHarness) asAccessibleState() *mockAccessibleState {
	return &mockAccessibleState{state: h.state, block: mockBlockContext{now: h.c.clock.Now()}}
}

func TestRunCreateLaunchRejectsCallerAdminMismatch(t *testing.T) {
	h := newHarness(t, 0)
	h.fund(assetL, testAdmin, big.NewInt(1_000_000))
	c := &Contract{controller: h.c}
	as := h.asAccessibleState()

	input := selectorInput(SelectorCreateLaunch,
		testAdmin.Bytes(), testTreasury.Bytes(), assetUSDT[:], assetL[:],
		big.NewInt(10).Bytes(), big.NewInt(20).Bytes(), big.NewInt(30).Bytes(),
		big.NewInt(1_000).Bytes(), big.NewInt(1_000_000_000_000_000).Bytes(),
		big.NewInt(0).Bytes(), big.NewInt(1_000_000_000).Bytes())

	_, _, err := c.Run(as, testAlice, ContractAddress, input, GasCreateLaunch, false)
	require.ErrorIs(t, err, ErrNotOwner)
	_, ok := h.c.pools[poolKey{testAdmin, assetL}]
	require.False(t, ok)
}

func TestRunAddVestingRejectsCallerAdminMismatch(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)
	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	c := &Contract{controller: h.c}
	as := h.asAccessibleState()
	input := selectorInput(SelectorAddVesting, testAdmin.Bytes(), assetL[:],
		big.NewInt(1_000).Bytes(), big.NewInt(OneMonthSeconds).Bytes(), big.NewInt(3*OneMonthSeconds).Bytes())

	_, _, err = c.Run(as, testAlice, ContractAddress, input, GasAddVesting, false)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestRunAddPaymentTokensRejectsCallerAdminMismatch(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)
	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	c := &Contract{controller: h.c}
	as := h.asAccessibleState()
	input := selectorInput(SelectorAddPaymentTokens, testAdmin.Bytes(), assetL[:], assetABC[:])

	_, _, err = c.Run(as, testAlice, ContractAddress, input, GasAddPaymentTokens, false)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestRunRequestCapRejectsCallerAdminMismatch(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)
	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	c := &Contract{controller: h.c}
	as := h.asAccessibleState()
	input := selectorInput(SelectorRequestCap, testAdmin.Bytes(), assetL[:])

	_, _, err = c.Run(as, testAlice, ContractAddress, input, GasRequestCap, false)
	require.ErrorIs(t, err, ErrNotOwner)
}

// TestRunDepositEventReflectsTruncatedAmount covers the fixed-cap partial
// fill path: the DepositEvent must carry the amount actually withdrawn from
// the user, not the raw calldata amount that exceeds the pool's remaining
// capacity.
func TestRunDepositEventReflectsTruncatedAmount(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1_000_000_000)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(2_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	c := &Contract{controller: h.c}
	h.setNow(1)
	as := h.asAccessibleState()

	requested := big.NewInt(2_000_000_000) // double the pool's entire cap
	input := selectorInput(SelectorDeposit, testAdmin.Bytes(), assetL[:], assetUSDT[:], requested.Bytes())

	_, _, err = c.Run(as, testAlice, ContractAddress, input, GasDeposit, false)
	require.NoError(t, err)

	require.Len(t, h.state.logs, 1)
	data := h.state.logs[0].Data
	emitted := new(big.Int).SetBytes(data[:32])
	require.Equal(t, maxRaised, emitted, "DepositEvent.Amount must be the truncated deposit, not the requested amount")

	// the user was only ever debited the truncated amount
	require.Equal(t, new(big.Int).Sub(big.NewInt(2_000_000_000), maxRaised), h.l.Balance(h.state, assetUSDT, testAlice))
}

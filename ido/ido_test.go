// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ido

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/launchpad/clock"
	"github.com/luxfi/launchpad/ledger"
)

type mockStateDB struct {
	storage map[common.Address]map[common.Hash]common.Hash
	balance map[common.Address]*uint256.Int
	exists  map[common.Address]bool
	logs    []*types.Log
}

func newMockStateDB() *mockStateDB {
	return &mockStateDB{
		storage: make(map[common.Address]map[common.Hash]common.Hash),
		balance: make(map[common.Address]*uint256.Int),
		exists:  make(map[common.Address]bool),
	}
}

func (m *mockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *mockStateDB) SetState(addr common.Address, key, value common.Hash) {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	m.storage[addr][key] = value
}

func (m *mockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if b, ok := m.balance[addr]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

func (m *mockStateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	m.balance[addr] = new(uint256.Int).Add(m.GetBalance(addr), amount)
}

func (m *mockStateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	m.balance[addr] = new(uint256.Int).Sub(m.GetBalance(addr), amount)
}

func (m *mockStateDB) Exist(addr common.Address) bool { return m.exists[addr] }

func (m *mockStateDB) CreateAccount(addr common.Address) { m.exists[addr] = true }

func (m *mockStateDB) GetBlockNumber() uint64 { return 0 }

func (m *mockStateDB) AddLog(log *types.Log) { m.logs = append(m.logs, log) }

var (
	testAdmin    = common.HexToAddress("0xA4A4000000000000000000000000000000000A")
	testTreasury = common.HexToAddress("0xA5A5000000000000000000000000000000000A")
	testAlice    = common.HexToAddress("0xA6A6000000000000000000000000000000000A")
	testBob      = common.HexToAddress("0xA7A7000000000000000000000000000000000A")

	assetL    = ledger.AssetID(common.HexToAddress("0xAE01000000000000000000000000000000000A"))
	assetUSDT = ledger.AssetID(common.HexToAddress("0xAE02000000000000000000000000000000000A"))
	assetABC  = ledger.AssetID(common.HexToAddress("0xAE03000000000000000000000000000000000A"))
)

// testHarness wires a Controller to a real ledger with L, USDT and ABC
// already initialized and funded, mirroring the on-chain fixture the spec's
// end-to-end scenarios assume.
type testHarness struct {
	t     *testing.T
	l     ledger.Ledger
	state *mockStateDB
	c     *Controller
}

func newHarness(t *testing.T, now uint64) *testHarness {
	l := ledger.New()
	state := newMockStateDB()
	l.Initialize(state, assetL, "Offered", "L", 8, true)
	l.Initialize(state, assetUSDT, "USDT", "USDT", 8, true)
	l.Initialize(state, assetABC, "ABC", "ABC", 8, true)
	state.CreateAccount(testTreasury)
	state.CreateAccount(testAdmin)

	h := &testHarness{t: t, l: l, state: state, c: NewController(l, clock.Fixed(now))}
	return h
}

func (h *testHarness) fund(asset ledger.AssetID, to common.Address, amount *big.Int) {
	h.l.Deposit(h.state, to, ledger.Coin{Asset: asset, Amount: amount})
}

func (h *testHarness) setNow(now uint64) {
	h.c.clock = clock.Fixed(now)
}

func TestCreateLaunchRejectsBadTimeOrder(t *testing.T) {
	h := newHarness(t, 0)
	h.fund(assetL, testAdmin, big.NewInt(1_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		100, 50, 200, big.NewInt(1_000), big.NewInt(1_000_000_000_000_000), big.NewInt(0), big.NewInt(1_000_000_000))
	require.ErrorIs(t, err, ErrTimeOrder)
}

func TestCreateLaunchNormalizesFixedCapMaxRaised(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000) // 10^12
	price := big.NewInt(1_000_000_000_000_000) // 10^15
	h.fund(assetL, testAdmin, offer)

	ev, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		10, 20, 30, offer, price, big.NewInt(1), big.NewInt(1_000_000_000))
	require.NoError(t, err)

	// maxRaised normalized: floor(PricePrecision * offer / price)
	expected := new(big.Int).Mul(PricePrecision, offer)
	expected.Div(expected, price)
	require.Equal(t, expected, ev.MaxRaised)

	// the invariant the spec calls out: maxRaised*price/PricePrecision == offer
	check := new(big.Int).Mul(ev.MaxRaised, price)
	check.Div(check, PricePrecision)
	require.Equal(t, offer, check)
}

func TestPerUserCapEnforcedOnPublicDepositOnly(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(10_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, big.NewInt(1_000_000_000), big.NewInt(100))
	require.NoError(t, err)

	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(200))
	require.ErrorIs(t, err, ErrCap)

	// capability path bypasses the per-user cap entirely
	_, _, err = h.c.DepositWithCap(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(200), SubscribeCapability{})
	require.NoError(t, err)
}

func TestFixedCapNoVestingSale(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000) // 10^12
	price := big.NewInt(1_000_000_000_000_000) // 10^15
	maxRaised := big.NewInt(1_000_000_000) // 10^9
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(500_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(500_000_000))
	require.NoError(t, err)

	h.setNow(200)
	ev, err := h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500_000_000_000), ev.Claimed)

	pool := h.c.pools[poolKey{testAdmin, assetL}]
	require.Equal(t, new(big.Int).Sub(offer, ev.Claimed), pool.OfferCoins)

	// no refund: Alice's USDT balance is unchanged by the claim
	require.Zero(t, h.l.Balance(h.state, assetUSDT, testAlice).Sign())
}

func TestFixedCapNeverRefunds(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1_000_000_000)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(1_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(1_000_000_000))
	require.NoError(t, err)

	before := h.l.Balance(h.state, assetUSDT, testAlice)
	h.setNow(200)
	_, err = h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	after := h.l.Balance(h.state, assetUSDT, testAlice)
	require.Equal(t, before, after)
}

func TestOverflowModeRefundAndConservation(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000) // 10^12
	price := big.NewInt(1_000_000_000_000_000) // 10^15
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(1_000_000_000_000))
	h.fund(assetUSDT, testBob, big.NewInt(1_000_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, big.NewInt(0), big.NewInt(3_000_000_000_000))
	require.NoError(t, err)

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(1_000_000_000_000))
	require.NoError(t, err)
	h.setNow(11)
	_, _, err = h.c.Deposit(h.state, testAdmin, testBob, assetL, assetUSDT, big.NewInt(1_000_000_000_000))
	require.NoError(t, err)

	h.setNow(200)
	aliceBefore := h.l.Balance(h.state, assetUSDT, testAlice)
	ev, err := h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500_000_000_000), ev.Claimed) // floor(10^12*10^12/(2*10^12))

	aliceAfter := h.l.Balance(h.state, assetUSDT, testAlice)
	refund := new(big.Int).Sub(aliceAfter, aliceBefore)
	require.True(t, refund.Sign() > 0, "oversubscribed deposit must be partially refunded")

	evBob, err := h.c.Claim(h.state, testAdmin, testBob, assetL, assetUSDT)
	require.NoError(t, err)

	totalClaimed := new(big.Int).Add(ev.Claimed, evBob.Claimed)
	require.True(t, totalClaimed.Cmp(offer) <= 0)
}

func TestOverflowTwoPaymentTokens(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	h.fund(assetL, testAdmin, offer)

	aliceDep := big.NewInt(1_000_000_000_000)
	bobDep := new(big.Int).Div(aliceDep, big.NewInt(10))
	h.fund(assetUSDT, testAlice, aliceDep)
	h.fund(assetABC, testAlice, aliceDep)
	h.fund(assetUSDT, testBob, bobDep)

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, big.NewInt(0), new(big.Int).Mul(big.NewInt(10), aliceDep))
	require.NoError(t, err)
	require.NoError(t, h.c.AddPaymentTokens(h.state, testAdmin, assetL, assetABC))

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, aliceDep)
	require.NoError(t, err)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetABC, aliceDep)
	require.NoError(t, err)
	_, _, err = h.c.Deposit(h.state, testAdmin, testBob, assetL, assetUSDT, bobDep)
	require.NoError(t, err)

	h.setNow(200)
	usdtBefore := h.l.Balance(h.state, assetUSDT, testAlice)
	_, err = h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	usdtAfter := h.l.Balance(h.state, assetUSDT, testAlice)
	require.True(t, usdtAfter.Cmp(usdtBefore) > 0, "Alice's USDT deposit is oversubscribed and must be partially refunded")

	abcBefore := h.l.Balance(h.state, assetABC, testAlice)
	ev, err := h.c.Claim(h.state, testAdmin, testAlice, assetL, assetABC)
	require.NoError(t, err)
	abcAfter := h.l.Balance(h.state, assetABC, testAlice)
	require.True(t, abcAfter.Cmp(abcBefore) > 0, "Alice's ABC deposit is oversubscribed and must be partially refunded")
	require.Zero(t, ev.Claimed.Sign(), "L entitlement is locked on first claim only, second claim call mints nothing more")
}

func TestVestingTenPercentTGEOverThreeMonths(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1_000_000_000)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(1_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		1, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)
	require.NoError(t, h.c.AddVesting(testAdmin, assetL, big.NewInt(1_000), OneMonthSeconds, 3*OneMonthSeconds))

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(1_000_000_000))
	require.NoError(t, err)

	entitled := entitlementFor(price, big.NewInt(1_000_000_000))

	h.setNow(200)
	ev, err := h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	tge := new(big.Int).Div(entitled, big.NewInt(10))
	require.Equal(t, tge, ev.Claimed)

	h.setNow(200 + OneMonthSeconds)
	ev, err = h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	left := new(big.Int).Sub(entitled, tge)
	thirtyPct := new(big.Int).Div(left, big.NewInt(3))
	require.Equal(t, thirtyPct, ev.Claimed)

	h.setNow(200 + 3*OneMonthSeconds)
	_, err = h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)

	u := h.c.users[userKey{testAdmin, assetL, testAlice}]
	require.Equal(t, entitled, u.Claimed)
}

func TestClaimNeverExceedsOfferEscrow(t *testing.T) {
	// IDO's offer coin pool is a finite escrow, separate from supply's mint
	// cap, but claim must still never extract beyond the escrowed amount.
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(1))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(1))
	require.NoError(t, err)

	h.setNow(200)
	ev, err := h.c.Claim(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.NoError(t, err)
	require.True(t, ev.Claimed.Cmp(offer) <= 0)
}

func TestWithdrawPaymentFixedCapNoReserve(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1_000_000_000)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(1_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(1_000_000_000))
	require.NoError(t, err)

	h.setNow(101)
	ev, err := h.c.WithdrawPayment(h.state, testAdmin, testTreasury, assetL, assetUSDT)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000_000), ev.Amount)

	_, err = h.c.WithdrawPayment(h.state, testAdmin, testTreasury, assetL, assetUSDT)
	require.ErrorIs(t, err, ErrWithdrawn)
}

func TestWithdrawPaymentOverflowWithholdsReserve(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000_000_000_000)
	price := big.NewInt(1_000_000_000_000_000)
	h.fund(assetL, testAdmin, offer)
	h.fund(assetUSDT, testAlice, big.NewInt(1_000_000_000_000))
	h.fund(assetUSDT, testBob, big.NewInt(1_000_000_000_000))

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, big.NewInt(0), big.NewInt(3_000_000_000_000))
	require.NoError(t, err)

	h.setNow(1)
	_, _, err = h.c.Deposit(h.state, testAdmin, testAlice, assetL, assetUSDT, big.NewInt(1_000_000_000_000))
	require.NoError(t, err)
	_, _, err = h.c.Deposit(h.state, testAdmin, testBob, assetL, assetUSDT, big.NewInt(1_000_000_000_000))
	require.NoError(t, err)

	h.setNow(101)
	ev, err := h.c.WithdrawPayment(h.state, testAdmin, testTreasury, assetL, assetUSDT)
	require.NoError(t, err)

	ps := h.c.payments[paymentKey{testAdmin, assetL, assetUSDT}]
	require.True(t, ps.Value.Sign() > 0, "overflow withdrawal must withhold a refund reserve")
	require.True(t, ev.Amount.Cmp(big.NewInt(2_000_000_000_000)) < 0)
}

func TestWithdrawPaymentRequiresTreasuryCaller(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	h.setNow(101)
	_, err = h.c.WithdrawPayment(h.state, testAdmin, testAlice, assetL, assetUSDT)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestAddVestingRejectedAfterStart(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		0, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	h.setNow(1)
	err = h.c.AddVesting(testAdmin, assetL, big.NewInt(1_000), OneMonthSeconds, 3*OneMonthSeconds)
	require.ErrorIs(t, err, ErrTimeOrder)
}

func TestAddPaymentTokensRejectsDecimalMismatch(t *testing.T) {
	h := newHarness(t, 0)
	offer := big.NewInt(1_000)
	price := big.NewInt(1_000_000_000_000_000)
	maxRaised := big.NewInt(1)
	h.fund(assetL, testAdmin, offer)

	mismatched := ledger.AssetID(common.HexToAddress("0xDEC1000000000000000000000000000000000D"))
	h.l.Initialize(h.state, mismatched, "Mismatched", "MIS", 6, true)

	_, err := h.c.CreateLaunch(h.state, testAdmin, testTreasury, assetUSDT, assetL,
		1, 100, 200, offer, price, maxRaised, maxRaised)
	require.NoError(t, err)

	err = h.c.AddPaymentTokens(h.state, testAdmin, assetL, mismatched)
	require.ErrorIs(t, err, ErrPaymentDecimals)
}

// OneMonthSeconds mirrors vesting.OneMonth without importing the vesting
// package, avoiding an ido->vesting dependency that doesn't otherwise exist.
const OneMonthSeconds = 365 * 24 * 3600 / 12

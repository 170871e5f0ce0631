// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ido implements the initial-offering engine: one sale per offered
// asset, fixed-cap or overflow subscription, multi-asset payment, vesting
// on claim, and treasury withdrawal with a refund reserve. Grounded on
// dex/pool_manager.go's singleton multiplexing many independent
// PoolKey-addressed sub-states (here, Pools keyed by offered-asset id) and
// dex/lending.go's multi-asset per-user position bookkeeping with
// guard-checks before mutation.
package ido

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/launchpad/clock"
	"github.com/luxfi/launchpad/contract"
	"github.com/luxfi/launchpad/errcode"
	"github.com/luxfi/launchpad/ledger"
)

// PricePrecision and TGEPercentDenom are the system's two fixed-point
// denominators.
var (
	PricePrecision  = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
	TGEPercentDenom = big.NewInt(10_000)
)

var (
	ErrNotOwner            = errors.New("ido: caller is not admin")
	ErrMaxOut              = errors.New("ido: amount exceeds remaining capacity")
	ErrDepositTime         = errors.New("ido: deposit outside the open window")
	ErrPoolDuplicates      = errors.New("ido: pool already exists for this offered asset")
	ErrTimeOrder           = errors.New("ido: start/end/distribute not strictly increasing, or sale already open")
	ErrCap                 = errors.New("ido: per-user subscription cap exceeded")
	ErrTreasury            = errors.New("ido: treasury account does not exist")
	ErrClaimTime           = errors.New("ido: claim before distribution start")
	ErrNoDeposit           = errors.New("ido: no pool or payment store for this asset pair")
	ErrWithdrawPaymentTime = errors.New("ido: withdrawal before end time")
	ErrWithdrawZeroAmt     = errors.New("ido: nothing left to withdraw")
	ErrClaimed             = errors.New("ido: already claimed in full")
	ErrVestingSetting      = errors.New("ido: invalid vesting parameters")
	ErrDuplicateTokens     = errors.New("ido: payment asset already accepted")
	ErrPaymentToken        = errors.New("ido: payment asset not accepted by this pool")
	ErrRefund              = errors.New("ido: computed refund would consume the entire deposit")
	ErrPaymentDecimals     = errors.New("ido: payment asset decimals mismatch")
	ErrWithdrawn           = errors.New("ido: payment store already withdrawn")
)

func init() {
	errcode.Register(ErrNotOwner, errcode.NotOwner)
	errcode.Register(ErrMaxOut, errcode.MaxOut)
	errcode.Register(ErrDepositTime, errcode.DepositTime)
	errcode.Register(ErrPoolDuplicates, errcode.PoolDuplicates)
	errcode.Register(ErrTimeOrder, errcode.TimeOrder)
	errcode.Register(ErrCap, errcode.Cap)
	errcode.Register(ErrTreasury, errcode.Treasury)
	errcode.Register(ErrClaimTime, errcode.ClaimTime)
	errcode.Register(ErrNoDeposit, errcode.NoDeposit)
	errcode.Register(ErrWithdrawPaymentTime, errcode.WithdrawPaymentTime)
	errcode.Register(ErrWithdrawZeroAmt, errcode.WithdrawZeroAmt)
	errcode.Register(ErrClaimed, errcode.Claimed)
	errcode.Register(ErrVestingSetting, errcode.VestingSetting)
	errcode.Register(ErrDuplicateTokens, errcode.DuplicateTokens)
	errcode.Register(ErrPaymentToken, errcode.PaymentToken)
	errcode.Register(ErrRefund, errcode.Refund)
	errcode.Register(ErrPaymentDecimals, errcode.PaymentDecimals)
	errcode.Register(ErrWithdrawn, errcode.Withdrawn)
}

// Pool is one sale, keyed by its offered asset L at the admin's address.
type Pool struct {
	Admin    common.Address
	Offered  ledger.AssetID
	Treasury common.Address

	StartTime           uint64
	EndTime             uint64
	DistributeStartTime uint64

	SalePrice          *big.Int // base_units(L) * PricePrecision / base_unit(P)
	TotalOfferAmount   *big.Int
	OfferCoins         *big.Int // live escrow of L, decremented as users claim
	TotalSubscribed    *big.Int
	MaxRaised          *big.Int // 0 => overflow mode
	MaxRaisedPerUser   *big.Int

	TGEPercent      *big.Int
	VestingInterval uint64
	TotalVestingTime uint64

	AcceptedTokens  []ledger.AssetID
	DefaultDecimals uint8
}

// IsOverflow reports whether this pool runs in unbounded overflow mode.
func (p *Pool) IsOverflow() bool {
	return p.MaxRaised == nil || p.MaxRaised.Sign() == 0
}

// PaymentStore is the escrow of one accepted payment asset for one pool.
type PaymentStore struct {
	Asset     ledger.AssetID
	Value     *big.Int
	Withdrawn bool
}

// UserInfo is one depositor's state in one pool.
type UserInfo struct {
	SubscribedAmount *big.Int
	DepositAmounts   []*big.Int // parallel to Pool.AcceptedTokens
	Entitled         *big.Int
	Claimed          *big.Int
}

// SubscribeCapability is an empty witness: possession allows a deposit to
// bypass MaxRaisedPerUser. Issued only by RequestCap.
type SubscribeCapability struct{}

// PoolCreatedEvent, DepositEvent, ClaimEvent and WithdrawPaymentEvent mirror
// spec.md's event records.
type (
	PoolCreatedEvent struct {
		Offered           ledger.AssetID
		TotalDistributeAmt *big.Int
		MaxRaised         *big.Int
		SalePrice         *big.Int
	}
	DepositEvent struct {
		User         common.Address
		Amount       *big.Int
		PaymentAsset ledger.AssetID
	}
	ClaimEvent struct {
		User    common.Address
		Claimed *big.Int
	}
	WithdrawPaymentEvent struct {
		To           common.Address
		Amount       *big.Int
		PaymentAsset ledger.AssetID
	}
)

type poolKey struct {
	admin   common.Address
	offered ledger.AssetID
}

type paymentKey struct {
	admin   common.Address
	offered ledger.AssetID
	payment ledger.AssetID
}

type userKey struct {
	admin   common.Address
	offered ledger.AssetID
	user    common.Address
}

// Controller is the IDO subsystem's business logic.
type Controller struct {
	ledger ledger.Ledger
	clock  clock.Clock

	pools    map[poolKey]*Pool
	payments map[paymentKey]*PaymentStore
	users    map[userKey]*UserInfo
}

// NewController constructs the IDO controller bound to a shared ledger and
// clock.
func NewController(l ledger.Ledger, c clock.Clock) *Controller {
	return &Controller{
		ledger:   l,
		clock:    c,
		pools:    make(map[poolKey]*Pool),
		payments: make(map[paymentKey]*PaymentStore),
		users:    make(map[userKey]*UserInfo),
	}
}

// IsIDOStarted reports whether the pool exists and now has reached
// start_time — the gate on pre-open schedule mutation. It returns false
// when no pool exists for offered.
func (c *Controller) IsIDOStarted(admin common.Address, offered ledger.AssetID) bool {
	p, ok := c.pools[poolKey{admin, offered}]
	if !ok {
		return false
	}
	return c.clock.Now() >= p.StartTime
}

// CreateLaunch creates Pool<offered> under admin, escrowing totalOfferCoins
// of offered from admin into the pool.
func (c *Controller) CreateLaunch(
	state contract.StateDB,
	admin, treasury common.Address,
	payment, offered ledger.AssetID,
	start, end, distribute uint64,
	totalOfferCoins, salePrice, maxRaised, maxRaisedPerUser *big.Int,
) (PoolCreatedEvent, error) {
	key := poolKey{admin, offered}
	if _, ok := c.pools[key]; ok {
		return PoolCreatedEvent{}, ErrPoolDuplicates
	}
	now := c.clock.Now()
	if !(now <= start && start < end && end < distribute) {
		return PoolCreatedEvent{}, ErrTimeOrder
	}
	if !c.ledger.IsRegistered(state, offered, treasury) && !state.Exist(treasury) {
		return PoolCreatedEvent{}, ErrTreasury
	}
	if !c.ledger.IsInitialized(state, payment) {
		return PoolCreatedEvent{}, ErrPaymentToken
	}

	if maxRaised == nil {
		maxRaised = big.NewInt(0)
	}
	if maxRaised.Sign() > 0 {
		normalized := new(big.Int).Div(new(big.Int).Mul(PricePrecision, totalOfferCoins), salePrice)
		if normalized.Cmp(maxRaised) != 0 {
			maxRaised = normalized
		}
	}

	offerCoin := c.ledger.Withdraw(state, offered, admin, totalOfferCoins)

	pool := &Pool{
		Admin:               admin,
		Offered:             offered,
		Treasury:            treasury,
		StartTime:           start,
		EndTime:             end,
		DistributeStartTime: distribute,
		SalePrice:           new(big.Int).Set(salePrice),
		TotalOfferAmount:    new(big.Int).Set(totalOfferCoins),
		OfferCoins:          offerCoin.Value(),
		TotalSubscribed:     big.NewInt(0),
		MaxRaised:           maxRaised,
		MaxRaisedPerUser:    new(big.Int).Set(maxRaisedPerUser),
		TGEPercent:          new(big.Int).Set(TGEPercentDenom),
		VestingInterval:     0,
		TotalVestingTime:    0,
		AcceptedTokens:      []ledger.AssetID{payment},
		DefaultDecimals:     c.ledger.Decimals(state, payment),
	}
	c.pools[key] = pool
	c.payments[paymentKey{admin, offered, payment}] = &PaymentStore{Asset: payment, Value: big.NewInt(0)}

	return PoolCreatedEvent{
		Offered:            offered,
		TotalDistributeAmt: new(big.Int).Set(totalOfferCoins),
		MaxRaised:          new(big.Int).Set(maxRaised),
		SalePrice:          new(big.Int).Set(salePrice),
	}, nil
}

// AddVesting sets the claim vesting schedule, permitted only pre-open.
func (c *Controller) AddVesting(admin common.Address, offered ledger.AssetID, tgePercent *big.Int, vestingInterval, totalVestingTime uint64) error {
	p, ok := c.pools[poolKey{admin, offered}]
	if !ok {
		return ErrNoDeposit
	}
	if c.IsIDOStarted(admin, offered) {
		return ErrTimeOrder
	}
	if tgePercent.Cmp(TGEPercentDenom) >= 0 || totalVestingTime < vestingInterval {
		return ErrVestingSetting
	}
	p.TGEPercent = new(big.Int).Set(tgePercent)
	p.VestingInterval = vestingInterval
	p.TotalVestingTime = totalVestingTime
	return nil
}

// AddPaymentTokens registers an additional accepted payment asset, permitted
// only pre-open.
func (c *Controller) AddPaymentTokens(state contract.StateDB, admin common.Address, offered, payment ledger.AssetID) error {
	p, ok := c.pools[poolKey{admin, offered}]
	if !ok {
		return ErrNoDeposit
	}
	if c.IsIDOStarted(admin, offered) {
		return ErrTimeOrder
	}
	pk := paymentKey{admin, offered, payment}
	if _, ok := c.payments[pk]; ok {
		return ErrDuplicateTokens
	}
	if c.ledger.Decimals(state, payment) != p.DefaultDecimals {
		return ErrPaymentDecimals
	}
	p.AcceptedTokens = append(p.AcceptedTokens, payment)
	c.payments[pk] = &PaymentStore{Asset: payment, Value: big.NewInt(0)}
	return nil
}

func (p *Pool) tokenIndex(asset ledger.AssetID) int {
	for i, a := range p.AcceptedTokens {
		if a == asset {
			return i
		}
	}
	return -1
}

// Deposit is the public deposit path: internal deposit plus the per-user
// cap check. Returns the actual amount debited from user (which, on a
// fixed-cap pool nearing its cap, may be truncated below the requested
// amount) and the user's post-deposit subscribed total.
func (c *Controller) Deposit(state contract.StateDB, admin, user common.Address, offered, payment ledger.AssetID, amount *big.Int) (deposited, subscribed *big.Int, err error) {
	deposited, subscribed, err = c.depositInternal(state, admin, user, offered, payment, amount)
	if err != nil {
		return nil, nil, err
	}
	p := c.pools[poolKey{admin, offered}]
	if subscribed.Cmp(p.MaxRaisedPerUser) > 0 {
		return nil, nil, ErrCap
	}
	return deposited, subscribed, nil
}

// DepositWithCap is the capability-gated deposit path: no per-user cap.
func (c *Controller) DepositWithCap(state contract.StateDB, admin, user common.Address, offered, payment ledger.AssetID, amount *big.Int, _ SubscribeCapability) (deposited, subscribed *big.Int, err error) {
	return c.depositInternal(state, admin, user, offered, payment, amount)
}

// depositInternal returns the actual (possibly truncated) amount debited
// from user and the user's post-deposit subscribed total.
func (c *Controller) depositInternal(state contract.StateDB, admin, user common.Address, offered, payment ledger.AssetID, amount *big.Int) (deposited, subscribed *big.Int, err error) {
	p, ok := c.pools[poolKey{admin, offered}]
	if !ok {
		return nil, nil, ErrNoDeposit
	}
	now := c.clock.Now()
	if now < p.StartTime || now > p.EndTime {
		return nil, nil, ErrDepositTime
	}

	idx := p.tokenIndex(payment)
	if idx < 0 {
		return nil, nil, ErrPaymentToken
	}

	fixedCap := !p.IsOverflow()
	if fixedCap {
		if p.MaxRaised.Cmp(p.TotalSubscribed) <= 0 {
			return nil, nil, ErrCap
		}
		remaining := new(big.Int).Sub(p.MaxRaised, p.TotalSubscribed)
		if remaining.Cmp(amount) < 0 {
			amount = remaining
		}
	}

	p.TotalSubscribed = new(big.Int).Add(p.TotalSubscribed, amount)

	coin := c.ledger.Withdraw(state, payment, user, amount)
	ps := c.payments[paymentKey{admin, offered, payment}]
	ps.Value = new(big.Int).Add(ps.Value, coin.Value())

	uk := userKey{admin, offered, user}
	u, ok := c.users[uk]
	if !ok {
		u = &UserInfo{
			SubscribedAmount: new(big.Int).Set(amount),
			DepositAmounts:   make([]*big.Int, len(p.AcceptedTokens)),
			Entitled:         big.NewInt(0),
			Claimed:          big.NewInt(0),
		}
		for i := range u.DepositAmounts {
			u.DepositAmounts[i] = big.NewInt(0)
		}
		u.DepositAmounts[idx] = new(big.Int).Set(amount)
		if fixedCap {
			u.Entitled = entitlementFor(p.SalePrice, u.SubscribedAmount)
		}
		c.users[uk] = u
	} else {
		u.SubscribedAmount = new(big.Int).Add(u.SubscribedAmount, amount)
		if idx >= len(u.DepositAmounts) {
			grown := make([]*big.Int, len(p.AcceptedTokens))
			copy(grown, u.DepositAmounts)
			for i := len(u.DepositAmounts); i < len(grown); i++ {
				grown[i] = big.NewInt(0)
			}
			u.DepositAmounts = grown
		}
		u.DepositAmounts[idx] = new(big.Int).Add(u.DepositAmounts[idx], amount)
		if fixedCap {
			u.Entitled = entitlementFor(p.SalePrice, u.SubscribedAmount)
		}
	}

	return new(big.Int).Set(amount), new(big.Int).Set(u.SubscribedAmount), nil
}

// entitlementFor computes floor(salePrice * subscribed / PricePrecision).
func entitlementFor(salePrice, subscribed *big.Int) *big.Int {
	v := new(big.Int).Mul(salePrice, subscribed)
	return v.Div(v, PricePrecision)
}

// Claim computes refund + entitlement lock + vesting release for user in
// pool <admin,offered>, paid in payment asset.
func (c *Controller) Claim(state contract.StateDB, admin, user common.Address, offered, payment ledger.AssetID) (ClaimEvent, error) {
	p, ok := c.pools[poolKey{admin, offered}]
	if !ok {
		return ClaimEvent{}, ErrNoDeposit
	}
	now := c.clock.Now()
	if now < p.DistributeStartTime {
		return ClaimEvent{}, ErrClaimTime
	}

	uk := userKey{admin, offered, user}
	u, ok := c.users[uk]
	if !ok {
		return ClaimEvent{}, ErrNoDeposit
	}

	nonOverflow := entitlementFor(p.SalePrice, u.SubscribedAmount)
	overflow := nonOverflow
	if p.IsOverflow() && p.TotalSubscribed.Sign() > 0 {
		v := new(big.Int).Mul(p.TotalOfferAmount, u.SubscribedAmount)
		overflow = v.Div(v, p.TotalSubscribed)
	}

	if overflow.Cmp(nonOverflow) < 0 {
		idx := p.tokenIndex(payment)
		if idx >= 0 && idx < len(u.DepositAmounts) {
			d := u.DepositAmounts[idx]
			if d != nil && d.Sign() > 0 {
				refund := new(big.Int).Sub(nonOverflow, overflow)
				refund.Mul(refund, PricePrecision)
				refund.Div(refund, p.SalePrice)
				refund.Mul(refund, d)
				refund.Div(refund, u.SubscribedAmount)

				if refund.Cmp(d) >= 0 {
					return ClaimEvent{}, ErrRefund
				}

				ps := c.payments[paymentKey{admin, offered, payment}]
				ps.Value = new(big.Int).Sub(ps.Value, refund)
				c.ledger.Deposit(state, user, ledger.Coin{Asset: payment, Amount: refund})
				u.DepositAmounts[idx] = big.NewInt(0)

				if !c.ledger.IsRegistered(state, offered, user) {
					c.ledger.Register(state, offered, user)
				}
			}
		}
	}

	if u.Entitled.Sign() == 0 {
		entitled := overflow
		if nonOverflow.Cmp(entitled) < 0 {
			entitled = nonOverflow
		}
		u.Entitled = new(big.Int).Set(entitled)
	}

	claimable := c.vestedClaimable(p, u, now)
	if claimable.Sign() <= 0 {
		return ClaimEvent{User: user, Claimed: big.NewInt(0)}, nil
	}

	u.Claimed = new(big.Int).Add(u.Claimed, claimable)
	p.OfferCoins = new(big.Int).Sub(p.OfferCoins, claimable)

	if !c.ledger.IsRegistered(state, offered, user) {
		c.ledger.Register(state, offered, user)
	}
	c.ledger.Deposit(state, user, ledger.Coin{Asset: offered, Amount: claimable})

	return ClaimEvent{User: user, Claimed: new(big.Int).Set(claimable)}, nil
}

func (c *Controller) vestedClaimable(p *Pool, u *UserInfo, now uint64) *big.Int {
	if u.Entitled.Sign() == 0 || now < p.DistributeStartTime {
		return big.NewInt(0)
	}
	if p.TGEPercent.Cmp(TGEPercentDenom) == 0 {
		return new(big.Int).Sub(u.Entitled, u.Claimed)
	}

	numIntervals := uint64(0)
	if p.VestingInterval > 0 {
		numIntervals = (now - p.DistributeStartTime) / p.VestingInterval
	}
	tge := new(big.Int).Mul(u.Entitled, p.TGEPercent)
	tge.Div(tge, TGEPercentDenom)

	left := new(big.Int).Sub(u.Entitled, tge)

	passed := numIntervals * p.VestingInterval
	if passed > p.TotalVestingTime {
		passed = p.TotalVestingTime
	}

	vested := big.NewInt(0)
	if p.TotalVestingTime > 0 {
		vested = new(big.Int).Mul(left, new(big.Int).SetUint64(passed))
		vested.Div(vested, new(big.Int).SetUint64(p.TotalVestingTime))
	}

	claimable := new(big.Int).Add(tge, vested)
	claimable.Sub(claimable, u.Claimed)
	return claimable
}

// WithdrawPayment lets treasury withdraw the escrowed payment asset once
// after end_time, withholding a refund reserve in overflow mode.
func (c *Controller) WithdrawPayment(state contract.StateDB, admin, caller common.Address, offered, payment ledger.AssetID) (WithdrawPaymentEvent, error) {
	p, ok := c.pools[poolKey{admin, offered}]
	if !ok {
		return WithdrawPaymentEvent{}, ErrNoDeposit
	}
	ps, ok := c.payments[paymentKey{admin, offered, payment}]
	if !ok {
		return WithdrawPaymentEvent{}, ErrNoDeposit
	}
	if ps.Withdrawn {
		return WithdrawPaymentEvent{}, ErrWithdrawn
	}
	if caller != p.Treasury {
		return WithdrawPaymentEvent{}, ErrNotOwner
	}
	now := c.clock.Now()
	if now <= p.EndTime {
		return WithdrawPaymentEvent{}, ErrWithdrawPaymentTime
	}

	stored := ps.Value
	var amount *big.Int
	if !p.IsOverflow() {
		amount = new(big.Int).Set(stored)
	} else {
		if p.TotalSubscribed.Sign() == 0 {
			amount = big.NewInt(0)
		} else {
			offerInPayment := new(big.Int).Mul(p.TotalOfferAmount, stored)
			offerInPayment.Div(offerInPayment, p.TotalSubscribed)

			allowed := new(big.Int).Mul(offerInPayment, PricePrecision)
			allowed.Div(allowed, p.SalePrice)

			amount = stored
			if allowed.Cmp(stored) < 0 {
				amount = allowed
			}
		}
	}

	ps.Withdrawn = true
	if amount.Sign() == 0 {
		return WithdrawPaymentEvent{}, ErrWithdrawZeroAmt
	}

	ps.Value = new(big.Int).Sub(ps.Value, amount)
	if !c.ledger.IsRegistered(state, payment, p.Treasury) {
		c.ledger.Register(state, payment, p.Treasury)
	}
	c.ledger.Deposit(state, p.Treasury, ledger.Coin{Asset: payment, Amount: amount})

	return WithdrawPaymentEvent{To: p.Treasury, Amount: new(big.Int).Set(amount), PaymentAsset: payment}, nil
}

// RequestCap issues a SubscribeCapability for an existing pool, for
// consumption by an external whitelist/ticket module.
func (c *Controller) RequestCap(admin common.Address, offered ledger.AssetID) (SubscribeCapability, error) {
	if _, ok := c.pools[poolKey{admin, offered}]; !ok {
		return SubscribeCapability{}, ErrNoDeposit
	}
	return SubscribeCapability{}, nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command launchpadctl is a read-only inspection CLI over an in-memory
// fixture of the supply, vesting and IDO precompiles, for operators who
// want pending-supply/pending-claim/pool-status answers without standing
// up a node.
package main

import (
	"fmt"
	"os"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/launchpad/ido"
	"github.com/luxfi/launchpad/ledger"
	"github.com/luxfi/launchpad/supply"
	"github.com/luxfi/launchpad/vesting"
)

var logger = log.NewTestLogger(log.InfoLevel)

func main() {
	logger.Info("launchpadctl starting")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "launchpadctl",
		Short: "Inspect HOU supply, vesting and IDO state",
	}
	root.AddCommand(newPendingSupplyCmd())
	root.AddCommand(newPendingClaimCmd())
	root.AddCommand(newPoolStatusCmd())
	return root
}

func newPendingSupplyCmd() *cobra.Command {
	var admin string
	var now uint64

	cmd := &cobra.Command{
		Use:   "pending-supply",
		Short: "Show accrued-but-unminted HOU for an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := newFixtureStateDB()
			adminAddr := common.HexToAddress(admin)

			c := supply.NewController(supply.SharedLedger, fixedClock(now))
			c.InitializeCoin(state, adminAddr)
			if err := c.InitializeMining(state, adminAddr); err != nil {
				return err
			}

			pending, err := c.PendingSupply(adminAddr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pending.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "admin address")
	cmd.Flags().Uint64Var(&now, "now", 0, "wall-clock time to evaluate at (unix seconds)")
	return cmd
}

func newPendingClaimCmd() *cobra.Command {
	var admin string
	var poolID int
	var now uint64

	cmd := &cobra.Command{
		Use:   "pending-claim",
		Short: "Show claimable HOU for an allocation tranche",
		RunE: func(cmd *cobra.Command, args []string) error {
			adminAddr := common.HexToAddress(admin)
			l := ledger.New()
			c := vesting.NewController(l, fixedClock(now), ledger.MintCap{})
			if err := c.InitializeAllocation(adminAddr); err != nil && err != vesting.ErrAllocationAlreadyInit {
				return err
			}
			pending, err := c.PendingClaim(adminAddr, poolID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pending.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "admin address")
	cmd.Flags().IntVar(&poolID, "pool", vesting.TrancheLaunchpad, "tranche index (0=Ecosystem,1=Team,2=Advisor,3=Launchpad)")
	cmd.Flags().Uint64Var(&now, "now", 0, "wall-clock time to evaluate at (unix seconds)")
	return cmd
}

func newPoolStatusCmd() *cobra.Command {
	var admin, offered string
	var now uint64

	cmd := &cobra.Command{
		Use:   "pool-status",
		Short: "Show whether an IDO pool has started",
		RunE: func(cmd *cobra.Command, args []string) error {
			adminAddr := common.HexToAddress(admin)
			offeredAsset := ledger.AssetID(common.HexToAddress(offered))

			c := ido.NewController(ledger.New(), fixedClock(now))
			started := c.IsIDOStarted(adminAddr, offeredAsset)
			fmt.Fprintf(cmd.OutOrStdout(), "started=%v\n", started)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "pool admin address")
	cmd.Flags().StringVar(&offered, "offered", "", "offered asset address")
	cmd.Flags().Uint64Var(&now, "now", 0, "wall-clock time to evaluate at (unix seconds)")
	return cmd
}

// fixedClock wraps a caller-supplied timestamp as a clock.Clock without
// importing the clock package's Fixed type directly into every flag
// handler above.
type fixedClockType uint64

func (f fixedClockType) Now() uint64 { return uint64(f) }

func fixedClock(now uint64) fixedClockType {
	return fixedClockType(now)
}

package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

func farmUsage() string {
	return strings.TrimSpace(`
Usage: farm-cli farm <subcommand> [flags]

Queries:
  params | pools | pool --pool N | position --pool N --account ADDR
  pending --pool N --account ADDR | events [--type T] [--account ADDR] [--pool N] [--limit N]
Staking (bearer token):
  deposit --pool N --amount X | withdraw --pool N --amount X
  harvest --pool N | emergency-withdraw --pool N
Maintenance:
  update-pool --pool N | mass-update
Administration (admin bearer token):
  add-pool --asset SYM --alloc N [--with-update]
  set-weight --pool N --alloc N [--with-update]
  set-rate --amount X | set-max-mint --amount X
  set-fee-address [--address ADDR] | set-fee-window --blocks N
  set-fee-rate --bps N | set-reward-fee --bps N
  pause | unpause | transfer-admin --address ADDR`)
}

// farmFlags holds every flag a farm subcommand may accept.
type farmFlags struct {
	pool       int64
	account    string
	amount     string
	asset      string
	alloc      uint64
	withUpdate bool
	address    string
	blocks     uint64
	bps        uint64
	eventType  string
	limit      int
}

func parseFarmFlags(name string, args []string, stderr io.Writer) (*farmFlags, bool) {
	fs := flag.NewFlagSet("farm "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &farmFlags{}
	fs.Int64Var(&f.pool, "pool", -1, "pool index")
	fs.StringVar(&f.account, "account", "", "bech32 account")
	fs.StringVar(&f.amount, "amount", "", "integer amount in base units")
	fs.StringVar(&f.asset, "asset", "", "staked asset symbol")
	fs.Uint64Var(&f.alloc, "alloc", 0, "allocation points")
	fs.BoolVar(&f.withUpdate, "with-update", false, "sync every pool first")
	fs.StringVar(&f.address, "address", "", "bech32 address")
	fs.Uint64Var(&f.blocks, "blocks", 0, "block count")
	fs.Uint64Var(&f.bps, "bps", 0, "basis points")
	fs.StringVar(&f.eventType, "type", "", "event type")
	fs.IntVar(&f.limit, "limit", 0, "maximum records")
	if err := fs.Parse(args); err != nil {
		return nil, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return nil, false
	}
	return f, true
}

func (f *farmFlags) requirePool(stderr io.Writer) bool {
	if f.pool < 0 {
		fmt.Fprintln(stderr, "Error: --pool is required")
		return false
	}
	return true
}

func (f *farmFlags) require(stderr io.Writer, name, value string) bool {
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(stderr, "Error: --%s is required\n", name)
		return false
	}
	return true
}

func runFarmCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, farmUsage())
		return 1
	}
	sub := args[0]
	if sub == "help" {
		fmt.Fprintln(stdout, farmUsage())
		return 0
	}
	f, ok := parseFarmFlags(sub, args[1:], stderr)
	if !ok {
		return 1
	}
	pool := map[string]interface{}{"pool": f.pool}
	switch sub {
	case "params":
		return invoke(stdout, stderr, "farm_params", nil, false)
	case "pools":
		return invoke(stdout, stderr, "farm_pools", nil, false)
	case "pool":
		if !f.requirePool(stderr) {
			return 1
		}
		return invoke(stdout, stderr, "farm_poolInfo", pool, false)
	case "position", "pending":
		if !f.requirePool(stderr) || !f.require(stderr, "account", f.account) {
			return 1
		}
		pool["account"] = f.account
		method := "farm_userInfo"
		if sub == "pending" {
			method = "farm_pendingReward"
		}
		return invoke(stdout, stderr, method, pool, false)
	case "events":
		filter := map[string]interface{}{}
		if f.eventType != "" {
			filter["type"] = f.eventType
		}
		if f.account != "" {
			filter["account"] = f.account
		}
		if f.pool >= 0 {
			filter["pool"] = f.pool
		}
		if f.limit > 0 {
			filter["limit"] = f.limit
		}
		return invoke(stdout, stderr, "farm_events", filter, false)
	case "deposit", "withdraw":
		if !f.requirePool(stderr) || !f.require(stderr, "amount", f.amount) {
			return 1
		}
		pool["amount"] = f.amount
		return invoke(stdout, stderr, "farm_"+sub, pool, true)
	case "harvest":
		if !f.requirePool(stderr) {
			return 1
		}
		return invoke(stdout, stderr, "farm_harvest", pool, true)
	case "emergency-withdraw":
		if !f.requirePool(stderr) {
			return 1
		}
		return invoke(stdout, stderr, "farm_emergencyWithdraw", pool, true)
	case "update-pool":
		if !f.requirePool(stderr) {
			return 1
		}
		return invoke(stdout, stderr, "farm_updatePool", pool, false)
	case "mass-update":
		return invoke(stdout, stderr, "farm_massUpdatePools", nil, false)
	case "add-pool":
		if !f.require(stderr, "asset", f.asset) {
			return 1
		}
		return invoke(stdout, stderr, "farm_addPool", map[string]interface{}{
			"asset": f.asset, "allocPoint": f.alloc, "withUpdate": f.withUpdate,
		}, true)
	case "set-weight":
		if !f.requirePool(stderr) {
			return 1
		}
		return invoke(stdout, stderr, "farm_setPoolWeight", map[string]interface{}{
			"pool": f.pool, "allocPoint": f.alloc, "withUpdate": f.withUpdate,
		}, true)
	case "set-rate":
		if !f.require(stderr, "amount", f.amount) {
			return 1
		}
		return invoke(stdout, stderr, "farm_setEmissionRate", map[string]interface{}{"rewardPerBlock": f.amount}, true)
	case "set-max-mint":
		if !f.require(stderr, "amount", f.amount) {
			return 1
		}
		return invoke(stdout, stderr, "farm_setMaxMint", map[string]interface{}{"maxMint": f.amount}, true)
	case "set-fee-address":
		return invoke(stdout, stderr, "farm_setFeeAddress", map[string]interface{}{"feeAddress": f.address}, true)
	case "set-fee-window":
		return invoke(stdout, stderr, "farm_setFeeWindow", map[string]interface{}{"blocks": f.blocks}, true)
	case "set-fee-rate":
		return invoke(stdout, stderr, "farm_setFeeRate", map[string]interface{}{"bps": f.bps}, true)
	case "set-reward-fee":
		return invoke(stdout, stderr, "farm_setRewardFee", map[string]interface{}{"bps": f.bps}, true)
	case "pause", "unpause":
		return invoke(stdout, stderr, "farm_setPaused", map[string]interface{}{"paused": sub == "pause"}, true)
	case "transfer-admin":
		if !f.require(stderr, "address", f.address) {
			return 1
		}
		return invoke(stdout, stderr, "farm_transferAdmin", map[string]interface{}{"admin": f.address}, true)
	default:
		fmt.Fprintf(stderr, "Unknown farm subcommand: %s\n", sub)
		fmt.Fprintln(stderr, farmUsage())
		return 1
	}
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
)

func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: farm-cli token <balance|allowance|supply|list|approve|transfer> [flags]")
		return 1
	}
	sub := args[0]
	fs := flag.NewFlagSet("token "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	asset := fs.String("asset", "", "token symbol")
	account := fs.String("account", "", "bech32 account")
	owner := fs.String("owner", "", "bech32 owner")
	spender := fs.String("spender", "", "bech32 spender; approve defaults to the farm custody account")
	to := fs.String("to", "", "bech32 recipient")
	amount := fs.String("amount", "", "integer amount in base units")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if sub != "list" && strings.TrimSpace(*asset) == "" {
		fmt.Fprintln(stderr, "Error: --asset is required")
		return 1
	}
	switch sub {
	case "balance":
		return invoke(stdout, stderr, "token_balance", map[string]string{"asset": *asset, "account": *account}, false)
	case "allowance":
		return invoke(stdout, stderr, "token_allowance", map[string]string{"asset": *asset, "owner": *owner, "spender": *spender}, false)
	case "supply":
		return invoke(stdout, stderr, "token_supply", map[string]string{"asset": *asset}, false)
	case "list":
		return invoke(stdout, stderr, "token_list", nil, false)
	case "approve":
		target := strings.TrimSpace(*spender)
		if target == "" {
			module, err := farmModuleAddress()
			if err != nil {
				fmt.Fprintf(stderr, "Error: resolve farm custody account: %v\n", err)
				return 1
			}
			target = module
		}
		return invoke(stdout, stderr, "token_approve", map[string]string{"asset": *asset, "spender": target, "amount": *amount}, true)
	case "transfer":
		return invoke(stdout, stderr, "token_transfer", map[string]string{"asset": *asset, "to": *to, "amount": *amount}, true)
	default:
		fmt.Fprintf(stderr, "Unknown token subcommand: %s\n", sub)
		return 1
	}
}

func farmModuleAddress() (string, error) {
	result, err := rpcCall("farm_params", nil, false)
	if err != nil {
		return "", err
	}
	var params struct {
		ModuleAddress string `json:"moduleAddress"`
	}
	if err := json.Unmarshal(result, &params); err != nil {
		return "", err
	}
	if params.ModuleAddress == "" {
		return "", fmt.Errorf("node did not report a custody account")
	}
	return params.ModuleAddress, nil
}

func runForwarderCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: farm-cli forwarder <owner|transfer|sweep|transfer-ownership|renounce> --forwarder ADDR [flags]")
		return 1
	}
	sub := args[0]
	fs := flag.NewFlagSet("forwarder "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	forwarder := fs.String("forwarder", "", "bech32 forwarder account")
	to := fs.String("to", "", "bech32 recipient")
	amount := fs.String("amount", "", "integer amount in base units")
	owner := fs.String("owner", "", "bech32 new owner")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if strings.TrimSpace(*forwarder) == "" {
		fmt.Fprintln(stderr, "Error: --forwarder is required")
		return 1
	}
	param := map[string]string{"forwarder": *forwarder}
	switch sub {
	case "owner":
		return invoke(stdout, stderr, "forwarder_owner", param, false)
	case "transfer":
		param["to"], param["amount"] = *to, *amount
		return invoke(stdout, stderr, "forwarder_transfer", param, true)
	case "sweep":
		return invoke(stdout, stderr, "forwarder_sweep", param, true)
	case "transfer-ownership":
		param["owner"] = *owner
		return invoke(stdout, stderr, "forwarder_transferOwnership", param, true)
	case "renounce":
		return invoke(stdout, stderr, "forwarder_renounceOwnership", param, true)
	default:
		fmt.Fprintf(stderr, "Unknown forwarder subcommand: %s\n", sub)
		return 1
	}
}

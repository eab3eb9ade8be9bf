package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	rpcAuthToken = os.Getenv("FARM_RPC_TOKEN")
	rpcCall      = callRPC
)

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "token-for":
		return runTokenFor(args[1:], stdout, stderr)
	case "farm":
		return runFarmCommand(args[1:], stdout, stderr)
	case "token":
		return runTokenCommand(args[1:], stdout, stderr)
	case "forwarder":
		return runForwarderCommand(args[1:], stdout, stderr)
	case "call":
		return runRawCall(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: farm-cli [--rpc URL] <command> [flags]

Keys:
  generate-key --keystore PATH        create an encrypted keystore
  address --keystore PATH             print the keystore address
  token-for (--keystore PATH | --address ADDR) [--ttl 24h]
                                      issue a bearer token (needs FARM_JWT_SECRET)

Ledger:
  farm <subcommand>                   staking and administration, see "farm help"
  token <balance|allowance|supply|list|approve|transfer>
  forwarder <owner|transfer|sweep|transfer-ownership|renounce>
  call METHOD [JSON]                  send a raw JSON-RPC request

Mutating commands read the bearer token from FARM_RPC_TOKEN.`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("FARM_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("%s (code %d)", e.Message, e.Code) }

var httpClient = &http.Client{Timeout: 30 * time.Second}

// callRPC sends one request. A nil param sends an empty parameter list.
func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	params := []interface{}{}
	if param != nil {
		params = append(params, param)
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		token := strings.TrimSpace(rpcAuthToken)
		if token == "" {
			return nil, errors.New("this command requires FARM_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node (HTTP %d)", resp.StatusCode)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func printJSONResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, buf.String())
}

// invoke performs the call and prints its result, returning the exit code.
func invoke(stdout, stderr io.Writer, method string, param interface{}, requireAuth bool) int {
	result, err := rpcCall(method, param, requireAuth)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSONResult(stdout, result)
	return 0
}

func runRawCall(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(stderr, "Usage: farm-cli call METHOD [JSON]")
		return 1
	}
	var param interface{}
	if len(args) == 2 {
		raw := json.RawMessage(args[1])
		if !json.Valid(raw) {
			fmt.Fprintln(stderr, "Error: parameter must be valid JSON")
			return 1
		}
		param = raw
	}
	return invoke(stdout, stderr, args[0], param, strings.TrimSpace(rpcAuthToken) != "")
}

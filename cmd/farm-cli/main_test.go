package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type recordedCall struct {
	method string
	param  interface{}
	auth   bool
}

func stubRPC(t *testing.T, result string) *[]recordedCall {
	t.Helper()
	calls := &[]recordedCall{}
	prev := rpcCall
	rpcCall = func(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
		*calls = append(*calls, recordedCall{method: method, param: param, auth: requireAuth})
		return json.RawMessage(result), nil
	}
	t.Cleanup(func() { rpcCall = prev })
	return calls
}

func TestFarmDepositSendsAuthenticatedCall(t *testing.T) {
	calls := stubRPC(t, `{"principal":"10"}`)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"farm", "deposit", "--pool", "1", "--amount", "10"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if len(*calls) != 1 {
		t.Fatalf("calls = %d", len(*calls))
	}
	got := (*calls)[0]
	if got.method != "farm_deposit" || !got.auth {
		t.Fatalf("unexpected call %+v", got)
	}
	param := got.param.(map[string]interface{})
	if param["pool"] != int64(1) || param["amount"] != "10" {
		t.Fatalf("unexpected params %v", param)
	}
	if !strings.Contains(stdout.String(), `"principal": "10"`) {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestFarmCommandValidatesFlags(t *testing.T) {
	calls := stubRPC(t, `true`)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"farm", "harvest"}, &stdout, &stderr); code == 0 {
		t.Fatalf("expected failure without --pool")
	}
	if code := run([]string{"farm", "bogus"}, &stdout, &stderr); code == 0 {
		t.Fatalf("expected failure for unknown subcommand")
	}
	if len(*calls) != 0 {
		t.Fatalf("invalid commands must not reach the node")
	}
}

func TestTokenApproveDefaultsToCustodyAccount(t *testing.T) {
	calls := stubRPC(t, `{"moduleAddress":"farm1custody"}`)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"token", "approve", "--asset", "LPT", "--amount", "5"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if len(*calls) != 2 || (*calls)[0].method != "farm_params" {
		t.Fatalf("unexpected calls %+v", *calls)
	}
	param := (*calls)[1].param.(map[string]string)
	if param["spender"] != "farm1custody" {
		t.Fatalf("spender = %q", param["spender"])
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	prev := rpcEndpoint
	t.Cleanup(func() { rpcEndpoint = prev })
	rest, err := applyGlobalFlags([]string{"--rpc", "http://node:1", "farm", "params"})
	if err != nil {
		t.Fatalf("apply flags: %v", err)
	}
	if rpcEndpoint != "http://node:1" || len(rest) != 2 {
		t.Fatalf("endpoint=%s rest=%v", rpcEndpoint, rest)
	}
	if _, err := applyGlobalFlags([]string{"--rpc"}); err == nil {
		t.Fatalf("expected error for missing --rpc value")
	}
}

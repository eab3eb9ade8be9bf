package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"farmledger/core"
	"farmledger/core/genesis"
	"farmledger/core/types"
	"farmledger/crypto"
	"farmledger/storage"
)

const testSecret = "rpc-test-secret-0123456789"

func rawAddr(last byte) [20]byte {
	var out [20]byte
	out[0] = 0x51
	out[19] = last
	return out
}

var (
	adminAddr = rawAddr(0xA0)
	aliceAddr = rawAddr(0x01)
)

func newBootstrappedNode(t *testing.T) *core.Node {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), nil)
	require.NoError(t, err)
	_, err = node.ApplyGenesis(&genesis.GenesisSpec{
		StartHeight: 1,
		Tokens: []genesis.TokenSpec{
			{Symbol: "FARM", Name: "Farm Reward", Decimals: 18, MintAuthority: genesis.ModuleAuthority},
			{Symbol: "LPT", Name: "LP Token", Decimals: 18, Balances: map[string]string{
				crypto.FromRaw(aliceAddr).String(): "1000",
			}},
		},
		Farm: genesis.FarmSpec{
			Admin:          crypto.FromRaw(adminAddr).String(),
			RewardAsset:    "FARM",
			RewardPerBlock: "10",
			StartBlock:     1,
			MaxMint:        "1000000",
		},
		Pools: []genesis.PoolSpec{{Asset: "LPT", AllocPoint: 100}},
	})
	require.NoError(t, err)
	return node
}

func newTestServer(t *testing.T, node *core.Node, opts Options) *httptest.Server {
	t.Helper()
	if opts.Auth == nil {
		opts.Auth = NewAuthenticator(testSecret, "farmd")
	}
	srv := httptest.NewServer(NewServer(node, opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func bearer(t *testing.T, subject [20]byte) string {
	t.Helper()
	token, err := IssueToken(testSecret, "farmd", subject, time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, url, auth, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq, err := http.NewRequest(http.MethodPost, url+"/", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealthzReportsBootstrap(t *testing.T) {
	empty, err := core.NewNode(storage.NewMemDB(), nil)
	require.NoError(t, err)
	srv := newTestServer(t, empty, Options{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	ready := newTestServer(t, newBootstrappedNode(t), Options{})
	resp, err = http.Get(ready.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueriesAndErrors(t *testing.T) {
	srv := newTestServer(t, newBootstrappedNode(t), Options{})

	_, resp := call(t, srv.URL, "", "farm_params", nil)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "FARM", result["rewardAsset"])
	assert.Equal(t, "10", result["rewardPerBlock"])
	assert.Equal(t, crypto.FromRaw(adminAddr).String(), result["admin"])

	_, resp = call(t, srv.URL, "", "farm_pools", nil)
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result, 2)

	_, resp = call(t, srv.URL, "", "farm_poolInfo", map[string]interface{}{"pool": 9})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codePoolNotFound, resp.Error.Code)

	_, resp = call(t, srv.URL, "", "farm_poolInfo", map[string]interface{}{"pool": 0, "bogus": true})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp := call(t, srv.URL, "", "farm_nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)

	_, resp = call(t, srv.URL, "", "token_balance", map[string]interface{}{
		"asset": "LPT", "account": crypto.FromRaw(aliceAddr).String(),
	})
	require.Nil(t, resp.Error)
	assert.Equal(t, "1000", resp.Result)
}

func TestMutationsRequireBearerToken(t *testing.T) {
	node := newBootstrappedNode(t)
	srv := newTestServer(t, node, Options{})
	module := crypto.FromRaw(node.ModuleAddress()).String()

	status, resp := call(t, srv.URL, "", "farm_deposit", map[string]interface{}{"pool": 1, "amount": "10"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)

	_, resp = call(t, srv.URL, "Bearer not-a-token", "farm_deposit", map[string]interface{}{"pool": 1, "amount": "10"})
	assert.Equal(t, codeUnauthorized, resp.Error.Code)

	alice := bearer(t, aliceAddr)
	_, resp = call(t, srv.URL, alice, "farm_deposit", map[string]interface{}{"pool": 1, "amount": "10"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeTransferFailed, resp.Error.Code)

	_, resp = call(t, srv.URL, alice, "token_approve", map[string]interface{}{
		"asset": "LPT", "spender": module, "amount": "100",
	})
	require.Nil(t, resp.Error)
	_, resp = call(t, srv.URL, alice, "farm_deposit", map[string]interface{}{"pool": 1, "amount": "10"})
	require.Nil(t, resp.Error)
	receipt := resp.Result.(map[string]interface{})
	assert.Equal(t, "10", receipt["principal"])

	_, resp = call(t, srv.URL, alice, "farm_setPaused", map[string]interface{}{"paused": true})
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
	_, resp = call(t, srv.URL, bearer(t, adminAddr), "farm_setPaused", map[string]interface{}{"paused": true})
	require.Nil(t, resp.Error)
	_, resp = call(t, srv.URL, alice, "farm_withdraw", map[string]interface{}{"pool": 1, "amount": "10"})
	assert.Equal(t, codeModulePaused, resp.Error.Code)
}

func TestMutationsRejectedWithoutSecret(t *testing.T) {
	srv := newTestServer(t, newBootstrappedNode(t), Options{Auth: NewAuthenticator("", "")})
	_, resp := call(t, srv.URL, "", "farm_harvest", map[string]interface{}{"pool": 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestAuthenticatorRejectsExpiredAndForeignTokens(t *testing.T) {
	auth := NewAuthenticator(testSecret, "farmd")
	token, err := IssueToken(testSecret, "farmd", aliceAddr, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = auth.Authenticate("Bearer " + token)
	assert.Error(t, err)

	token, err = IssueToken(testSecret, "other", aliceAddr, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = auth.Authenticate("Bearer " + token)
	assert.Error(t, err)

	token, err = IssueToken(testSecret, "farmd", aliceAddr, time.Hour, time.Now())
	require.NoError(t, err)
	addr, err := auth.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, aliceAddr, addr)
}

func TestRateLimiterThrottlesClient(t *testing.T) {
	srv := newTestServer(t, newBootstrappedNode(t), Options{Limiter: NewRateLimiter(0.001, 1)})
	status, resp := call(t, srv.URL, "", "chain_height", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, resp.Error)
	status, resp = call(t, srv.URL, "", "chain_height", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, codeRateLimited, resp.Error.Code)
}

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string   { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

func TestHubStreamsFilteredEvents(t *testing.T) {
	hub := NewHub(nil)
	srv := newTestServer(t, newBootstrappedNode(t), Options{Hub: hub})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?types=farm.deposit"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Emit(testEvent{&types.Event{Type: "farm.harvest"}})
	hub.Emit(testEvent{&types.Event{Type: "farm.deposit", Attributes: map[string]string{"pool": "1"}}})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame StreamEvent
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "farm.deposit", frame.Type)
	assert.Equal(t, "1", frame.Attributes["pool"])
}

func TestListenerCapsConnections(t *testing.T) {
	s := NewServer(newBootstrappedNode(t), Options{MaxConns: 1})
	ln, err := s.listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	first, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	held, err := ln.Accept()
	require.NoError(t, err)

	second, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	next := make(chan net.Conn, 1)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			next <- conn
		}
	}()
	select {
	case conn := <-next:
		conn.Close()
		t.Fatal("second connection accepted while the only slot was held")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, held.Close())
	select {
	case conn := <-next:
		require.NoError(t, conn.Close())
	case <-time.After(2 * time.Second):
		t.Fatal("slot was not released after the first connection closed")
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	clock := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return clock }

	require.True(t, limiter.allow("10.0.0.1"))
	clock = clock.Add(visitorSweepInterval / 2)
	require.True(t, limiter.allow("10.0.0.2"))
	assert.Len(t, limiter.visitors, 2)

	clock = clock.Add(visitorIdleTTL)
	require.True(t, limiter.allow("10.0.0.3"))
	assert.Len(t, limiter.visitors, 2)
	assert.NotContains(t, limiter.visitors, "10.0.0.1")
	assert.Contains(t, limiter.visitors, "10.0.0.2")
}

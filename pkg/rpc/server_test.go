package rpc

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/runtime"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/bulldozer"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/system"
)

const faucetLamports = 1_000_000_000_000_000

type testNode struct {
	server   *Server
	http     *httptest.Server
	executor *runtime.Executor
	accounts *accounts.MemoryDB
}

// newTestNode builds a server over a real executor, an in-memory accounts
// DB and a temporary journal.
func newTestNode(t *testing.T, configure ...func(*Config, *runtime.Config)) *testNode {
	t.Helper()
	journal, err := blockstore.Open(blockstore.DefaultConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	config := DefaultConfig()
	config.Addr = "127.0.0.1:0"
	execConfig := runtime.DefaultConfig()
	execConfig.FaucetLamports = faucetLamports
	execConfig.Clock = func() time.Time { return time.Unix(1_700_000_000, 0) }
	for _, fn := range configure {
		fn(&config, &execConfig)
	}

	logger, _ := test.NewNullLogger()
	registry := prometheus.NewRegistry()
	db := accounts.NewMemoryDB()
	executor, err := runtime.NewExecutor(db, journal, execConfig, runtime.NewMetrics(registry), logger.WithField("test", t.Name()))
	require.NoError(t, err)

	server := New(config, db, journal, executor, registry, logger.WithField("test", t.Name()))
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testNode{server: server, http: ts, executor: executor, accounts: db}
}

type rpcResponse struct {
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (n *testNode) call(t *testing.T, method string, params ...interface{}) rpcResponse {
	t.Helper()
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp, err := http.Post(n.http.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// result calls method and decodes a successful result into v.
func (n *testNode) result(t *testing.T, v interface{}, method string, params ...interface{}) {
	t.Helper()
	resp := n.call(t, method, params...)
	require.Nil(t, resp.Error, "%s: %v", method, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, v))
}

// value calls a method answering with a context wrapper and decodes the value.
func (n *testNode) value(t *testing.T, v interface{}, method string, params ...interface{}) uint64 {
	t.Helper()
	var wrapped struct {
		Context Context         `json:"context"`
		Value   json.RawMessage `json:"value"`
	}
	n.result(t, &wrapped, method, params...)
	require.NoError(t, json.Unmarshal(wrapped.Value, v))
	return wrapped.Context.Slot
}

func testKey(name string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte(name))
	return ed25519.NewKeyFromSeed(seed[:])
}

func address(key ed25519.PrivateKey) types.Pubkey {
	return types.PubkeyFromPublicKey(key.Public().(ed25519.PublicKey))
}

// fund airdrops lamports to a fresh wallet straight through the executor.
func (n *testNode) fund(t *testing.T, name string, lamports uint64) ed25519.PrivateKey {
	t.Helper()
	key := testKey(name)
	res, err := n.executor.Airdrop(context.Background(), address(key), lamports)
	require.NoError(t, err)
	require.Nil(t, res.Err)
	return key
}

func (n *testNode) wire(t *testing.T, payer ed25519.PrivateKey, ixs ...svm.Instruction) *runtime.Transaction {
	t.Helper()
	tx, err := runtime.NewTransaction(address(payer), n.executor.LatestBlockhash(), ixs...)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payer))
	return tx
}

func TestGetHealth(t *testing.T) {
	n := newTestNode(t)

	var health string
	n.result(t, &health, "getHealth")
	assert.Equal(t, "ok", health)

	n.server.SetHealthy(false)
	resp := n.call(t, "getHealth")
	require.NotNil(t, resp.Error)
	assert.Equal(t, NodeUnhealthy, resp.Error.Code)
}

func TestGetVersion(t *testing.T) {
	n := newTestNode(t)

	var version VersionInfo
	n.result(t, &version, "getVersion")
	assert.Equal(t, Version, version.SolanaCore)
}

func TestGetSlotAndBlockhash(t *testing.T) {
	n := newTestNode(t)
	n.fund(t, "wallet", 1_000)

	var slot uint64
	n.result(t, &slot, "getSlot")
	assert.EqualValues(t, 1, slot)

	resp := n.call(t, "getSlot", map[string]interface{}{"minContextSlot": 5})
	require.NotNil(t, resp.Error)
	assert.Equal(t, MinContextSlotNotReached, resp.Error.Code)

	var latest LatestBlockhash
	ctxSlot := n.value(t, &latest, "getLatestBlockhash")
	assert.EqualValues(t, 1, ctxSlot)
	assert.Equal(t, n.executor.LatestBlockhash().String(), latest.Blockhash)
	assert.EqualValues(t, 1+runtime.DefaultConfig().MaxBlockhashAge, latest.LastValidBlockHeight)

	var valid bool
	n.value(t, &valid, "isBlockhashValid", latest.Blockhash)
	assert.True(t, valid)
	n.value(t, &valid, "isBlockhashValid", types.Hash{9}.String())
	assert.False(t, valid)

	var first uint64
	n.result(t, &first, "getFirstAvailableBlock")
	assert.EqualValues(t, 0, first)
}

func TestGetMinimumBalanceForRentExemption(t *testing.T) {
	n := newTestNode(t)

	var lamports uint64
	n.result(t, &lamports, "getMinimumBalanceForRentExemption", 0)
	assert.EqualValues(t, 890_880, lamports)

	n.result(t, &lamports, "getMinimumBalanceForRentExemption", 100)
	assert.EqualValues(t, svm.DefaultRent().MinimumBalance(100), lamports)
}

func TestRequestAirdrop(t *testing.T) {
	n := newTestNode(t)
	wallet := address(testKey("wallet"))

	var sigStr string
	n.result(t, &sigStr, "requestAirdrop", wallet.String(), 2_000_000_000)

	var balance uint64
	n.value(t, &balance, "getBalance", wallet.String())
	assert.EqualValues(t, 2_000_000_000, balance)

	var statuses []*SignatureStatus
	n.value(t, &statuses, "getSignatureStatuses", []string{sigStr, types.Signature{1}.String()})
	require.Len(t, statuses, 2)
	require.NotNil(t, statuses[0])
	assert.EqualValues(t, 1, statuses[0].Slot)
	assert.Equal(t, "finalized", statuses[0].ConfirmationStatus)
	assert.Nil(t, statuses[0].Err)
	assert.Nil(t, statuses[1])

	var txn TransactionResponse
	n.result(t, &txn, "getTransaction", sigStr, map[string]string{"encoding": "base64"})
	assert.EqualValues(t, 1, txn.Slot)
	require.NotNil(t, txn.BlockTime)
	assert.EqualValues(t, 1_700_000_000, *txn.BlockTime)
	require.NotNil(t, txn.Meta)
	assert.Equal(t, []uint64{faucetLamports, 0, 0}, txn.Meta.PreBalances)
	assert.Equal(t, []uint64{faucetLamports - 2_000_000_000, 2_000_000_000, 0}, txn.Meta.PostBalances)
	assert.Contains(t, txn.Meta.LogMessages, "Program "+types.SystemProgramAddr.String()+" success")

	raw, err := base64.StdEncoding.DecodeString(txn.Transaction[0])
	require.NoError(t, err)
	decoded, err := runtime.DeserializeTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, sigStr, decoded.Signature().String())

	var infos []SignatureInfo
	n.result(t, &infos, "getSignaturesForAddress", wallet.String())
	require.Len(t, infos, 1)
	assert.Equal(t, sigStr, infos[0].Signature)

	resp := n.call(t, "getTransaction", types.Signature{1}.String())
	assert.Nil(t, resp.Error)
	assert.Empty(t, resp.Result)

	resp = n.call(t, "requestAirdrop", wallet.String(), 0)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestRequestAirdropDisabled(t *testing.T) {
	n := newTestNode(t, func(_ *Config, exec *runtime.Config) { exec.FaucetLamports = 0 })

	resp := n.call(t, "requestAirdrop", address(testKey("wallet")).String(), 1)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
}

func TestSendTransactionCreatesRecords(t *testing.T) {
	n := newTestNode(t)
	payer := n.fund(t, "alice", 10_000_000_000)
	alice := address(payer)

	tx := n.wire(t, payer, bulldozer.NewCreateUserInstruction(alice, &bulldozer.UserArgs{
		UserName: "alice",
		Name:     "Alice",
	}))

	var sigStr string
	n.result(t, &sigStr, "sendTransaction", base58.Encode(tx.Serialize()))
	assert.Equal(t, tx.Signature().String(), sigStr)

	userAddr, _, err := bulldozer.GetUserAddress(alice)
	require.NoError(t, err)

	var parsed struct {
		Data struct {
			Program string `json:"program"`
			Parsed  struct {
				Type string `json:"type"`
				Info struct {
					Authority string `json:"authority"`
					UserName  string `json:"userName"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
		Owner string `json:"owner"`
	}
	n.value(t, &parsed, "getAccountInfo", userAddr.String(), map[string]string{"encoding": "jsonParsed"})
	assert.Equal(t, "bulldozer", parsed.Data.Program)
	assert.Equal(t, "User", parsed.Data.Parsed.Type)
	assert.Equal(t, alice.String(), parsed.Data.Parsed.Info.Authority)
	assert.Equal(t, "alice", parsed.Data.Parsed.Info.UserName)
	assert.Equal(t, types.BulldozerProgramAddr.String(), parsed.Owner)

	var matches []struct {
		Pubkey string `json:"pubkey"`
		Type   string `json:"type"`
	}
	n.value(t, &matches, "getBulldozerAccounts", map[string]string{"type": "User", "authority": alice.String()})
	require.Len(t, matches, 1)
	assert.Equal(t, userAddr.String(), matches[0].Pubkey)
	assert.Equal(t, "User", matches[0].Type)

	n.value(t, &matches, "getBulldozerAccounts", map[string]string{"type": "User", "authority": address(testKey("bob")).String()})
	assert.Empty(t, matches)

	resp := n.call(t, "getBulldozerAccounts", map[string]string{"type": "User", "workspace": alice.String()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)

	resp = n.call(t, "getBulldozerAccounts", map[string]string{"type": "Spreadsheet"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)

	acc, err := n.accounts.GetAccount(userAddr)
	require.NoError(t, err)
	var keyed []KeyedAccountInfo
	n.result(t, &keyed, "getProgramAccounts", types.BulldozerProgramAddr.String(), map[string]interface{}{
		"filters": []interface{}{
			map[string]interface{}{"dataSize": len(acc.Data)},
			map[string]interface{}{"memcmp": map[string]interface{}{
				"offset": 0,
				"bytes":  base58.Encode(bulldozer.AccountTypeUser.Discriminator()),
			}},
		},
	})
	require.Len(t, keyed, 1)
	assert.Equal(t, userAddr.String(), keyed[0].Pubkey)

	n.result(t, &keyed, "getProgramAccounts", types.BulldozerProgramAddr.String(), map[string]interface{}{
		"filters": []interface{}{map[string]interface{}{"dataSize": len(acc.Data) + 1}},
	})
	assert.Empty(t, keyed)
}

func TestSendTransactionFailures(t *testing.T) {
	n := newTestNode(t)
	payer := n.fund(t, "alice", 1_000)
	bob := address(testKey("bob"))

	overdraw := n.wire(t, payer, system.NewTransferInstruction(address(payer), bob, 5_000))
	resp := n.call(t, "sendTransaction", base64.StdEncoding.EncodeToString(overdraw.Serialize()), map[string]string{"encoding": "base64"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, SendTransactionPreflightFailure, resp.Error.Code)
	data, ok := resp.Error.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, overdraw.Signature().String(), data["signature"])
	txErr, ok := data["err"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "InsufficientFunds", txErr["name"])

	// The failed transaction was journaled, so resending it is a replay.
	resp = n.call(t, "sendTransaction", base58.Encode(overdraw.Serialize()))
	require.NotNil(t, resp.Error)
	assert.Equal(t, SendTransactionPreflightFailure, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "already been processed")

	again := n.wire(t, payer, system.NewTransferInstruction(address(payer), bob, 6_000))
	var sigStr string
	n.result(t, &sigStr, "sendTransaction", base58.Encode(again.Serialize()), map[string]bool{"skipPreflight": true})
	var statuses []*SignatureStatus
	n.value(t, &statuses, "getSignatureStatuses", []string{sigStr})
	require.NotNil(t, statuses[0])
	require.NotNil(t, statuses[0].Err)
	assert.Equal(t, "InsufficientFunds", statuses[0].Err.Name)

	forged := n.wire(t, payer, system.NewTransferInstruction(address(payer), bob, 1))
	forged.Signatures[0][0] ^= 0xFF
	resp = n.call(t, "sendTransaction", base58.Encode(forged.Serialize()))
	require.NotNil(t, resp.Error)
	assert.Equal(t, TransactionSignatureVerificationFailure, resp.Error.Code)

	resp = n.call(t, "sendTransaction", base58.Encode([]byte{1, 2, 3}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestSendRateLimit(t *testing.T) {
	n := newTestNode(t, func(c *Config, _ *runtime.Config) {
		c.SendRate = 0.001
		c.SendBurst = 1
	})
	wallet := address(testKey("wallet")).String()

	resp := n.call(t, "requestAirdrop", wallet, 1_000)
	require.Nil(t, resp.Error)

	resp = n.call(t, "requestAirdrop", wallet, 1_000)
	require.NotNil(t, resp.Error)
	assert.Equal(t, RateLimited, resp.Error.Code)
}

func TestGetAccountInfoEncodings(t *testing.T) {
	n := newTestNode(t)
	pubkey := types.Pubkey{7}
	payload := []byte("schema records are plain bytes")
	require.NoError(t, n.accounts.SetAccount(pubkey, &accounts.Account{
		Lamports: 42,
		Data:     payload,
		Owner:    types.BulldozerProgramAddr,
	}))

	for _, enc := range []Encoding{EncodingBase58, EncodingBase64, EncodingBase64Zstd} {
		var info AccountInfo
		n.value(t, &info, "getAccountInfo", pubkey.String(), map[string]string{"encoding": string(enc)})
		pair, ok := info.Data.([]interface{})
		require.True(t, ok, enc)
		assert.Equal(t, string(enc), pair[1])
		decoded, err := DecodeAccountData(pair[0].(string), enc)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded, enc)
		assert.EqualValues(t, len(payload), info.Space)
	}

	// Undecodable data falls back to base64 under jsonParsed.
	var info AccountInfo
	n.value(t, &info, "getAccountInfo", pubkey.String(), map[string]string{"encoding": "jsonParsed"})
	pair := info.Data.([]interface{})
	assert.Equal(t, "base64", pair[1])

	n.value(t, &info, "getAccountInfo", pubkey.String(), map[string]interface{}{
		"dataSlice": map[string]int{"offset": 7, "length": 7},
	})
	pair = info.Data.([]interface{})
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("records")), pair[0])

	var missing *AccountInfo
	n.value(t, &missing, "getAccountInfo", types.Pubkey{8}.String())
	assert.Nil(t, missing)
}

func TestGetMultipleAccounts(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, n.accounts.SetAccount(types.Pubkey{1}, &accounts.Account{Lamports: 10, Owner: types.SystemProgramAddr}))

	var infos []*AccountInfo
	n.value(t, &infos, "getMultipleAccounts", []string{types.Pubkey{1}.String(), types.Pubkey{2}.String()})
	require.Len(t, infos, 2)
	require.NotNil(t, infos[0])
	assert.EqualValues(t, 10, infos[0].Lamports)
	assert.Nil(t, infos[1])

	resp := n.call(t, "getMultipleAccounts", []string{"not-a-key"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	n := newTestNode(t)

	resp := n.call(t, "getClusterNodes")
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
	assert.Equal(t, ErrMethodNotFound.Message, resp.Error.Message)
}

func TestHandlerPanicIsInternalError(t *testing.T) {
	n := newTestNode(t)
	n.server.handlers["getBroken"] = func(context.Context, json.RawMessage) (interface{}, *RPCError) {
		panic("broken handler")
	}

	resp := n.call(t, "getBroken")
	require.NotNil(t, resp.Error)
	assert.Equal(t, InternalError, resp.Error.Code)

	// The server keeps serving.
	resp = n.call(t, "getHealth")
	assert.Nil(t, resp.Error)
}

func TestInvalidParams(t *testing.T) {
	n := newTestNode(t)

	resp := n.call(t, "getBalance")
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)

	resp = n.call(t, "getBalance", "invalid-pubkey")
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)

	// Params must be positional.
	body := `{"jsonrpc":"2.0","id":1,"method":"getBalance","params":{"pubkey":"x"}}`
	httpResp, err := http.Post(n.http.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var out rpcResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&out))
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrInvalidParams.Code, out.Error.Code)
	assert.Equal(t, ErrInvalidParams.Message, out.Error.Message)
}

func TestBatchRequest(t *testing.T) {
	n := newTestNode(t)

	body := `[
		{"jsonrpc":"2.0","id":1,"method":"getHealth"},
		{"jsonrpc":"2.0","id":2,"method":"getSlot"},
		{"jsonrpc":"1.0","id":3,"method":"getSlot"}
	]`
	resp, err := http.Post(n.http.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 3)
	assert.Nil(t, out[0].Error)
	assert.JSONEq(t, `"ok"`, string(out[0].Result))
	assert.Nil(t, out[1].Error)
	require.NotNil(t, out[2].Error)
	assert.Equal(t, InvalidRequest, out[2].Error.Code)
}

func TestParseErrorAndMethodNotAllowed(t *testing.T) {
	n := newTestNode(t)

	resp, err := http.Post(n.http.URL, "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	var out rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.NotNil(t, out.Error)
	assert.Equal(t, ParseError, out.Error.Code)

	resp, err = http.Get(n.http.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	n := newTestNode(t)

	req, err := http.NewRequest(http.MethodOptions, n.http.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	n := newTestNode(t)
	n.call(t, "getHealth")
	n.fund(t, "wallet", 1)

	resp, err := http.Get(n.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `bulldozer_rpc_requests_total{method="getHealth",result="ok"} 1`)
	assert.Contains(t, string(body), `bulldozer_runtime_transactions_total{status="success"} 1`)
}

func TestServerLifecycle(t *testing.T) {
	n := newTestNode(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.server.Start(ctx) }()

	// Give ListenAndServe a moment before shutting down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoError(t, n.server.Stop())
}

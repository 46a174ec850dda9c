package httphandlers

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lumerin-protocol/proposal-verifier/internal/config"
	"github.com/Lumerin-protocol/proposal-verifier/internal/evmscript"
	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/Lumerin-protocol/proposal-verifier/internal/repositories/contracts"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/Lumerin-protocol/proposal-verifier/internal/verifier"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr  = common.HexToAddress("0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2")
	holderAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func newTestEngine(eventLog *contracts.EventLog) (*gin.Engine, *sighash.Registry) {
	log := lib.NewTestLogger()
	registry := sighash.NewDefaultRegistry()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Blockchain.EthNodeAddress = "wss://secret-node.example/key"

	engine := NewHTTPHandler(
		registry,
		verifier.NewVerifier(registry, log),
		eventLog,
		cfg,
		lib.MustParseURL("http://localhost:8080"),
		log,
	)
	return engine, registry
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func mintCalldata(t *testing.T, amount int64) []byte {
	sig, err := sighash.ParseSignature("mint(address,uint256)")
	require.NoError(t, err)
	args, err := sig.Arguments()
	require.NoError(t, err)
	packed, err := args.Pack(holderAddr, big.NewInt(amount))
	require.NoError(t, err)
	return append(sig.Selector().Bytes(), packed...)
}

func TestHealthCheck(t *testing.T) {
	engine, _ := newTestEngine(nil)

	w := doRequest(t, engine, http.MethodGet, "/healthcheck", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	var res map[string]string
	decode(t, w, &res)
	require.Equal(t, "healthy", res["status"])
	require.Equal(t, config.BuildVersion, res["version"])
}

func TestRequestIDIsPreserved(t *testing.T) {
	engine, _ := newTestEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestGetSelector(t *testing.T) {
	engine, _ := newTestEngine(nil)

	tcs := []struct {
		path     string
		code     int
		selector string
	}{
		{"/selectors?signature=transfer(address,uint256)", http.StatusOK, "0xa9059cbb"},
		{"/selectors?signature=", http.StatusOK, "0xc5d24601"},
		{"/selectors", http.StatusBadRequest, ""},
	}

	for _, tc := range tcs {
		t.Run(tc.path, func(t *testing.T) {
			w := doRequest(t, engine, http.MethodGet, tc.path, nil)
			require.Equal(t, tc.code, w.Code)
			if tc.code != http.StatusOK {
				return
			}
			var res SelectorResponse
			decode(t, w, &res)
			require.Equal(t, tc.selector, res.Selector)
		})
	}
}

func TestGetTopic(t *testing.T) {
	engine, _ := newTestEngine(nil)

	w := doRequest(t, engine, http.MethodGet, "/topics?signature=Transfer(address,address,uint256)", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res TopicResponse
	decode(t, w, &res)
	require.Equal(t, "Transfer(address,address,uint256)", res.Signature)
	require.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", res.Topic)

	w = doRequest(t, engine, http.MethodGet, "/topics", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLookupSelector(t *testing.T) {
	engine, _ := newTestEngine(nil)

	w := doRequest(t, engine, http.MethodGet, "/selectors/0xa9059cbb", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res LookupResponse
	decode(t, w, &res)
	require.Equal(t, []string{"transfer(address,uint256)"}, res.Signatures)

	w = doRequest(t, engine, http.MethodGet, "/selectors/0xdeadbeef", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, engine, http.MethodGet, "/selectors/0xzz", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignatures(t *testing.T) {
	engine, registry := newTestEngine(nil)
	before := registry.Len()

	w := doRequest(t, engine, http.MethodPost, "/signatures", RegisterSignaturesRequest{
		Functions: []string{"grantRole(bytes32 role, address account)"},
		Events:    []string{"RoleGranted(bytes32 indexed role, address indexed account, address sender)"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, before+2, registry.Len())

	var res SignaturesResponse
	decode(t, w, &res)
	require.Len(t, res.Signatures, 2)
	require.Equal(t, sighash.KindFunction, res.Signatures[0].Kind)
	require.Equal(t, "grantRole(bytes32,address)", res.Signatures[0].Signature)
	require.Equal(t, "0x2f2ff15d", res.Signatures[0].Selector)
	require.Empty(t, res.Signatures[0].Topic)
	require.Equal(t, "http://localhost:8080/selectors/0x2f2ff15d", res.Signatures[0].Self)
	require.Equal(t, sighash.KindEvent, res.Signatures[1].Kind)
	require.Equal(t, "RoleGranted(bytes32,address,address)", res.Signatures[1].Signature)
	require.Equal(t, sighash.GetEventTopic("RoleGranted(bytes32,address,address)"), res.Signatures[1].Topic)
	require.Empty(t, res.Signatures[1].Selector)

	// events are not resolvable by selector
	w = doRequest(t, engine, http.MethodGet, "/selectors/"+sighash.GetFunctionSignature("RoleGranted(bytes32,address,address)"), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/signatures", RegisterSignaturesRequest{
		Functions: []string{"ok()"},
		Events:    []string{"broken("},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, before+2, registry.Len())

	w = doRequest(t, engine, http.MethodPost, "/signatures", RegisterSignaturesRequest{
		Functions: []string{"foo(float)"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, engine, http.MethodPost, "/signatures", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, engine, http.MethodGet, "/signatures", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	require.Equal(t, before+2, res.Total)
	require.Len(t, res.Signatures, before+2)
}

func TestLookupSelectorIgnoresEvents(t *testing.T) {
	engine, _ := newTestEngine(nil)

	w := doRequest(t, engine, http.MethodGet, "/selectors/0xddf252ad", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerify(t *testing.T) {
	engine, _ := newTestEngine(nil)
	script := evmscript.EncodeHex([]evmscript.Action{{To: tokenAddr, Data: mintCalldata(t, 100)}})

	w := doRequest(t, engine, http.MethodPost, "/verify", VerifyRequest{
		Script:   script,
		Expected: []ExpectedCallRequest{{To: tokenAddr.Hex(), Signature: "mint(address,uint256)"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Valid bool
		Calls []struct {
			Match bool
			Args  []interface{}
		}
	}
	decode(t, w, &report)
	require.True(t, report.Valid)
	require.Len(t, report.Calls, 1)
	require.Equal(t, []interface{}{holderAddr.Hex(), "100"}, report.Calls[0].Args)

	w = doRequest(t, engine, http.MethodPost, "/verify", VerifyRequest{
		Script:   script,
		Expected: []ExpectedCallRequest{{To: tokenAddr.Hex(), Signature: "burn(address,uint256)"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &report)
	require.False(t, report.Valid)
}

func TestVerifyBadRequests(t *testing.T) {
	engine, _ := newTestEngine(nil)

	tcs := []struct {
		name string
		body interface{}
	}{
		{"missing script", VerifyRequest{}},
		{"bad address", VerifyRequest{Script: "0x00000001", Expected: []ExpectedCallRequest{{To: "0x1234"}}}},
		{"bad hex", VerifyRequest{Script: "0xzz"}},
		{"unsupported spec id", VerifyRequest{Script: "0x00000002"}},
		{"truncated script", VerifyRequest{Script: "0x0000000160ebdc73"}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, engine, http.MethodPost, "/verify", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDescribe(t *testing.T) {
	engine, _ := newTestEngine(nil)
	data := mintCalldata(t, 7)

	w := doRequest(t, engine, http.MethodPost, "/describe", DescribeRequest{
		To:   tokenAddr.Hex(),
		Data: common.Bytes2Hex(data),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var call struct {
		Signature string
		Match     bool
		Reason    string
		Args      []interface{}
	}
	decode(t, w, &call)
	require.True(t, call.Match)
	require.Equal(t, "mint(address,uint256)", call.Signature)
	require.Equal(t, []interface{}{holderAddr.Hex(), "7"}, call.Args)

	w = doRequest(t, engine, http.MethodPost, "/describe", DescribeRequest{
		Data: "0xddf252ad" + common.Bytes2Hex(make([]byte, 96)),
	})
	require.Equal(t, http.StatusOK, w.Code)
	call.Match, call.Signature = true, ""
	decode(t, w, &call)
	require.False(t, call.Match)
	require.Equal(t, verifier.ReasonUnknownSelector, call.Reason)

	script := evmscript.EncodeHex([]evmscript.Action{{To: tokenAddr, Data: data}, {To: tokenAddr, Data: []byte{0xde, 0xad, 0xbe, 0xef}}})
	w = doRequest(t, engine, http.MethodPost, "/describe", DescribeRequest{Script: script})
	require.Equal(t, http.StatusOK, w.Code)

	var calls struct {
		Calls []struct {
			Index  int
			Reason string
		}
	}
	decode(t, w, &calls)
	require.Len(t, calls.Calls, 2)
	require.Equal(t, verifier.ReasonUnknownSelector, calls.Calls[1].Reason)

	w = doRequest(t, engine, http.MethodPost, "/describe", DescribeRequest{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEvents(t *testing.T) {
	engine, _ := newTestEngine(nil)
	w := doRequest(t, engine, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Total  uint64
		Events []contracts.WatchedEvent
	}
	decode(t, w, &res)
	require.Empty(t, res.Events)

	eventLog := contracts.NewEventLog(10)
	for i := 0; i < 3; i++ {
		eventLog.Add(contracts.WatchedEvent{Signature: "ExecuteVote(uint256)", BlockNumber: uint64(i)})
	}
	engine, _ = newTestEngine(eventLog)

	w = doRequest(t, engine, http.MethodGet, "/events?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	require.Equal(t, uint64(3), res.Total)
	require.Len(t, res.Events, 2)
	require.Equal(t, uint64(2), res.Events[0].BlockNumber)

	w = doRequest(t, engine, http.MethodGet, "/events?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConfigHidesNodeAddress(t *testing.T) {
	engine, _ := newTestEngine(nil)

	w := doRequest(t, engine, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "secret-node")
	require.Contains(t, w.Body.String(), config.BuildVersion)
}

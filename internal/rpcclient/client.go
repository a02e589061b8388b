// Package rpcclient is a JSON-RPC client for a bitcoind-compatible node.
// It fetches raw transactions, broadcasts, estimates fees and lists the
// wallet's fee outputs.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/jellydator/ttlcache/v3"

	"github.com/Klingon-tech/cat721-cli/internal/log"
	"github.com/Klingon-tech/cat721-cli/pkg/types"
)

const (
	// DefaultTimeout bounds every call.
	DefaultTimeout = 10 * time.Second
	// rawTxTTL is how long decoded transactions stay cached. Confirmed
	// transactions never change, so this only bounds memory.
	rawTxTTL      = 10 * time.Minute
	rawTxCapacity = 1024
)

var (
	// ErrNotFound is returned when the node does not know a transaction.
	ErrNotFound = errors.New("transaction not found")
	// ErrNetwork wraps failures to reach the node or read its answer.
	// Callers may retry these.
	ErrNetwork = errors.New("rpc network error")
)

// Client is a JSON-RPC 1.0 HTTP client with optional basic auth.
type Client struct {
	endpoint string
	user     string
	pass     string
	http     *http.Client
	nextID   atomic.Uint64

	txCache *ttlcache.Cache[types.Hash, *wire.MsgTx]
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sets basic auth credentials.
func WithAuth(user, pass string) Option {
	return func(c *Client) {
		c.user = user
		c.pass = pass
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client targeting endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		txCache: ttlcache.New[types.Hash, *wire.MsgTx](
			ttlcache.WithTTL[types.Hash, *wire.MsgTx](rawTxTTL),
			ttlcache.WithCapacity[types.Hash, *wire.MsgTx](rawTxCapacity),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     uint64          `json:"id"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// bitcoind error codes used here.
const (
	codeInvalidAddressOrKey = -5
)

// Call invokes method with positional params and decodes the result into
// result. A nil result discards it.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(request{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNetwork, method, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNetwork, method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrNetwork, method, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("rpc %s: http %d: check rpc credentials", method, resp.StatusCode)
	}

	// bitcoind answers errors with a 500 status and a JSON body.
	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		// Proxies and a node still warming up answer with non-JSON bodies.
		return fmt.Errorf("%w: %s: http %d: decode response: %v", ErrNetwork, method, resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// RawTransaction fetches and decodes a transaction. Results are cached.
func (c *Client) RawTransaction(ctx context.Context, txid types.Hash) (*wire.MsgTx, error) {
	if item := c.txCache.Get(txid); item != nil {
		return item.Value(), nil
	}

	var rawHex string
	err := c.Call(ctx, "getrawtransaction", []interface{}{txid.String(), false}, &rawHex)
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == codeInvalidAddressOrKey {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txid)
	}
	if err != nil {
		return nil, fmt.Errorf("getrawtransaction %s: %w", txid, err)
	}

	tx, err := DecodeTx(rawHex)
	if err != nil {
		return nil, fmt.Errorf("getrawtransaction %s: %w", txid, err)
	}
	if got := types.HashFromChain(tx.TxHash()); got != txid {
		return nil, fmt.Errorf("getrawtransaction %s: node returned %s", txid, got)
	}
	c.txCache.Set(txid, tx, ttlcache.DefaultTTL)
	return tx, nil
}

// Broadcast submits a signed transaction and returns its txid.
func (c *Client) Broadcast(ctx context.Context, tx *wire.MsgTx) (types.Hash, error) {
	rawHex, err := EncodeTx(tx)
	if err != nil {
		return types.Hash{}, err
	}
	var txidHex string
	if err := c.Call(ctx, "sendrawtransaction", []interface{}{rawHex}, &txidHex); err != nil {
		return types.Hash{}, fmt.Errorf("sendrawtransaction: %w", err)
	}
	txid, err := types.ParseHash(txidHex)
	if err != nil {
		return types.Hash{}, fmt.Errorf("sendrawtransaction: bad txid %q: %w", txidHex, err)
	}
	c.txCache.Set(txid, tx, ttlcache.DefaultTTL)
	log.RPC.Debug().Str("txid", txidHex).Msg("Transaction broadcast")
	return txid, nil
}

// EstimateFeeRate returns a fee rate in sat/vB for confirmation within
// blocks. It returns 0 when the node has no estimate.
func (c *Client) EstimateFeeRate(ctx context.Context, blocks int) (uint64, error) {
	var res struct {
		FeeRate *float64 `json:"feerate"`
		Errors  []string `json:"errors"`
	}
	if err := c.Call(ctx, "estimatesmartfee", []interface{}{blocks}, &res); err != nil {
		return 0, fmt.Errorf("estimatesmartfee: %w", err)
	}
	if res.FeeRate == nil || *res.FeeRate <= 0 {
		return 0, nil
	}
	perKvB, err := btcutil.NewAmount(*res.FeeRate)
	if err != nil {
		return 0, fmt.Errorf("estimatesmartfee: %w", err)
	}
	rate := uint64(perKvB) / 1000
	if rate == 0 {
		rate = 1
	}
	return rate, nil
}

// ListUnspent returns the node wallet's unspent outputs for addr.
func (c *Client) ListUnspent(ctx context.Context, addr string) ([]types.UTXO, error) {
	var res []struct {
		TxID         string  `json:"txid"`
		Vout         uint32  `json:"vout"`
		ScriptPubKey string  `json:"scriptPubKey"`
		Amount       float64 `json:"amount"`
	}
	if err := c.Call(ctx, "listunspent", []interface{}{0, 9999999, []string{addr}}, &res); err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}

	out := make([]types.UTXO, 0, len(res))
	for _, r := range res {
		txid, err := types.ParseHash(r.TxID)
		if err != nil {
			return nil, fmt.Errorf("listunspent: %w", err)
		}
		script, err := hex.DecodeString(r.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("listunspent: script: %w", err)
		}
		amt, err := btcutil.NewAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("listunspent: amount: %w", err)
		}
		out = append(out, types.UTXO{
			Outpoint: types.Outpoint{TxID: txid, Index: r.Vout},
			Script:   script,
			Satoshis: uint64(amt),
		})
	}
	return out, nil
}

// DecodeTx parses a hex serialized transaction, witness included.
func DecodeTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("decode tx hex: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserialize tx: %w", err)
	}
	return tx, nil
}

// EncodeTx serializes a transaction to hex.
func EncodeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize tx: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

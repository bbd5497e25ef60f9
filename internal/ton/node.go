package ton

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	MainnetEndpoint = "https://toncenter.com/api/v2/jsonRPC"
	TestnetEndpoint = "https://testnet.toncenter.com/api/v2/jsonRPC"
)

// Node is the subset of a TON node API the signer needs.
type Node interface {
	GetBalance(ctx context.Context, addr string) (*big.Int, error)
	GetSeqno(ctx context.Context, addr string) (uint32, error)
	SendBoc(ctx context.Context, boc []byte) error
}

// Toncenter talks to a toncenter v2 JSON-RPC endpoint.
type Toncenter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// DefaultEndpoint returns the public toncenter endpoint for network.
func DefaultEndpoint(network string) string {
	if network == "mainnet" {
		return MainnetEndpoint
	}
	return TestnetEndpoint
}

func NewToncenter(endpoint, apiKey string, timeout time.Duration, log *slog.Logger) *Toncenter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Toncenter{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type rpcRequest struct {
	ID      int            `json:"id"`
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type rpcResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Code   int             `json:"code"`
}

type getMethodResult struct {
	Stack    [][]json.RawMessage `json:"stack"`
	ExitCode int                 `json:"exit_code"`
}

func (c *Toncenter) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	raw, err := c.call(ctx, "getAddressBalance", map[string]any{"address": addr})
	if err != nil {
		return nil, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	balance, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("decode balance: bad number %q", s)
	}
	return balance, nil
}

// GetSeqno runs the wallet's seqno get-method. An undeployed wallet has no
// code to run and reports seqno 0.
func (c *Toncenter) GetSeqno(ctx context.Context, addr string) (uint32, error) {
	raw, err := c.call(ctx, "runGetMethod", map[string]any{
		"address": addr,
		"method":  "seqno",
		"stack":   []any{},
	})
	if err != nil {
		return 0, err
	}
	var res getMethodResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return 0, fmt.Errorf("decode seqno: %w", err)
	}
	if res.ExitCode != 0 || len(res.Stack) == 0 {
		return 0, nil
	}
	entry := res.Stack[0]
	if len(entry) < 2 {
		return 0, fmt.Errorf("decode seqno: short stack entry")
	}
	var num string
	if err := json.Unmarshal(entry[1], &num); err != nil {
		return 0, fmt.Errorf("decode seqno: %w", err)
	}
	seqno, err := strconv.ParseUint(strings.TrimPrefix(num, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("decode seqno: %w", err)
	}
	return uint32(seqno), nil
}

func (c *Toncenter) SendBoc(ctx context.Context, boc []byte) error {
	_, err := c.call(ctx, "sendBoc", map[string]any{"boc": base64.StdEncoding.EncodeToString(boc)})
	return err
}

func (c *Toncenter) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{ID: 1, JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		if c.log != nil {
			c.log.Warn("toncenter returned non-json body", "method", method, "status", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode %s response: status %d: %w", method, resp.StatusCode, err)
	}
	if !out.OK {
		return nil, fmt.Errorf("%s failed: status %d: %s", method, resp.StatusCode, out.Error)
	}
	return out.Result, nil
}

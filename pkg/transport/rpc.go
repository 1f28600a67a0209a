package transport

import (
    "context"
    "encoding/json"
    "fmt"
)

// MethodNetPeers is the OpenEthereum/Parity method returning the peer list.
const MethodNetPeers = "parity_netPeers"

// DefaultRPCPort is the JSON-RPC HTTP port nodes are queried on.
const DefaultRPCPort = 8545

// Request is a JSON-RPC 2.0 request body.
type Request struct {
    Method  string        `json:"method"`
    Params  []interface{} `json:"params"`
    ID      int           `json:"id"`
    JSONRPC string        `json:"jsonrpc"`
}

// NewRequest returns a request for method with no params and id 1.
func NewRequest(method string) Request {
    return Request{Method: method, Params: []interface{}{}, ID: 1, JSONRPC: "2.0"}
}

// RPCError is the error object of a JSON-RPC 2.0 response.
type RPCError struct {
    Code    int    `json:"code"`
    Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Response is a JSON-RPC 2.0 response with the result left raw.
type Response struct {
    ID      json.RawMessage `json:"id"`
    JSONRPC string          `json:"jsonrpc"`
    Result  json.RawMessage `json:"result"`
    Error   *RPCError       `json:"error,omitempty"`
}

// ReportFunc returns the JSON-encoded summary of the last pipeline run.
// Using []byte keeps the transports free of pipeline types.
type ReportFunc func(ctx context.Context) ([]byte, error)

// ReportServer exposes a finished run to other processes.
type ReportServer interface {
    Start(ctx context.Context, summary ReportFunc, overlay ReportFunc) error
    Addr() string
    Stop(ctx context.Context) error
}

// ReportClient fetches a served report from addr (host:port).
type ReportClient interface {
    GetSummary(ctx context.Context, addr string) ([]byte, error)
    GetOverlay(ctx context.Context, addr string) ([]byte, error)
}

package bridge

import (
	"context"
	"encoding/json"
)

// Send is the legacy web3 calling convention. Same semantics as Request.
func (e *Engine) Send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return e.Request(ctx, RequestArgs{Method: method, Params: params})
}

// LegacyPayload is a web3 sendAsync request.
type LegacyPayload struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// LegacyResult mirrors the request shape plus the computed result.
type LegacyResult struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result"`
}

// LegacyCallback receives the outcome of SendAsync. errMsg is empty on success.
type LegacyCallback func(errMsg string, result *LegacyResult)

// SendAsync issues payload as a call and reports the outcome through cb,
// exactly once, from another goroutine. The payload's own id is echoed back
// but never used as the call identity.
func (e *Engine) SendAsync(ctx context.Context, payload LegacyPayload, cb LegacyCallback) {
	var params any
	if len(payload.Params) > 0 {
		params = payload.Params
	}
	c, err := e.Call(ctx, payload.Method, params)

	go func() {
		if err != nil {
			cb(err.Error(), nil)
			return
		}
		res, werr := c.Wait(ctx)
		if werr != nil {
			cb(werr.Error(), nil)
			return
		}
		cb("", &LegacyResult{
			JSONRPC: payload.JSONRPC,
			ID:      payload.ID,
			Method:  payload.Method,
			Params:  payload.Params,
			Result:  res,
		})
	}()
}

// Package wire defines the JSON-RPC envelopes exchanged between the frame and its host.
package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the protocol marker carried by every outbound envelope.
const Version = "2.0"

// Notification method names recognized on the inbound channel.
const (
	MethodConnect         = "connect"
	MethodClose           = "close"
	MethodNotification    = "notification"
	MethodChainChanged    = "chainChanged"
	MethodNetworkChanged  = "networkChanged"
	MethodAccountsChanged = "accountsChanged"
)

// Well-known request methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodNetVersion      = "net_version"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is the outbound call envelope. It is also what the host decodes.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a reply to a single Request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Notification is an unsolicited host-to-frame message.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorObject is the error descriptor of a reply-error.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return strconv.Itoa(e.Code) + ": " + e.Message
}

// NewRequest builds an outbound envelope for a numeric call identity.
func NewRequest(id uint64, method string, params any) (*Request, error) {
	req := &Request{
		JSONRPC: Version,
		ID:      json.RawMessage(strconv.FormatUint(id, 10)),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("wire:envelope - failed to encode params for %s: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// NewResult builds a reply-success for id. A nil result is sent as JSON null.
func NewResult(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("wire:envelope - failed to encode result: %w", err)
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewError builds a reply-error for id.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message},
	}
}

// NewNotification builds a notification envelope.
func NewNotification(method string, params any) (*Notification, error) {
	n := &Notification{JSONRPC: Version, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("wire:envelope - failed to encode %s params: %w", method, err)
		}
		n.Params = raw
	}
	return n, nil
}

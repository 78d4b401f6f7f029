package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/morezero/frame-bridge/internal/config"
	"github.com/morezero/frame-bridge/pkg/bridge"
	"github.com/morezero/frame-bridge/pkg/commsutil"
	"github.com/morezero/frame-bridge/pkg/wire"
)

const callLogPrefix = "server:call"

// RunCall sends one request through the bridge and writes the result JSON to w.
// eth_requestAccounts goes through Enable so the session becomes connected.
func RunCall(method string, params json.RawMessage, w io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", callLogPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName+"-call")
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", callLogPrefix, err)
	}
	defer nc.Close()

	ctx := context.Background()
	f, err := newFrame(ctx, cfg, nc)
	if err != nil {
		return err
	}
	defer f.close()

	result, err := call(ctx, f.engine, method, params)
	if err != nil {
		return fmt.Errorf("%s - %s: %w", callLogPrefix, method, err)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("%s - failed to encode result: %w", callLogPrefix, err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func call(ctx context.Context, engine bridgeEngine, method string, params json.RawMessage) (any, error) {
	if method == wire.MethodRequestAccounts {
		return engine.Enable(ctx)
	}
	var p any
	if len(params) > 0 {
		p = params
	}
	return engine.Request(ctx, bridge.RequestArgs{Method: method, Params: p})
}

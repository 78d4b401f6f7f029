package server

import (
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/frame-bridge/internal/config"
	"github.com/morezero/frame-bridge/pkg/bootstrap"
	"github.com/morezero/frame-bridge/pkg/commsutil"
	"github.com/morezero/frame-bridge/pkg/dispatcher"
)

const hostLogPrefix = "server:host"

// Close code sent to the frame when the dev host stops.
const hostShutdownCode = 1000

// RunHost starts the development wallet host, blocks until shutdown signal,
// then tells the frame it is going away.
func RunHost() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", hostLogPrefix, err)
	}
	if err := cfg.ValidateForHost(); err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	nc, err := commsutil.ConnectWith(commsutil.ConnectParams{
		URL:           cfg.COMMSURL,
		Name:          cfg.COMMSName + "-host",
		MaxReconnects: -1,
	})
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", hostLogPrefix, err)
	}

	h, err := startHost(cfg, nc)
	if err != nil {
		nc.Close()
		return err
	}

	slog.Info(fmt.Sprintf("%s - Host %s answering %s", hostLogPrefix, cfg.HostOrigin, cfg.LocalOrigin))

	sig := waitForSignal()
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", hostLogPrefix, sig))

	if err := h.Close(hostShutdownCode, "host shutting down"); err != nil {
		slog.Warn(fmt.Sprintf("%s - close notification failed: %v", hostLogPrefix, err))
	}
	h.Stop()
	nc.Drain()
	return nil
}

// startHost wires a wallet host over COMMS and announces it with connect.
// Requests arrive on the request subject and replies leave on the reply subject.
func startHost(cfg *config.Config, nc *comms.Conn) (*dispatcher.Host, error) {
	tr, err := commsutil.NewTransport(commsutil.TransportParams{
		Conn:             nc,
		LocalOrigin:      cfg.HostOrigin,
		PublishSubject:   cfg.ReplySubject,
		SubscribeSubject: cfg.RequestSubject,
	})
	if err != nil {
		return nil, err
	}

	fx, err := hostFixture(cfg)
	if err != nil {
		return nil, err
	}
	d := dispatcher.NewDispatcher()
	fx.Install(d)
	slog.Info(fmt.Sprintf("%s - Wallet chain=%s network=%s accounts=%d methods=%v", hostLogPrefix, fx.ChainID, fx.NetworkID, len(fx.Accounts), d.Methods()))

	h, err := dispatcher.NewHost(dispatcher.HostParams{
		Dispatcher:  d,
		Source:      tr,
		Target:      tr,
		FrameOrigin: cfg.LocalOrigin,
	})
	if err != nil {
		return nil, err
	}
	if err := h.Start(); err != nil {
		return nil, fmt.Errorf("%s - failed to start host: %w", hostLogPrefix, err)
	}
	if err := h.Connect(fx.Version); err != nil {
		h.Stop()
		return nil, fmt.Errorf("%s - failed to announce host: %w", hostLogPrefix, err)
	}
	return h, nil
}

// hostFixture builds the wallet from HOST_* values, overlaid with the fixture file if any.
func hostFixture(cfg *config.Config) (*bootstrap.HostFixture, error) {
	base := &bootstrap.HostFixture{
		Version:   cfg.HostVersion,
		ChainID:   cfg.HostChainID,
		NetworkID: cfg.HostNetworkID,
		Accounts:  cfg.HostAccounts,
	}
	file, err := bootstrap.LoadHostFixture(cfg.HostFixtureFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load host fixture: %w", hostLogPrefix, err)
	}
	return bootstrap.MergeHostFixtures(base, file), nil
}

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gatewayd/internal/manager"
)

// Gateway is the subset of *manager.Manager driven by GatewayService.
type Gateway interface {
	Start(ctx context.Context) manager.Result
	Close(ctx context.Context) error
}

// GatewayService owns the gateway child's lifetime within the tree: it
// optionally starts the gateway and always stops it on shutdown.
type GatewayService struct {
	gw        Gateway
	autostart bool
	// stopTimeout bounds Close; it should cover grace period plus kill
	// timeout.
	stopTimeout time.Duration
	log         zerolog.Logger
}

func NewGatewayService(gw Gateway, autostart bool, stopTimeout time.Duration, log zerolog.Logger) *GatewayService {
	return &GatewayService{
		gw:          gw,
		autostart:   autostart,
		stopTimeout: stopTimeout,
		log:         log.With().Str("component", "gateway-service").Logger(),
	}
}

// Serve implements suture.Service. A failed autostart is recorded by the
// manager (crashed state) and does not fail the service.
func (g *GatewayService) Serve(ctx context.Context) error {
	if g.autostart {
		res := g.gw.Start(ctx)
		if res.Err != nil {
			g.log.Error().Err(res.Err).Str("state", string(res.State)).Msg("gateway autostart failed")
		}
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), g.stopTimeout)
	defer cancel()
	if err := g.gw.Close(stopCtx); err != nil {
		g.log.Error().Err(err).Msg("gateway did not stop cleanly")
	}
	return ctx.Err()
}

func (g *GatewayService) String() string { return "gateway" }

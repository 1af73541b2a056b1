package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	// ShutdownTimeout bounds how long each service may take to stop. It must
	// exceed the gateway's grace period plus kill timeout.
	ShutdownTimeout time.Duration
}

// Tree is the root supervisor with the gateway and API layers beneath it.
type Tree struct {
	root    *suture.Supervisor
	gateway *suture.Supervisor
	api     *suture.Supervisor
}

// NewTree builds the supervisor tree. Supervisor events are logged through
// log.
func NewTree(log zerolog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = eventHook(log.With().Str("component", "supervisor").Logger())

	t := &Tree{
		root:    suture.New("gatewayd", rootSpec),
		gateway: suture.New("gateway-layer", spec),
		api:     suture.New("api-layer", spec),
	}
	t.root.Add(t.gateway)
	t.root.Add(t.api)
	return t
}

func eventHook(log zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		ev := log.Warn()
		if _, ok := e.(suture.EventResume); ok {
			ev = log.Info()
		}
		ev.Fields(e.Map()).Msg(e.String())
	}
}

// AddGatewayService adds a service to the gateway layer.
func (t *Tree) AddGatewayService(svc suture.Service) suture.ServiceToken {
	return t.gateway.Add(svc)
}

// AddAPIService adds a service to the API layer.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine; the channel receives the
// result once it stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

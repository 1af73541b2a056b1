// Package control is the single write path for the stored gateway config and
// the bridge between the HTTP layer and the supervisor: validate, merge
// secrets, persist, restart.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gatewayd/internal/gwconfig"
	"gatewayd/internal/manager"
	"gatewayd/internal/secrets"
	"gatewayd/pkg/types"
)

// Supervisor is the subset of *manager.Manager the service drives.
type Supervisor interface {
	Start(ctx context.Context) manager.Result
	Stop(ctx context.Context) manager.Result
	Restart(ctx context.Context) manager.Result
	Status() manager.Status
	Uptime() time.Duration
	TailLogs(n int) []manager.LogLine
	LogCapacity() int
	Ready() bool
}

// Subscriber hands out live event streams.
type Subscriber interface {
	Subscribe() (<-chan manager.Event, func())
}

type Service struct {
	store *gwconfig.Store
	sup   Supervisor
	bus   Subscriber
	opts  gwconfig.Options
	log   zerolog.Logger
}

// New wires a Service. bus may be nil when log streaming is not needed.
func New(store *gwconfig.Store, sup Supervisor, bus Subscriber, opts gwconfig.Options, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		sup:   sup,
		bus:   bus,
		opts:  opts,
		log:   log.With().Str("component", "control").Logger(),
	}
}

// Ready reports whether the gateway is running.
func (s *Service) Ready() bool { return s.sup.Ready() }

// Status returns the supervisor snapshot as an API payload.
func (s *Service) Status() types.StatusResponse {
	return StatusResponse(s.sup.Status(), s.sup.Uptime(), time.Now())
}

// Logs returns up to n of the most recent gateway output lines.
func (s *Service) Logs(n int) types.LogsResponse {
	lines := s.sup.TailLogs(n)
	out := make([]types.LogLine, len(lines))
	for i, l := range lines {
		out[i] = LogLine(l)
	}
	return types.LogsResponse{Lines: out, Count: len(out), Capacity: s.sup.LogCapacity()}
}

// LogCapacity is the fixed size of the supervisor's log buffer.
func (s *Service) LogCapacity() int { return s.sup.LogCapacity() }

// Subscribe streams supervisor events. The cancel func must be called.
func (s *Service) Subscribe() (<-chan manager.Event, func()) {
	if s.bus == nil {
		ch := make(chan manager.Event)
		close(ch)
		return ch, func() {}
	}
	return s.bus.Subscribe()
}

// Start, Stop and Restart drive the supervisor. Recorded failures (spawn
// errors, stop timeouts) come back in the response with OK false; only an
// invariant violation is returned as an error.
func (s *Service) Start(ctx context.Context) (types.ActionResponse, error) {
	return s.act(s.sup.Start(context.WithoutCancel(ctx)))
}

func (s *Service) Stop(ctx context.Context) (types.ActionResponse, error) {
	return s.act(s.sup.Stop(context.WithoutCancel(ctx)))
}

func (s *Service) Restart(ctx context.Context) (types.ActionResponse, error) {
	return s.act(s.sup.Restart(context.WithoutCancel(ctx)))
}

func (s *Service) act(res manager.Result) (types.ActionResponse, error) {
	out := ActionResponse(res)
	if manager.IsInvariant(res.Err) {
		return out, res.Err
	}
	if res.Err != nil {
		s.log.Warn().Str("action", res.Action).Str("state", string(res.State)).Err(res.Err).Msg("gateway action recorded a failure")
	}
	return out, nil
}

// Config returns the stored configuration with secrets masked.
func (s *Service) Config() types.ConfigResponse {
	return ConfigView(s.store.Snapshot())
}

// UpdateConfig validates doc, merges it with the stored secrets, persists the
// result and restarts the gateway. On a validation error nothing is stored
// and the gateway is not touched.
func (s *Service) UpdateConfig(ctx context.Context, doc map[string]any) (types.UpdateConfigResponse, error) {
	incoming, err := gwconfig.Validate(doc, s.opts)
	if err != nil {
		return types.UpdateConfigResponse{}, err
	}
	stored, err := s.store.Update(func(current gwconfig.Config) (gwconfig.Config, error) {
		return secrets.Merge(incoming, current), nil
	})
	if err != nil {
		return types.UpdateConfigResponse{}, fmt.Errorf("store config: %w", err)
	}
	s.log.Info().Strs("secrets_set", secrets.MaskedFields(stored)).Msg("config replaced; restarting gateway")
	restart, err := s.Restart(ctx)
	if err != nil {
		return types.UpdateConfigResponse{}, err
	}
	return types.UpdateConfigResponse{
		ConfigResponse: ConfigView(stored),
		Gateway:        s.Status(),
		Restart:        restart,
	}, nil
}

// Package capability advertises what this node can do to the rest of a Loqa
// deployment over the bus.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loqalabs/loqa-tts/internal/bus"
	"github.com/loqalabs/loqa-tts/internal/config"
	"github.com/loqalabs/loqa-tts/internal/protocol"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Announcer publishes a node announcement on start and whenever a discover
// request arrives, and a heartbeat on every interval.
type Announcer struct {
	cfg          config.NodeConfig
	capabilities []protocol.Capability
	bus          *bus.Client
	log          *slog.Logger
	sub          *nats.Subscription
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	heartbeats   metric.Int64Counter
}

// NewAnnouncer prepares an announcer for cfg. cfg.ID must be set.
func NewAnnouncer(cfg config.NodeConfig, capabilities []protocol.Capability, busClient *bus.Client, log *slog.Logger) (*Announcer, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("node id must not be empty")
	}
	a := &Announcer{
		cfg:          cfg,
		capabilities: capabilities,
		bus:          busClient,
		log:          log.With(slog.String("component", "capability-announcer")),
	}
	counter, err := otel.Meter("github.com/loqalabs/loqa-tts/internal/capability").Int64Counter(
		"loqa.node.heartbeats", metric.WithDescription("Heartbeats published by this node"))
	if err != nil {
		a.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	a.heartbeats = counter
	return a, nil
}

func (a *Announcer) Start(ctx context.Context) error {
	sub, err := a.bus.Conn().Subscribe(protocol.SubjectNodeDiscover, func(*nats.Msg) {
		if err := a.announce(); err != nil {
			a.log.Warn("failed to re-announce node", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe discover: %w", err)
	}
	a.sub = sub

	if err := a.announce(); err != nil {
		a.log.Warn("failed to announce node", slog.String("error", err.Error()))
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go a.runHeartbeat(ctx)
	return nil
}

func (a *Announcer) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.sub != nil {
		_ = a.sub.Drain()
	}
	a.wg.Wait()
}

// Announcement is the message this node publishes about itself.
func (a *Announcer) Announcement() protocol.NodeAnnouncement {
	return protocol.NodeAnnouncement{
		NodeID:       a.cfg.ID,
		Role:         a.cfg.Role,
		Capabilities: append([]protocol.Capability(nil), a.capabilities...),
		Timestamp:    time.Now().UTC(),
	}
}

func (a *Announcer) announce() error {
	return a.bus.PublishJSON(protocol.SubjectNodeAnnounce, a.Announcement())
}

func (a *Announcer) runHeartbeat(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(time.Duration(a.cfg.HeartbeatIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	subject := protocol.SubjectNodeHeartbeatPrefix + a.cfg.ID
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := protocol.NodeHeartbeat{NodeID: a.cfg.ID, Timestamp: time.Now().UTC()}
			if err := a.bus.PublishJSON(subject, hb); err != nil {
				a.log.Warn("failed to publish heartbeat", slog.String("error", err.Error()))
				continue
			}
			if a.heartbeats != nil {
				a.heartbeats.Add(ctx, 1)
			}
		}
	}
}

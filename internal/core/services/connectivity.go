package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure Connectivity implements the interface.
var _ driving.Connectivity = (*Connectivity)(nil)

// Connectivity observes online/offline transitions, governs the cache
// generation lifecycle and triggers queue drains on reconnect and on a
// periodic fallback timer.
type Connectivity struct {
	probe    driven.ConnectivityProbe
	queue    driving.SyncQueue
	router   driving.CacheRouter
	notifier driven.Notifier

	probeInterval time.Duration
	drainInterval time.Duration
	precache      []string

	mu      sync.Mutex
	state   domain.ConnectivityState
	phase   domain.GenerationPhase
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewConnectivity creates a connectivity controller.
func NewConnectivity(
	cfg domain.EngineConfig,
	probe driven.ConnectivityProbe,
	queue driving.SyncQueue,
	router driving.CacheRouter,
	notifier driven.Notifier,
) *Connectivity {
	probeInterval := cfg.ProbeInterval
	if probeInterval <= 0 {
		probeInterval = 10 * time.Second
	}
	drainInterval := cfg.DrainInterval
	if drainInterval <= 0 {
		drainInterval = 30 * time.Second
	}
	return &Connectivity{
		probe:         probe,
		queue:         queue,
		router:        router,
		notifier:      notifier,
		probeInterval: probeInterval,
		drainInterval: drainInterval,
		precache:      cfg.Precache,
		phase:         domain.PhaseInstalling,
	}
}

// Start installs the generation, activates it and runs the watch loop.
// Blocks until ctx is cancelled or Stop is called.
func (c *Connectivity) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil // Already running
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	// Initial connectivity observation before any precache attempt.
	online := c.probe.Online(ctx)
	c.applyObservation(online)

	if err := c.install(ctx, online); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	// Single-consumer host: nothing holds the old generation open, so
	// the waiting phase resolves immediately.
	c.setPhase(domain.PhaseWaiting)
	c.setPhase(domain.PhaseActive)

	return c.run(ctx)
}

// Stop retires the generation: timers are cancelled cleanly and any
// in-flight drain finishes before teardown.
func (c *Connectivity) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.phase = domain.PhaseRetiring
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// State returns the current connectivity snapshot.
func (c *Connectivity) State() domain.ConnectivityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase returns the lifecycle phase of the active generation.
func (c *Connectivity) Phase() domain.GenerationPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// SetOnline force-feeds a connectivity observation, for hosts that
// receive platform online/offline events directly.
func (c *Connectivity) SetOnline(online bool) {
	c.applyObservation(online)
}

// install precaches the fixed critical-resource set. Offline installs
// succeed with an empty cache; the resources are picked up by later
// revalidation. An online install where every fetch fails is reported
// as a failed update.
func (c *Connectivity) install(ctx context.Context, online bool) error {
	c.setPhase(domain.PhaseInstalling)

	if len(c.precache) == 0 || !online {
		return nil
	}

	var failures []error
	for _, url := range c.precache {
		_, err := c.router.Handle(ctx, driven.Request{Method: "GET", URL: url})
		if err != nil {
			logger.Warn("precache of %s failed: %v", url, err)
			failures = append(failures, fmt.Errorf("precache %s: %w", url, err))
		}
	}

	if len(failures) == len(c.precache) {
		return fmt.Errorf("install failed: %w", errors.Join(failures...))
	}
	return nil
}

// run is the main watch loop: one ticker probes connectivity, another
// drains the queue periodically to recover from missed transitions.
func (c *Connectivity) run(ctx context.Context) error {
	probeTicker := time.NewTicker(c.probeInterval)
	defer probeTicker.Stop()
	drainTicker := time.NewTicker(c.drainInterval)
	defer drainTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		case <-probeTicker.C:
			c.applyObservation(c.probe.Online(ctx))
		case <-drainTicker.C:
			c.periodicDrain(ctx)
		}
	}
}

// applyObservation records a connectivity observation and reacts to
// transitions: offline->online triggers exactly one drain, both
// directions are announced. The bootstrap observation sets the baseline
// and, when online, drains any backlog persisted from a prior session
// without announcing a transition.
func (c *Connectivity) applyObservation(online bool) {
	c.mu.Lock()
	bootstrap := c.state.LastTransition.IsZero()
	wasOnline := c.state.Online
	if !bootstrap && online == wasOnline {
		c.mu.Unlock()
		return
	}
	c.state = domain.ConnectivityState{Online: online, LastTransition: time.Now()}
	retiring := c.phase == domain.PhaseRetiring
	c.mu.Unlock()

	if bootstrap {
		if online && !retiring {
			c.triggerDrain()
		}
		return
	}

	if online {
		logger.Info("connectivity restored")
		c.notifier.Notify(domain.Event{Type: domain.EventOnline, At: time.Now()})
		if !retiring {
			c.triggerDrain()
		}
	} else {
		logger.Info("connectivity lost")
		c.notifier.Notify(domain.Event{Type: domain.EventOffline, At: time.Now()})
	}
}

// periodicDrain drains on the fallback timer when work is queued,
// catching tasks left behind by missed transition events. The same tick
// doubles as the cache janitor.
func (c *Connectivity) periodicDrain(ctx context.Context) {
	c.mu.Lock()
	online := c.state.Online
	retiring := c.phase == domain.PhaseRetiring
	c.mu.Unlock()

	if retiring {
		return
	}

	if err := c.router.Evict(ctx); err != nil {
		logger.Warn("cache eviction failed: %v", err)
	}

	if !online {
		return
	}

	status, err := c.queue.Status(ctx)
	if err != nil {
		logger.Warn("queue status check failed: %v", err)
		return
	}
	if status.Count == 0 {
		return
	}
	c.triggerDrain()
}

// triggerDrain runs one drain pass in the background. An overlapping
// trigger collapses into the already-running pass.
func (c *Connectivity) triggerDrain() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.queue.Drain(context.Background()); err != nil {
			if errors.Is(err, domain.ErrDrainInProgress) {
				logger.Debug("drain trigger dropped: pass already running")
				return
			}
			logger.Error("drain failed: %v", err)
		}
	}()
}

func (c *Connectivity) setPhase(phase domain.GenerationPhase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
	logger.Debug("generation phase: %s", phase)
}

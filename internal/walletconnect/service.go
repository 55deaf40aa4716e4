// Package walletconnect brokers WalletConnect sessions and signing requests
// between external dApps and the local wallet accounts: it owns the relay
// client lifecycle, negotiates namespaces, tracks active sessions and relays
// request decisions back over the wire.
package walletconnect

import (
	"context"
	"sync"
	"time"

	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/internal/ui"
	"edgewallet.io/wallet-broker/internal/wallet"
	"edgewallet.io/wallet-broker/pkg/concurrent"
	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
	"go.uber.org/atomic"
)

type clientState int

const (
	stateAbsent clientState = iota
	stateInitializing
	stateReady
)

// backoff bounds for relay client initialization
const (
	initialRetryDelay = 250 * time.Millisecond
	maxInitRetryDelay = 2 * time.Second
	dialTimeout       = 30 * time.Second
)

// Service is the session and request broker. One instance per process.
type Service struct {
	dialer    relay.Dialer
	wallets   *wallet.Registry
	presenter ui.Presenter
	notifier  ui.Notifier
	inflight  concurrent.Limiter

	proposalWait   time.Duration
	approveWait    time.Duration
	disconnectWait time.Duration
	retryDelay     time.Duration
	maxRetryDelay  time.Duration

	// listener attach happens once regardless of how many callers race init
	listenerAttached atomic.Bool

	mu      sync.Mutex
	state   clientState
	client  relay.Client
	waiters []chan relay.Client

	answeredMu sync.Mutex
	answered   map[string]struct{}
	pending    map[string]*ui.RequestPreview
}

func NewService(dialer relay.Dialer, wallets *wallet.Registry, presenter ui.Presenter, notifier ui.Notifier) *Service {
	return &Service{
		dialer:    dialer,
		wallets:   wallets,
		presenter: presenter,
		notifier:  notifier,
		inflight:  concurrent.NewLimiter(8),
		answered:  make(map[string]struct{}),
		pending:   make(map[string]*ui.RequestPreview),

		proposalWait:   proposalWaitTimeout,
		approveWait:    approveSessionTimeout,
		disconnectWait: disconnectTimeout,
		retryDelay:     initialRetryDelay,
		maxRetryDelay:  maxInitRetryDelay,
	}
}

// Start warms the relay client in the background so the first UI flow does
// not pay for the dial.
func (s *Service) Start(ctx context.Context) {
	go func() {
		if _, err := s.Client(ctx); err != nil {
			log.Errorf("walletConnect warmup: %v", err)
		}
	}()
}

// Client returns the ready relay client, beginning initialization on the
// first call. Initialization retries forever with a capped backoff; failures
// are logged, never surfaced here. Concurrent callers share one in-flight
// attempt and all receive the same eventual client.
func (s *Service) Client(ctx context.Context) (relay.Client, error) {
	s.mu.Lock()
	if s.state == stateReady {
		client := s.client
		s.mu.Unlock()
		return client, nil
	}
	ch := make(chan relay.Client, 1)
	s.waiters = append(s.waiters, ch)
	if s.state == stateAbsent {
		s.state = stateInitializing
		go s.initialize()
	}
	s.mu.Unlock()

	select {
	case client := <-ch:
		return client, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "await relay client")
	}
}

// initialize is the single critical section that dials the relay. Exactly one
// runs at a time; it ends only in the ready state.
func (s *Service) initialize() {
	delay := s.retryDelay
	for attempt := 1; ; attempt++ {
		dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		client, err := s.dialer.Dial(dialCtx)
		cancel()
		if err != nil {
			log.Errorf("walletConnect init attempt %v: %v", attempt, err)
			time.Sleep(delay)
			delay *= 2
			if delay > s.maxRetryDelay {
				delay = s.maxRetryDelay
			}
			continue
		}

		s.attachListeners(client)

		s.mu.Lock()
		s.client = client
		s.state = stateReady
		waiters := s.waiters
		s.waiters = nil
		s.mu.Unlock()

		log.Infof("walletConnect relay client ready after %v attempt(s)", attempt)
		for _, ch := range waiters {
			ch <- client
		}
		return
	}
}

// attachListeners wires the inbound handlers exactly once.
func (s *Service) attachListeners(client relay.Client) {
	if !s.listenerAttached.CAS(false, true) {
		return
	}
	client.OnSessionRequest(s.handleSessionRequest)
	client.OnSessionDelete(func(topic string) {
		log.Infof("walletConnect session %v deleted by peer", topic)
	})
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/ochairo/unitynuget/internal/domain/entities"
	circuit "github.com/rubyist/circuitbreaker"
)

// maxDocumentSize bounds documents read fully into memory (licence texts).
const maxDocumentSize = 1 << 20

// CircuitBreakerFetcher wraps a Fetcher with per-host circuit breakers.
type CircuitBreakerFetcher struct {
	fetcher  *Fetcher
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewCircuitBreakerFetcher creates a new circuit breaker wrapper for a fetcher.
func NewCircuitBreakerFetcher(f *Fetcher) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		fetcher:  f,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates the circuit breaker of host.
func (cbf *CircuitBreakerFetcher) getBreaker(host string) *circuit.Breaker {
	cbf.mu.RLock()
	breaker, exists := cbf.breakers[host]
	cbf.mu.RUnlock()

	if exists {
		return breaker
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	if breaker, exists := cbf.breakers[host]; exists {
		return breaker
	}

	// trips after 5 consecutive failures
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})

	cbf.breakers[host] = breaker
	return breaker
}

// Fetch wraps the underlying fetcher's Fetch with circuit breaker logic.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) (*Artifact, error) {
	host := extractHost(fetchURL)
	breaker := cbf.getBreaker(host)

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", host, entities.ErrUpstreamDown)
	}

	var artifact *Artifact
	err := breaker.Call(func() error {
		var fetchErr error
		artifact, fetchErr = cbf.fetcher.Fetch(ctx, fetchURL)
		return fetchErr
	}, 0)
	if err != nil {
		return nil, err
	}

	return artifact, nil
}

// FetchBytes downloads a small document fully into memory.
func (cbf *CircuitBreakerFetcher) FetchBytes(ctx context.Context, fetchURL string) ([]byte, error) {
	artifact, err := cbf.Fetch(ctx, fetchURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = artifact.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(artifact.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fetchURL, err)
	}
	return data, nil
}

// extractHost returns the breaker key of a URL.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// BreakerState is the health of one upstream host.
type BreakerState struct {
	Host  string `json:"host"`
	State string `json:"state"`
}

// BreakerStates returns the state of every breaker sorted by host (for health checks).
func (cbf *CircuitBreakerFetcher) BreakerStates() []BreakerState {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make([]BreakerState, 0, len(cbf.breakers))
	for host, breaker := range cbf.breakers {
		state := "closed"
		if breaker.Tripped() {
			state = "open"
		}
		states = append(states, BreakerState{Host: host, State: state})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Host < states[j].Host })
	return states
}

// DocumentFetcher adapts the breaker fetcher to gateways.DocumentFetcher.
type DocumentFetcher struct {
	*CircuitBreakerFetcher
}

// Fetch downloads a document fully into memory
func (d DocumentFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return d.FetchBytes(ctx, url)
}

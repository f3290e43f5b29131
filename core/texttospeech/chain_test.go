package texttospeech

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type providerStub struct {
	name   string
	result *SynthesisResult
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (p *providerStub) Name() string { return p.name }

func (p *providerStub) Synthesize(ctx context.Context, _ string) (*SynthesisResult, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.result, p.err
}

func TestChainFallsThroughToSecondaryWithoutLocalFallback(t *testing.T) {
	primary := &providerStub{name: "primary", err: errors.New("rejected")}
	secondary := &providerStub{name: "secondary", result: &SynthesisResult{Data: []byte{1, 2}, Encoding: EncodingCompressed}}

	chain := NewChain(WithProviders(primary, secondary))
	outcome, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if outcome.LocalFallback {
		t.Fatalf("expected no local fallback signal")
	}
	if outcome.Provider != "secondary" {
		t.Fatalf("expected secondary provider, got %q", outcome.Provider)
	}
	if outcome.Result != secondary.result {
		t.Fatalf("expected secondary provider bytes")
	}
	if len(outcome.Attempts) != 2 || outcome.Attempts[0].Err == nil {
		t.Fatalf("expected a failed primary attempt followed by secondary, got %+v", outcome.Attempts)
	}
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	primary := &providerStub{name: "primary", result: &SynthesisResult{Data: []byte{1, 2}}}
	secondary := &providerStub{name: "secondary", result: &SynthesisResult{Data: []byte{3, 4}}}

	outcome, _ := NewChain(WithProviders(primary, secondary)).Synthesize(context.Background(), "hello")

	if outcome.Provider != "primary" {
		t.Fatalf("expected primary provider, got %q", outcome.Provider)
	}
	if got := secondary.calls.Load(); got != 0 {
		t.Fatalf("expected secondary not to be called, got %d calls", got)
	}
}

func TestChainTimesOutSlowProvider(t *testing.T) {
	primary := &providerStub{name: "primary", delay: time.Second, result: &SynthesisResult{Data: []byte{1, 2}}}
	secondary := &providerStub{name: "secondary", result: &SynthesisResult{Data: []byte{3, 4}}}

	chain := NewChain(WithProviders(primary, secondary), WithProviderTimeout(20*time.Millisecond))
	start := time.Now()
	outcome, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if outcome.Provider != "secondary" {
		t.Fatalf("expected secondary provider after timeout, got %q", outcome.Provider)
	}
	if !errors.Is(outcome.Attempts[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected primary attempt to exceed its deadline, got %v", outcome.Attempts[0].Err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected the timeout to bound the attempt, took %s", elapsed)
	}
}

func TestChainSignalsLocalFallbackWhenEveryProviderFails(t *testing.T) {
	primary := &providerStub{name: "primary", err: errors.New("down")}
	secondary := &providerStub{name: "secondary", result: &SynthesisResult{}}

	outcome, err := NewChain(WithProviders(primary, secondary)).Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !outcome.LocalFallback {
		t.Fatalf("expected local fallback signal")
	}
	if outcome.Result != nil {
		t.Fatalf("expected no result")
	}
	if outcome.Err() == nil {
		t.Fatalf("expected joined attempt errors")
	}
}

func TestChainReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &providerStub{name: "primary", delay: time.Second}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := NewChain(WithProviders(primary, &providerStub{name: "secondary"})).Synthesize(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

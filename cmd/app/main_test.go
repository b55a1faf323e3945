package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/anisimovdk/cloud-range-blocker/internal/config"
	"github.com/anisimovdk/cloud-range-blocker/internal/handler"
	"github.com/anisimovdk/cloud-range-blocker/internal/ipdata"
	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

type mockSource struct {
	mu       sync.Mutex
	prefixes map[string][]string
	errs     map[string]error
	calls    []string
}

func (m *mockSource) GetPrefixes(ctx context.Context, provider string) ([]prefix.Prefix, error) {
	m.mu.Lock()
	m.calls = append(m.calls, provider)
	m.mu.Unlock()

	if err := m.errs[provider]; err != nil {
		return nil, err
	}
	raw, ok := m.prefixes[provider]
	if !ok {
		return nil, ipdata.ErrUnknownProvider
	}
	out := make([]prefix.Prefix, 0, len(raw))
	for _, s := range raw {
		p, err := prefix.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type recordingEnforcer struct {
	events   []string
	resetErr error
	blockErr error
}

func (r *recordingEnforcer) Block(ctx context.Context, prefixes []prefix.Prefix) error {
	if r.blockErr != nil {
		return r.blockErr
	}
	for _, p := range prefixes {
		r.events = append(r.events, "block "+p.String())
	}
	return nil
}

func (r *recordingEnforcer) Reset(ctx context.Context) error {
	if r.resetErr != nil {
		return r.resetErr
	}
	r.events = append(r.events, "reset")
	return nil
}

func newMockSource() *mockSource {
	return &mockSource{prefixes: map[string][]string{
		"amazon": {"3.5.140.0/22", "2600:1f14::/35"},
		"google": {"8.8.4.0/24"},
	}}
}

func assertEvents(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunResetThenBlockInRequestOrder(t *testing.T) {
	fw := &recordingEnforcer{}
	cfg := &config.Config{Block: []string{"google", "amazon"}, Reset: true}

	if err := run(context.Background(), cfg, newMockSource(), fw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertEvents(t, fw.events, []string{
		"reset",
		"block 8.8.4.0/24",
		"block 3.5.140.0/22",
		"block 2600:1f14:0:0:0:0:0:0/35",
	})
}

func TestRunNothingToDo(t *testing.T) {
	fw := &recordingEnforcer{}
	source := newMockSource()

	if err := run(context.Background(), &config.Config{}, source, fw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fw.events) != 0 || len(source.calls) != 0 {
		t.Errorf("expected no work, events=%v calls=%v", fw.events, source.calls)
	}
}

func TestRunResetOnly(t *testing.T) {
	fw := &recordingEnforcer{}
	source := newMockSource()

	if err := run(context.Background(), &config.Config{Reset: true}, source, fw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEvents(t, fw.events, []string{"reset"})
	if len(source.calls) != 0 {
		t.Errorf("expected no fetches, got %v", source.calls)
	}
}

func TestRunFetchFailureBlocksNothing(t *testing.T) {
	fw := &recordingEnforcer{}
	source := newMockSource()
	source.errs = map[string]error{"google": errors.New("feed unavailable")}

	err := run(context.Background(), &config.Config{Block: []string{"amazon", "google"}}, source, fw)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "provider google: feed unavailable" {
		t.Errorf("unexpected error: %v", err)
	}
	if len(fw.events) != 0 {
		t.Errorf("expected nothing blocked, got %v", fw.events)
	}
}

func TestRunUnknownProvider(t *testing.T) {
	err := run(context.Background(), &config.Config{Block: []string{"azure"}}, newMockSource(), &recordingEnforcer{})
	if !errors.Is(err, ipdata.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestRunPropagatesEnforcerErrors(t *testing.T) {
	fw := &recordingEnforcer{resetErr: errors.New("iptables missing")}
	err := run(context.Background(), &config.Config{Reset: true, Block: []string{"amazon"}}, newMockSource(), fw)
	if err == nil || err.Error() != "iptables missing" {
		t.Fatalf("expected reset error, got %v", err)
	}

	fw = &recordingEnforcer{blockErr: errors.New("permission denied")}
	err = run(context.Background(), &config.Config{Block: []string{"amazon"}}, newMockSource(), fw)
	if err == nil || err.Error() != "provider amazon: permission denied" {
		t.Fatalf("expected block error, got %v", err)
	}
}

func TestIntegrationServeProviderList(t *testing.T) {
	mux := http.NewServeMux()
	handler.NewHandler(newMockSource(), &config.Config{AuthToken: "test-integration"}).RegisterRoutesOn(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/get?provider=amazon&auth=test-integration")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "3.5.140.0/22\n2600:1f14:0:0:0:0:0:0/35\n" {
		t.Errorf("unexpected body: %q", body)
	}

	resp, err = http.Get(srv.URL + "/get?provider=amazon&auth=wrong-token")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type mockPinger struct {
	err   error
	delay time.Duration
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

type fixedFeed int

func (f fixedFeed) SubscriberCount() int { return int(f) }

// **Property: Health Reflects Storage Connectivity**
// For any storage state, the response SHALL include a storage component whose
// status matches the ping result, and the HTTP status SHALL be 200 when healthy
// and 503 when unhealthy.
func TestPropertyHealthReflectsStorage(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("storage component tracks ping", prop.ForAll(
		func(version string, healthy bool, subscribers int) bool {
			p := &mockPinger{}
			if !healthy {
				p.err = errors.New("connection refused")
			}
			checker := NewChecker(p, fixedFeed(subscribers), version)

			rr := httptest.NewRecorder()
			checker.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp Response
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				return false
			}
			storage, ok := resp.Components["storage"]
			if !ok || resp.Version != version {
				return false
			}
			if _, ok := resp.Components["feed"]; !ok {
				return false
			}
			if healthy {
				return storage.Status == StatusHealthy && resp.Status == StatusHealthy && rr.Code == http.StatusOK
			}
			return storage.Status == StatusUnhealthy && resp.Status == StatusUnhealthy && rr.Code == http.StatusServiceUnavailable
		},
		gen.RegexMatch(`v?[0-9]+\.[0-9]+\.[0-9]+`),
		gen.Bool(),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}

func TestCheckBoundedByTimeout(t *testing.T) {
	checker := NewChecker(&mockPinger{delay: time.Second}, nil, "dev")
	checker.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	resp := checker.Check(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Check took %v, want it bounded by the timeout", elapsed)
	}
	if resp.Components["storage"].Status != StatusUnhealthy {
		t.Fatalf("storage status = %s, want unhealthy", resp.Components["storage"].Status)
	}
	if _, ok := resp.Components["feed"]; ok {
		t.Fatal("feed component reported without a feed")
	}
}

func TestCheckWithoutStorage(t *testing.T) {
	resp := NewChecker(nil, nil, "dev").Check(context.Background())
	if resp.Status != StatusUnhealthy {
		t.Fatalf("status = %s, want unhealthy", resp.Status)
	}
}

package guard

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldepth/trade-guard/internal/risklog"
)

// failingStore always errors on read.
type failingStore struct{}

func (failingStore) Append(ctx context.Context, e risklog.Entry) error {
	return nil
}

func (failingStore) RecentSince(ctx context.Context, now time.Time, window time.Duration) ([]risklog.Entry, error) {
	return nil, errors.New("disk on fire")
}

func writeQueue(t *testing.T, entries []risklog.Entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.json")
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMEVRecentEntryBlocks(t *testing.T) {
	clock := newFakeClock()
	now := clock.Now().UnixMilli()

	path := writeQueue(t, []risklog.Entry{{Timestamp: now - 5000}})
	g := NewMEVGuard(risklog.NewFileStore(path), 10*time.Second, clock)

	v := g.Check(context.Background())
	assert.False(t, v.OK)
	assert.Equal(t, ReasonMEVRiskDetected, v.Reason)
	assert.Equal(t, 1, v.Details["recentEvents"])
}

func TestMEVEntryPrunedAfterWindow(t *testing.T) {
	clock := newFakeClock()
	now := clock.Now().UnixMilli()

	path := writeQueue(t, []risklog.Entry{{Timestamp: now - 5000}})
	g := NewMEVGuard(risklog.NewFileStore(path), 10*time.Second, clock)

	assert.False(t, g.Check(context.Background()).OK)

	clock.advance(11 * time.Second)
	v := g.Check(context.Background())
	assert.True(t, v.OK)

	// The stale entry must have been pruned from the file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestMEVMissingFileMeansNoRisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	g := NewMEVGuard(risklog.NewFileStore(path), 10*time.Second, newFakeClock())

	assert.True(t, g.Check(context.Background()).OK)
}

func TestMEVMalformedFileMeansNoRisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a sequence"}`), 0o644))
	g := NewMEVGuard(risklog.NewFileStore(path), 10*time.Second, newFakeClock())

	assert.True(t, g.Check(context.Background()).OK)
}

func TestMEVReadFailureFailsSafe(t *testing.T) {
	g := NewMEVGuard(failingStore{}, 10*time.Second, newFakeClock())

	v := g.Check(context.Background())
	assert.False(t, v.OK)
	assert.Equal(t, ReasonMEVRiskDetected, v.Reason)
	assert.Contains(t, v.Details, "readError")
}

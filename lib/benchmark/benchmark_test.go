package benchmark

import (
	"context"
	"math/big"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/hashcat"
	"github.com/unclesp1d3r/bitrecover/lib/testhelpers"
)

func newSampleResults() []Result {
	return []Result{
		{Device: "1", HashMode: "22100", RuntimeMs: "100", HashTimeMs: "50", SpeedHs: 2500},
		{Device: "2", HashMode: "22100", RuntimeMs: "200", HashTimeMs: "100", SpeedHs: 1500.5},
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Result
		ok   bool
	}{
		{
			name: "machine readable line",
			line: "1:22100:BitLocker:1042:80.21:3190",
			want: Result{Device: "1", HashMode: "22100", RuntimeMs: "1042", HashTimeMs: "80.21", SpeedHs: 3190},
			ok:   true,
		},
		{name: "too few fields", line: "1:22100:3190"},
		{name: "speed not a number", line: "1:22100:BitLocker:1042:80.21:fast"},
		{name: "banner", line: "hashcat (v6.2.6) starting in benchmark mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotalSpeed(t *testing.T) {
	assert.InDelta(t, 4000.5, TotalSpeed(newSampleResults()), 0.001)
	assert.Zero(t, TotalSpeed(nil))
}

func TestETA(t *testing.T) {
	d, ok := ETA(big.NewInt(3600), 1)
	require.True(t, ok)
	assert.Equal(t, time.Hour, d)

	_, ok = ETA(big.NewInt(10), 0)
	assert.False(t, ok, "unknown speed")

	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(48), nil)
	_, ok = ETA(huge, 1)
	assert.False(t, ok, "does not fit a duration")
}

func TestRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}

	testhelpers.SetupTestState(t)

	bin := testhelpers.CreateFakeBinary(t, t.TempDir(), "hashcat", `echo "hashcat (v6.2.6) starting in benchmark mode"
echo "1:22100:BitLocker:1042:80.21:3190"
echo "2:22100:BitLocker:1010:77.00:2810"
exit 0
`)

	results, err := Run(context.Background(), hashcat.Params{Binary: bin})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[1].Device)
	assert.InDelta(t, 6000, TotalSpeed(results), 0.001)
}

func TestRun_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}

	testhelpers.SetupTestState(t)

	bin := testhelpers.CreateFakeBinary(t, t.TempDir(), "hashcat", `echo "No devices found/left." >&2
exit 255
`)

	_, err := Run(context.Background(), hashcat.Params{Binary: bin})
	require.ErrorIs(t, err, cserrors.ErrOracleFailure)
	assert.Contains(t, err.Error(), "No devices found/left.")
}

func TestRun_NoResults(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}

	testhelpers.SetupTestState(t)

	bin := testhelpers.CreateFakeBinary(t, t.TempDir(), "hashcat", "exit 0\n")

	_, err := Run(context.Background(), hashcat.Params{Binary: bin})
	require.ErrorIs(t, err, ErrNoResults)
}

func TestCacheRoundTrip(t *testing.T) {
	testhelpers.SetupTestState(t)

	cached, err := LoadCache()
	require.NoError(t, err)
	assert.Nil(t, cached, "no cache yet")

	require.NoError(t, SaveCache(newSampleResults()))

	cached, err = LoadCache()
	require.NoError(t, err)
	assert.Equal(t, newSampleResults(), cached)

	ClearCache()
	assert.NoFileExists(t, appstate.State.BenchmarkCache)
}

func TestLoadCache_CorruptFileRemoved(t *testing.T) {
	testhelpers.SetupTestState(t)

	require.NoError(t, os.WriteFile(appstate.State.BenchmarkCache, []byte("{not json"), 0o600))

	cached, err := LoadCache()
	require.NoError(t, err)
	assert.Nil(t, cached)
	assert.NoFileExists(t, appstate.State.BenchmarkCache)
}

func TestSaveCache_NoPath(t *testing.T) {
	testhelpers.SetupTestState(t)
	appstate.State.BenchmarkCache = ""

	require.Error(t, SaveCache(newSampleResults()))
}

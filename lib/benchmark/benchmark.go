// Package benchmark measures hashcat's mode 22100 speed on the local devices and caches
// the result so session listings can estimate time remaining.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/display"
	"github.com/unclesp1d3r/bitrecover/lib/hashcat"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
)

const benchmarkFieldCount = 6 // device:hash_mode:name:runtime_ms:hash_time_ms:speed_hs

// ErrNoResults is returned when hashcat finished without a parsable benchmark line.
var ErrNoResults = errors.New("benchmark produced no results")

// Result is one device's benchmark line.
type Result struct {
	Device     string  `json:"device"`
	HashMode   string  `json:"hash_mode"`
	RuntimeMs  string  `json:"runtime_ms"`
	HashTimeMs string  `json:"hash_time_ms"`
	SpeedHs    float64 `json:"speed_hs"`
}

// Run benchmarks hashcat with params and returns one result per device.
func Run(ctx context.Context, params hashcat.Params) ([]Result, error) {
	if params.Binary == "" {
		return nil, fmt.Errorf("%w: no hashcat binary configured", cserrors.ErrUnsupportedStrategy)
	}

	var (
		mu      sync.Mutex
		results []Result
		worst   string
	)

	proc := &oracle.Subprocess{
		Program: params.Binary,
		Args:    params.BenchmarkArgs(),
		StdoutCallback: func(line string) {
			result, ok := parseLine(line)
			if !ok {
				appstate.Logger.Debug("Unknown benchmark line", "line", line)

				return
			}

			display.BenchmarkDevice(result.Device, result.SpeedHs)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		},
		StderrCallback: func(line string) {
			display.OracleStderr("hashcat", line)

			if strings.TrimSpace(line) != "" {
				mu.Lock()
				worst = line
				mu.Unlock()
			}
		},
	}

	display.BenchmarkStarting()

	code, err := proc.Execute(ctx)
	if err != nil {
		return nil, err
	}

	if !hashcat.IsNormalCompletion(code) {
		return nil, fmt.Errorf("%w: hashcat benchmark exited with code %d: %s", cserrors.ErrOracleFailure, code, worst)
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}

	return results, nil
}

// parseLine parses a --machine-readable benchmark line.
func parseLine(line string) (Result, bool) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) != benchmarkFieldCount {
		return Result{}, false
	}

	speed, err := strconv.ParseFloat(fields[5], 64)
	if err != nil || speed < 0 {
		return Result{}, false
	}

	return Result{
		Device:     fields[0],
		HashMode:   fields[1],
		RuntimeMs:  fields[3],
		HashTimeMs: fields[4],
		SpeedHs:    speed,
	}, true
}

// TotalSpeed sums the per-device speeds in hashes per second.
func TotalSpeed(results []Result) float64 {
	var total float64
	for _, r := range results {
		total += r.SpeedHs
	}

	return total
}

// ETA estimates how long the remaining candidates take at speed. ok is false when the
// speed is unknown or the estimate does not fit a time.Duration.
func ETA(remaining *big.Int, speed float64) (time.Duration, bool) {
	if remaining == nil || remaining.Sign() < 0 || speed <= 0 {
		return 0, false
	}

	seconds, _ := new(big.Float).Quo(new(big.Float).SetInt(remaining), big.NewFloat(speed)).Float64()
	if seconds >= float64(1<<63-1)/float64(time.Second) {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}

// Package display provides output and logging functions for bitrecover.
package display

import (
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/progress"
	"github.com/unclesp1d3r/bitrecover/lib/session"
)

// scientificAbove is the keyspace size past which counts are shown as powers of ten.
const scientificAbove = 1e15

// SessionCreated logs a newly created session.
func SessionCreated(s *session.Session, strategy string) {
	appstate.Logger.Info("Session created", "session", s.ID, "strategy", strategy, "fingerprint", shortFingerprint(s.Fingerprint))
}

// SessionStarting logs the start or resumption of a run.
func SessionStarting(s *session.Session, strategy string) {
	if s.Checkpoint > 0 {
		appstate.Logger.Info("Resuming session", "session", s.ID, "strategy", strategy,
			"checkpoint", humanize.Comma(int64(min(s.Checkpoint, uint64(1<<63-1)))))

		return
	}

	appstate.Logger.Info("Starting session", "session", s.ID, "strategy", strategy)
}

// BatchAttempted logs a completed oracle call. It is only shown with extra debugging.
func BatchAttempted(s *session.Session, size int, elapsed time.Duration) {
	if !appstate.State.ExtraDebugging {
		return
	}

	appstate.Logger.Debug("Batch attempted", "session", s.ID, "size", size,
		"checkpoint", s.Checkpoint, "rate", Rate(uint64(size), elapsed))
}

// CredentialFound logs a recovered credential. The plaintext is never logged.
func CredentialFound(s *session.Session, strategy string) {
	appstate.Logger.Info("Credential recovered", "session", s.ID, "fingerprint", shortFingerprint(s.Fingerprint),
		"strategy", strategy, "checkpoint", s.Checkpoint, "status", s.Status)
}

// PriorResult logs a run that was skipped because the credential was already known.
func PriorResult(s *session.Session) {
	appstate.Logger.Info("Credential already recovered, skipping run", "session", s.ID,
		"fingerprint", shortFingerprint(s.Fingerprint))
}

// SessionExhausted logs a session whose candidate space ran out.
func SessionExhausted(s *session.Session, strategy string) {
	appstate.Logger.Info("Session exhausted", "session", s.ID, "strategy", strategy, "checkpoint", s.Checkpoint,
		"status", s.Status)
}

// SessionPaused logs a paused session and why.
func SessionPaused(s *session.Session) {
	appstate.Logger.Warn("Session paused", "session", s.ID, "checkpoint", s.Checkpoint, "reason", s.LastError)
}

// SessionTerminal logs a run request for a session that is already finished.
func SessionTerminal(s *session.Session) {
	appstate.Logger.Info("Session already finished", "session", s.ID, "status", s.Status)
}

// OracleStderr logs a single line of oracle standard error after removing non-printable characters.
func OracleStderr(tool, stdErrLine string) {
	appstate.Logger.Debug("Oracle stderr", "tool", tool, "line", strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}

		return -1
	}, stdErrLine))
}

// Keyspace formats a candidate count with thousands separators, switching to powers of
// ten for astronomically large spaces.
func Keyspace(n *big.Int) string {
	if n == nil {
		return "unknown"
	}

	f, _ := new(big.Float).SetInt(n).Float64()
	if f >= scientificAbove {
		return fmt.Sprintf("%s (%.3g)", humanize.BigComma(n), f)
	}

	return humanize.BigComma(n)
}

// Progress describes how far a session is through its keyspace.
func Progress(checkpoint uint64, keyspace *big.Int) string {
	if keyspace == nil || keyspace.Sign() == 0 {
		return "n/a"
	}

	done, _ := new(big.Float).SetUint64(checkpoint).Float64()
	total, _ := new(big.Float).SetInt(keyspace).Float64()

	return progress.CalculatePercentage(done, total)
}

// Rate formats a candidates-per-second rate using SI prefixes.
func Rate(count uint64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return humanize.SI(0, "c/s")
	}

	return humanize.SI(float64(count)/elapsed.Seconds(), "c/s")
}

// Age formats a timestamp relative to now.
func Age(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return humanize.Time(t)
}

func shortFingerprint(fp string) string {
	const shortLen = 16
	if len(fp) > shortLen {
		return fp[:shortLen]
	}

	return fp
}

// BenchmarkStarting logs the start of a hashcat benchmark.
func BenchmarkStarting() {
	appstate.Logger.Info("Running hashcat benchmark, this can take a minute")
}

// BenchmarkDevice logs one device's benchmark speed.
func BenchmarkDevice(device string, speedHs float64) {
	appstate.Logger.Info("Benchmark result", "device", device, "speed", humanize.SI(speedHs, "H/s"))
}

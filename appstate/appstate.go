// Package appstate provides common state and configuration structures used across bitrecover.
package appstate

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// State represents the configuration and runtime state of the tool.
var State = appState{} //nolint:gochecknoglobals // Global application state

// appState holds the resolved paths and settings for a bitrecover invocation.
// It is populated once by config.SetupSharedState before any command runs and is
// read-only afterwards.
type appState struct {
	DataPath         string // DataPath is the root directory for all bitrecover data.
	FilePath         string // FilePath is the directory that wordlist and rule references resolve against.
	SessionsPath     string // SessionsPath is the directory holding one JSON file per attack session.
	ResultsDB        string // ResultsDB is the path to the SQLite database of recovered credentials.
	BenchmarkCache   string // BenchmarkCache is the JSON file holding the last hashcat benchmark.
	WorkPath         string // WorkPath is the scratch directory for oracle batch files.
	CrackersPath     string // CrackersPath is the directory searched for bundled hashcat/john binaries.
	Debug            bool   // Debug specifies whether the tool is running in debug mode.
	ExtraDebugging   bool   // ExtraDebugging enables per-batch debug output.
	BatchSize        uint   // BatchSize is the default number of candidates per oracle call.
	Parallel         int    // Parallel is the number of sessions run concurrently by `run`.
	Oracle           string // Oracle names the verification backend ("hashcat" or "john").
	HashcatPath      string // HashcatPath is an explicit hashcat binary path (empty for auto-detection).
	JohnPath         string // JohnPath is an explicit john binary path (empty for auto-detection).
	OptimizedKernels bool   // OptimizedKernels passes -O to hashcat.
	BackendDevices   string // BackendDevices is passed to hashcat as --backend-devices when set.
	ShowProgress     bool   // ShowProgress renders a progress bar during `run`.

	DownloadMaxRetries int           // DownloadMaxRetries bounds attempts per `fetch`.
	DownloadRetryDelay time.Duration // DownloadRetryDelay is the base delay between attempts, doubled each retry.
	InsecureDownloads  bool          // InsecureDownloads skips TLS verification for `fetch`.
}

// Logger is a shared logging instance configured to output logs at InfoLevel with timestamps to os.Stderr.
// Candidates and reports go to stdout, so logs stay on stderr.
var Logger = log.NewWithOptions(os.Stderr, log.Options{ //nolint:gochecknoglobals // Global logger instance
	Level:           log.InfoLevel,
	ReportTimestamp: true,
})

// ErrorLogger is a logger instance for logging critical errors with detailed error information.
var ErrorLogger = Logger.With() //nolint:gochecknoglobals // Global error logger instance

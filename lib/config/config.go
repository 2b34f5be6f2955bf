// Package config loads bitrecover configuration from file, environment and flags into
// appstate.State.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cracker"
)

const (
	// ConfigName is the config file base name, without extension.
	ConfigName = "bitrecover"
	// EnvPrefix prefixes environment overrides, e.g. BITRECOVER_BATCH_SIZE.
	EnvPrefix = "BITRECOVER"

	defaultBatchSize          = 10000
	defaultParallel           = 1
	defaultDownloadMaxRetries = 3
	defaultDownloadRetryDelay = 2 * time.Second
)

var scope = gap.NewScope(gap.User, "bitrecover") //nolint:gochecknoglobals // Configuration scope

// InitConfig points viper at the config search path and reads the first bitrecover.yaml
// found: the working directory, the per-user config dirs, then os.UserConfigDir. cfgFile,
// when set, replaces the search.
func InitConfig(cfgFile string) error {
	appstate.ErrorLogger.SetReportCaller(true)

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	viper.AddConfigPath(cwd)

	configDirs, err := scope.ConfigDirs()
	if err != nil {
		return err
	}

	for _, dir := range configDirs {
		viper.AddConfigPath(dir)
	}

	if home, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(home)
	}

	viper.SetConfigType("yaml")
	viper.SetConfigName(ConfigName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}

		appstate.Logger.Debug("No config file found, using defaults")

		return nil
	}

	appstate.Logger.Debug("Using config file", "config_file", viper.ConfigFileUsed())

	return nil
}

// SetDefaultConfigValues sets default configuration values. Paths under data_path are
// derived in SetupSharedState so they follow an overridden data_path.
func SetDefaultConfigValues() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	viper.SetDefault("data_path", filepath.Join(cwd, "data"))
	viper.SetDefault("batch_size", defaultBatchSize)
	viper.SetDefault("parallel", defaultParallel)
	viper.SetDefault("oracle", cracker.Hashcat)
	viper.SetDefault("hashcat_path", "")
	viper.SetDefault("john_path", "")
	viper.SetDefault("optimized_kernels", false)
	viper.SetDefault("backend_devices", "")
	viper.SetDefault("show_progress", true)
	viper.SetDefault("extra_debugging", false)
	viper.SetDefault("download_max_retries", defaultDownloadMaxRetries)
	viper.SetDefault("download_retry_delay", defaultDownloadRetryDelay)
	viper.SetDefault("insecure_downloads", false)
}

// SetupSharedState copies configuration into appstate.State, replacing invalid values with
// their defaults.
func SetupSharedState() {
	dataRoot := viper.GetString("data_path")

	appstate.State.DataPath = dataRoot
	appstate.State.FilePath = pathOr("files_path", dataRoot, "files")
	appstate.State.SessionsPath = pathOr("sessions_path", dataRoot, "sessions")
	appstate.State.ResultsDB = pathOr("results_db", dataRoot, "results.db")
	appstate.State.BenchmarkCache = pathOr("benchmark_cache", dataRoot, "benchmark.json")
	appstate.State.WorkPath = pathOr("work_path", dataRoot, "work")
	appstate.State.CrackersPath = pathOr("crackers_path", dataRoot, "crackers")
	appstate.State.Debug = viper.GetBool("debug")
	appstate.State.ExtraDebugging = viper.GetBool("extra_debugging")
	appstate.State.HashcatPath = viper.GetString("hashcat_path")
	appstate.State.JohnPath = viper.GetString("john_path")
	appstate.State.OptimizedKernels = viper.GetBool("optimized_kernels")
	appstate.State.BackendDevices = viper.GetString("backend_devices")
	appstate.State.ShowProgress = viper.GetBool("show_progress")
	appstate.State.InsecureDownloads = viper.GetBool("insecure_downloads")

	batchSize := viper.GetInt("batch_size")
	if batchSize < 1 {
		appstate.Logger.Warn("Invalid batch_size, using default", "value", batchSize, "default", defaultBatchSize)
		batchSize = defaultBatchSize
	}

	appstate.State.BatchSize = uint(batchSize)

	parallel := viper.GetInt("parallel")
	if parallel < 1 {
		appstate.Logger.Warn("Invalid parallel, using default", "value", parallel, "default", defaultParallel)
		parallel = defaultParallel
	}

	appstate.State.Parallel = parallel

	oracle := viper.GetString("oracle")
	if oracle != cracker.Hashcat && oracle != cracker.John {
		appstate.Logger.Warn("Unknown oracle, using hashcat", "value", oracle)
		oracle = cracker.Hashcat
	}

	appstate.State.Oracle = oracle

	retries := viper.GetInt("download_max_retries")
	if retries < 1 {
		appstate.Logger.Warn("Invalid download_max_retries, using default", "value", retries)
		retries = defaultDownloadMaxRetries
	}

	appstate.State.DownloadMaxRetries = retries

	delay := viper.GetDuration("download_retry_delay")
	if delay < 0 {
		appstate.Logger.Warn("Invalid download_retry_delay, using default", "value", delay)
		delay = defaultDownloadRetryDelay
	}

	appstate.State.DownloadRetryDelay = delay
}

func pathOr(key, dataRoot, name string) string {
	if p := viper.GetString(key); p != "" {
		return p
	}

	return filepath.Join(dataRoot, name)
}

// InitLogger applies the debug setting to the shared loggers.
func InitLogger() {
	if appstate.State.Debug {
		appstate.Logger.SetLevel(log.DebugLevel)
		appstate.Logger.SetReportCaller(true)
	} else {
		appstate.Logger.SetLevel(log.InfoLevel)
	}
}

// WriteDefaultConfig writes the current settings to path, or to bitrecover.yaml in the
// first per-user config dir when path is empty. An existing file is only replaced when
// force is set. Returns the path written.
func WriteDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		configDirs, err := scope.ConfigDirs()
		if err != nil {
			return "", err
		}

		if len(configDirs) == 0 {
			return "", errors.New("no user config directory available")
		}

		path = filepath.Join(configDirs[0], ConfigName+".yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}

	write := viper.SafeWriteConfigAs
	if force {
		write = viper.WriteConfigAs
	}

	if err := write(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}

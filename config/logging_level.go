package config

import (
	"sync"

	"github.com/rtdetect/rtdetect/logging"
)

var globalLogger struct {
	// These variables are initialized once at startup. No need for special synchronization.
	logger           logging.Logger
	cmdLineDebugFlag bool

	mu              sync.Mutex
	fileConfigLevel logging.Level
}

// InitLoggingSettings sets the level of logger from the command line debug flag. The logger is
// kept so UpdateFileConfigLevel can adjust it later.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	globalLogger.fileConfigLevel = logging.INFO
	refreshLogLevelInLock()
}

// UpdateFileConfigLevel applies the log_level of a config file. An empty level leaves the
// default in place. The command line debug flag always wins.
func UpdateFileConfigLevel(level string) error {
	if level == "" {
		return nil
	}
	parsed, err := logging.LevelFromString(level)
	if err != nil {
		return &ConfigError{Field: "log_level", Err: err}
	}

	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.fileConfigLevel = parsed
	refreshLogLevelInLock()
	return nil
}

func refreshLogLevelInLock() {
	if globalLogger.logger == nil {
		return
	}
	newLevel := globalLogger.fileConfigLevel
	if globalLogger.cmdLineDebugFlag {
		newLevel = logging.DEBUG
	}
	if globalLogger.logger.GetLevel() == newLevel {
		return
	}
	globalLogger.logger.SetLevel(newLevel)
	globalLogger.logger.Infow("log level changed", "level", newLevel.String())
}

package main

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configBaseName   = "snapdiff"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	envPrefix = "SNAPDIFF"

	hierarchyFlagName = "hierarchy"
	formatFlagName    = "format"
	ruleFlagName      = "rule"
	engineFlagName    = "engine"
	storeFlagName     = "store"
	dropFlagName      = "drop"
	limitFlagName     = "limit"
	logFileFlagName   = "log-file"
	verboseFlagName   = "verbose"

	hierarchyFileKey = "hierarchy.file"
	outputFormatKey  = "output.format"
	rulesKey         = "rules.expressions"
	rulesEngineKey   = "rules.engine"
	ruleArgsKey      = "rules.args"
	kindArgsKey      = "rules.kind_args"
	storePathKey     = "store.path"
	dropFieldsKey    = "input.drop_fields"
	historyLimitKey  = "history.limit"
	activityKey      = "activity.enabled"
	channelKey       = "activity.channel"

	defaultFormat       = formatTable
	defaultRulesEngine  = "expr"
	defaultStorePath    = ".snapdiff-store"
	defaultHistoryLimit = 20
	defaultActivity     = true

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".snapdiff.log"
	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(hierarchyFileKey, "")
	viper.SetDefault(outputFormatKey, defaultFormat)
	viper.SetDefault(rulesKey, []string{})
	viper.SetDefault(rulesEngineKey, defaultRulesEngine)
	viper.SetDefault(storePathKey, defaultStorePath)
	viper.SetDefault(dropFieldsKey, []string{})
	viper.SetDefault(historyLimitKey, defaultHistoryLimit)
	viper.SetDefault(activityKey, defaultActivity)
	viper.SetDefault(channelKey, "")

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, false)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}
		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels, e.g. -4 for debug.
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger installs a slog text logger writing to a rotating file as
// the process default. verbose forces debug level.
func configureLogger(logPath string, verbose bool) *slog.Logger {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}
	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

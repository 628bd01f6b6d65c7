package chaintrader

import (
	"os"
	"strconv"

	"github.com/raykavin/chaintrader/pkg/logger/zerolog"
)

const (
	// Default configuration values
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
)

// Environment variable names
const (
	envLogLevel      = "CHAINTRADER_LOG_LEVEL"
	envLogTimeFormat = "CHAINTRADER_LOG_TIME_FORMAT"
	envLogColor      = "CHAINTRADER_LOG_COLOR"
	envLogJSON       = "CHAINTRADER_LOG_JSON"
	envLogFile       = "CHAINTRADER_LOG_FILE"
)

func init() {
	// Initialize the logger with configuration from environment variables
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = zerolog.NewAdapter(log.Logger)
}

// initLogger creates a new logger instance configured from environment variables
func initLogger() (*zerolog.ZerologLogger, error) {
	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	return zerolog.New(zerolog.Config{
		Level:          getEnvWithDefault(envLogLevel, defaultLogLevel),
		DateTimeLayout: getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat),
		Colored:        logColored,
		JSONFormat:     logJSON,
		File:           os.Getenv(envLogFile),
	})
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}

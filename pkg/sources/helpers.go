package sources

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/StrathCole/oracle-validator/pkg/logging"
)

// GetLoggerFromConfig extracts the logger main.go places in every source config,
// or returns a noop logger.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// GetString returns a string value from a config map.
func GetString(m map[string]interface{}, key, defaultVal string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetInt returns an integer value from a config map. YAML may decode numbers as
// int, int64 or float64.
func GetInt(m map[string]interface{}, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultVal
	}
}

// GetBool returns a boolean value from a config map.
func GetBool(m map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return defaultVal
}

// ParseBigInt parses an integer given as a decimal string or a YAML number.
func ParseBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		out, ok := new(big.Int).SetString(strings.ReplaceAll(strings.TrimSpace(n), "_", ""), 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidConfig, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported integer %T", ErrInvalidConfig, v)
	}
}

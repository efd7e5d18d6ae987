package pipeline

import (
	"log"
	"os"
)

// LogLevelEnv enables stage logging when set to "debug".
const LogLevelEnv = "MOSAIC_GEO_LOG_LEVEL"

func debugf(format string, args ...any) {
	if os.Getenv(LogLevelEnv) == "debug" {
		log.Printf(format, args...)
	}
}

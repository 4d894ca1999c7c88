package env

import (
	"fmt"
	"os"
)

func FrontendPort() string {
	return fmt.Sprintf(
		":%s",
		lookupWithFallback("FRONTEND_PORT", "8008"),
	)
}

// ServerURL is the admin endpoint the mirror subscribes to.
func ServerURL() string {
	return lookupWithFallback("SERVER_URL", "ws://localhost:81/admin")
}

// FeedURL is the producer endpoint used by the load generator.
func FeedURL() string {
	return lookupWithFallback("FEED_URL", "ws://localhost:81/connect")
}

func ConfigPath() string {
	return lookupWithFallback("CONFIG_PATH", "/app/queueMirror")
}

func SnapshotDir() string {
	return lookupWithFallback("SNAPSHOT_DIR", ".")
}

func ServiceName() string {
	return lookupWithFallback("SERVICE_NAME", "queueMirror")
}

func OTLPEndpoint() string {
	return lookupWithFallback("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
}

func DBHost() string {
	return lookupWithFallback("SQUEAL_HOST", "squeal")
}

func DBUser() string {
	return lookupWithFallback("SQUEAL_USER", "test")
}

func DBPass() string {
	return lookupWithFallback("SQUEAL_PASS", "verySecureSuperSafe")
}

func DBName() string {
	return lookupWithFallback("SQUEAL_DB", "queueMirror")
}

func lookupWithFallback(key, fallback string) string {
	value, found := os.LookupEnv(key)
	if found {
		return value
	}
	if fallback != "" {
		return fallback
	}

	return ""
}

package featureflags

import (
	"net/http"
	"os"
)

const Tracing = "tracing"

func init() {
	flagEnabler = map[string]enabler{}
	flagEnabler[Tracing] = hasFlagInCookie
}

var flagEnabler map[string]enabler

type enabler func(flag string, r *http.Request) bool

// Enabled reports whether flag is on, either process-wide through an env
// var of the same name or for this request. r may be nil.
func Enabled(flag string, r *http.Request) bool {
	if _, ok := os.LookupEnv(flag); ok {
		return true
	}

	e, ok := flagEnabler[flag]
	if !ok || r == nil {
		return false
	}

	return e(flag, r)
}

func hasFlagInCookie(flag string, r *http.Request) bool {
	_, err := r.Cookie(flag)
	return err == nil
}

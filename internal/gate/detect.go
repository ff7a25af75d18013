package gate

import (
	"os"
	"strings"
)

// HostedEnvVars are set by the Colab runtime in every kernel and
// subprocess it starts.
var HostedEnvVars = []string{"COLAB_RELEASE_TAG", "COLAB_BACKEND_VERSION"}

// Detector reports whether the process runs inside a hosted notebook.
type Detector interface {
	Hosted() bool
}

// EnvDetector detects the hosted runtime from environment variables.
// Mode "true" or "false" bypasses detection.
type EnvDetector struct {
	Mode string

	// Lookup defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Hosted implements Detector.
func (d EnvDetector) Hosted() bool {
	switch strings.ToLower(d.Mode) {
	case "true":
		return true
	case "false":
		return false
	}

	lookup := d.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range HostedEnvVars {
		if v, ok := lookup(key); ok && v != "" {
			return true
		}
	}
	return false
}

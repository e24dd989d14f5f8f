package exceptional

import (
	"os"
	"regexp"
	"sync"
)

// Settings carries the process-wide capture policy. A zero Settings is
// usable: no default application name, no wrapper unwinding, no custom data
// admitted, rollup not per-server.
type Settings struct {
	// DefaultApplicationName is used when a capture does not supply one.
	DefaultApplicationName string

	// MachineName overrides the hostname recorded on captured errors.
	// Defaults to os.Hostname.
	MachineName string

	// RollupPerServer mixes the machine name into the identity hash so the
	// same fault on two servers rolls up separately.
	RollupPerServer bool

	// IsWrapper classifies a fault as a generic wrapper whose own message is
	// less useful for grouping than its root cause. When it reports true for
	// the outer fault, Message/Type/Source are taken from the innermost
	// wrapped fault instead. Nil means no unwinding.
	IsWrapper func(error) bool

	// DataIncludePattern selects which fault metadata keys propagate into
	// CustomData. Compile with (?i) for the conventional case-insensitive
	// match; internal/config does so. Nil admits nothing.
	DataIncludePattern *regexp.Regexp
}

var localMachine = sync.OnceValue(func() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
})

func (s *Settings) machineName() string {
	if s.MachineName != "" {
		return s.MachineName
	}
	return localMachine()
}

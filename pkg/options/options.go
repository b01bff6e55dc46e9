package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions defines the contract every option group implements so the
// application layer can compose, validate and bind them uniformly.
type IOptions interface {
	// Validate checks the option values entered by the user at startup.
	Validate() []error

	// AddFlags binds the options to the given FlagSet. Prefixes are accepted
	// for option groups that may appear more than once.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port string with a valid port.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

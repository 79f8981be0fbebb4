// Package version provides version information for the price validator.
package version

// Version is the current version of the price validator.
const Version = "0.3.0"

// AgentString returns the agent string sent with outbound requests.
// Format: oracle-validator/v{version}
func AgentString() string {
	return "oracle-validator/v" + Version
}

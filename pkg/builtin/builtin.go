// Package builtin registers the stock handlers a new project's manifests point
// at. Import it for its side effects:
//
//	import _ "github.com/keshon/fastiscord/pkg/builtin"
package builtin

// Catalog keys.
const (
	KeyPing             = "ping"
	KeyLogReady         = "log-ready"
	KeyDispatchCommands = "dispatch-commands"
)

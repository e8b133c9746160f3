package elide

// Version information for lockelide.
const (
	// Version is the current version of the library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info describes the elision runtime of this process.
type Info struct {
	// Version is the library version string.
	Version string

	// Unit names the transactional memory facility: "rtm" or "none".
	Unit string

	// Available reports whether scopes can run transactions.
	Available bool

	// MaxRetries and AbortCode are the effective defaults after the
	// environment was applied.
	MaxRetries int
	AbortCode  uint8
}

// GetInfo returns information about the elision runtime.
//
// Example:
//
//	info := elide.GetInfo()
//	fmt.Printf("lockelide %s (unit %s, available %t)\n", info.Version, info.Unit, info.Available)
func GetInfo() Info {
	cfg := defaultElider.Config()
	ok, _ := Available()
	unitName := "none"
	if ok {
		unitName = "rtm"
	}
	return Info{
		Version:    Version,
		Unit:       unitName,
		Available:  ok,
		MaxRetries: cfg.MaxRetries,
		AbortCode:  cfg.AbortCode,
	}
}

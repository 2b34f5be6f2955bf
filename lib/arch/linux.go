//go:build linux

package arch

// Platform returns the platform identifier.
func Platform() string {
	return "linux"
}

// DefaultHashcatBinaryName is the name used by the upstream hashcat release archives.
func DefaultHashcatBinaryName() string {
	return "hashcat.bin"
}

// DefaultJohnBinaryName returns the jumbo build's binary name.
func DefaultJohnBinaryName() string {
	return "john"
}

func AdditionalHashcatArgs() []string {
	return []string{}
}

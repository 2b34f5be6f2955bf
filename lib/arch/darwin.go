//go:build darwin

package arch

// Platform returns the platform identifier for macOS.
func Platform() string {
	return "darwin"
}

// DefaultHashcatBinaryName returns the Homebrew binary name.
func DefaultHashcatBinaryName() string {
	return "hashcat"
}

func DefaultJohnBinaryName() string {
	return "john"
}

func AdditionalHashcatArgs() []string {
	return []string{}
}

//go:build windows

package arch

// Platform returns the platform identifier for Windows systems.
func Platform() string {
	return "windows"
}

// DefaultHashcatBinaryName returns the default binary name for hashcat on Windows.
func DefaultHashcatBinaryName() string {
	return "hashcat.exe"
}

// DefaultJohnBinaryName returns the default binary name for John the Ripper on Windows.
func DefaultJohnBinaryName() string {
	return "john.exe"
}

// AdditionalHashcatArgs returns extra arguments passed to every hashcat invocation.
func AdditionalHashcatArgs() []string {
	return []string{}
}

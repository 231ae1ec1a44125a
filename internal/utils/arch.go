package utils

import "runtime"

// NormalizeArch maps an architecture name to the identifier the WiX
// compiler expects for its -arch flag. Both Go and Microsoft spellings
// are accepted; the empty string resolves from the host architecture.
func NormalizeArch(arch string) string {
	switch arch {
	case "":
		return hostArch()
	case "amd64", "x64":
		return "x64"
	case "386", "x86":
		return "x86"
	case "arm64":
		return "arm64"
	default:
		return ""
	}
}

func hostArch() string {
	switch runtime.GOARCH {
	case "386":
		return "x86"
	case "arm64":
		return "arm64"
	default:
		return "x64"
	}
}

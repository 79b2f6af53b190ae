// Package hostid resolves a stable machine identifier from OS-level
// hardware/firmware sources. The identifier substitutes for a user password
// as the default encryption secret, binding ciphertext to this machine.
package hostid

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// ErrUnsupportedPlatform is returned when the host OS has no known stable
// identifier source. Fatal: the vault cannot function without one.
var ErrUnsupportedPlatform = errors.New("unsupported platform: cannot determine system identity")

const linuxMachineIDPath = "/etc/machine-id"

// Compile-time interface satisfaction check.
var _ driven.IdentitySource = (*Source)(nil)

// Source implements driven.IdentitySource using OS-specific identifier
// commands. The zero value is usable.
type Source struct{}

// New returns a Source for the current platform.
func New() *Source { return &Source{} }

// SystemID returns a unique identifier for this machine. Linux reads
// /etc/machine-id, macOS extracts the IOPlatformUUID via ioreg, and Windows
// asks WMI for the Win32_ComputerSystemProduct UUID. The value is never
// persisted; callers recompute it whenever key material is needed.
func (s *Source) SystemID() (string, error) {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile(linuxMachineIDPath)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", linuxMachineIDPath, err)
		}
		return strings.TrimSpace(string(data)), nil

	case "darwin":
		out, err := exec.Command("ioreg", "-d2", "-c", "IOPlatformExpertDevice").Output()
		if err != nil {
			return "", fmt.Errorf("ioreg: %w", err)
		}
		id, ok := parsePlatformUUID(string(out))
		if !ok {
			return "", errors.New("ioreg output missing IOPlatformUUID")
		}
		return id, nil

	case "windows":
		out, err := exec.Command("powershell", "(Get-CimInstance -Class Win32_ComputerSystemProduct).UUID").Output()
		if err != nil {
			return "", fmt.Errorf("powershell: %w", err)
		}
		return strings.TrimSpace(string(out)), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
}

// parsePlatformUUID extracts the quoted IOPlatformUUID value from ioreg
// output lines of the form: "IOPlatformUUID" = "XXXXXXXX-...".
func parsePlatformUUID(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.Split(line, `"`)
		if len(parts) >= 4 {
			return parts[len(parts)-2], true
		}
	}
	return "", false
}

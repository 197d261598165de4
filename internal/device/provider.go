// AngelaMos | 2026
// provider.go

package device

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Provider yields the stable fingerprint for the machine the client runs
// on. DeviceID never returns an empty string: when no hardware identity
// is readable it falls back to a locally generated UUID persisted next to
// the app's state, so the same fallback survives restarts.
type Provider interface {
	DeviceID() (string, error)
}

type localProvider struct {
	stateDir string

	mu     sync.Mutex
	cached string
}

func NewProvider(stateDir string) Provider {
	return &localProvider{stateDir: stateDir}
}

func (p *localProvider) DeviceID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	if id, err := hardwareID(); err == nil && id != "" {
		p.cached = id
		return id, nil
	}

	id, err := p.persistedID()
	if err != nil {
		// Last resort: ephemeral but never empty.
		id = uuid.NewString()
	}

	p.cached = id
	return id, nil
}

const fallbackFile = "device_id"

func (p *localProvider) persistedID() (string, error) {
	dir := p.stateDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "diplomate")
	}

	path := filepath.Join(dir, fallbackFile)

	if raw, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	}

	id := uuid.NewString()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}

	return id, nil
}

func hardwareID() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return darwinID()
	case "linux":
		return linuxID()
	case "windows":
		return windowsID()
	default:
		return "", fmt.Errorf("no hardware id source on %s", runtime.GOOS)
	}
}

func darwinID() (string, error) {
	out, err := exec.Command(
		"ioreg", "-rd1", "-c", "IOPlatformExpertDevice",
	).Output()
	if err != nil {
		return "", fmt.Errorf("read platform uuid: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.Split(line, "\"")
		if len(parts) >= 4 && parts[3] != "" {
			return parts[3], nil
		}
	}

	return "", fmt.Errorf("IOPlatformUUID not found")
}

func linuxID() (string, error) {
	for _, path := range []string{
		"/etc/machine-id",
		"/sys/class/dmi/id/product_uuid",
	} {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("no machine id readable")
}

func windowsID() (string, error) {
	out, err := exec.Command("wmic", "csproduct", "get", "UUID").Output()
	if err != nil {
		return "", fmt.Errorf("read csproduct uuid: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		id := strings.TrimSpace(line)
		if id != "" && !strings.EqualFold(id, "UUID") {
			return id, nil
		}
	}

	return "", fmt.Errorf("csproduct UUID not found")
}

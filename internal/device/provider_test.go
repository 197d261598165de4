// AngelaMos | 2026
// provider_test.go

package device

import (
	"testing"
)

func TestDeviceIDNeverEmpty(t *testing.T) {
	p := NewProvider(t.TempDir())

	id, err := p.DeviceID()
	if err != nil {
		t.Fatalf("DeviceID() error = %v", err)
	}
	if id == "" {
		t.Fatal("DeviceID() returned empty string")
	}
}

func TestDeviceIDStableAcrossCalls(t *testing.T) {
	p := NewProvider(t.TempDir())

	first, err := p.DeviceID()
	if err != nil {
		t.Fatalf("first DeviceID() error = %v", err)
	}

	second, err := p.DeviceID()
	if err != nil {
		t.Fatalf("second DeviceID() error = %v", err)
	}

	if first != second {
		t.Fatalf("DeviceID() not stable: %q then %q", first, second)
	}
}

func TestPersistedFallbackSurvivesNewProvider(t *testing.T) {
	dir := t.TempDir()

	p1 := &localProvider{stateDir: dir}
	first, err := p1.persistedID()
	if err != nil {
		t.Fatalf("persistedID() error = %v", err)
	}

	p2 := &localProvider{stateDir: dir}
	second, err := p2.persistedID()
	if err != nil {
		t.Fatalf("persistedID() error = %v", err)
	}

	if first != second {
		t.Fatalf("fallback id not persisted: %q then %q", first, second)
	}
}

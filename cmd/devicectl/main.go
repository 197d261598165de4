// AngelaMos | 2026
// main.go

// devicectl prints the device fingerprint this machine would present
// at sign-in. Support staff use it to compare against a bound
// device_id before resetting an account.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/diplomate/backend/internal/device"
)

func main() {
	stateDir := flag.String(
		"state-dir",
		"",
		"directory for the persisted fallback id (default: user config dir)",
	)
	flag.Parse()

	provider := device.NewProvider(*stateDir)

	id, err := provider.DeviceID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "devicectl: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(id)
}

// Package device produces the stable per-install fingerprint used as the
// device-binding key, and the typed descriptor shipped across the broker
// boundary.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"runtime"
)

// Type classifies a device for display on the approving side.
type Type string

const (
	TypeLaptop  Type = "LAPTOP"
	TypePhone   Type = "PHONE"
	TypeTablet  Type = "TABLET"
	TypeDesktop Type = "DESKTOP"
	TypeUnknown Type = "UNKNOWN"
)

// Info is the closed set of attributes a device presents about itself.
// Anything not named here does not cross the boundary.
type Info struct {
	Type     Type   `json:"type"`
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
}

// Collect gathers the local host's attributes.
func Collect(t Type, name string) Info {
	hostname, _ := os.Hostname()
	return Info{
		Type:     t,
		Name:     name,
		Hostname: hostname,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// Fingerprint derives the stable binding key from an Info. Same attributes,
// same key, on every platform.
func Fingerprint(info Info) string {
	raw, _ := json.Marshal(info)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Package session sequences independent verification layers into one
// authentication run and tracks the aggregate outcome.
package session

import "fmt"

// Layer is one independent verification factor. The set is fixed and the
// configured order is the execution order.
type Layer int

const (
	LayerBiometricSignature Layer = iota
	LayerVoicePrint
	LayerHardwareBinding
	LayerFinalHandshake
)

var layerNames = map[Layer]string{
	LayerBiometricSignature: "BIOMETRIC_SIGNATURE",
	LayerVoicePrint:         "VOICE_PRINT",
	LayerHardwareBinding:    "HARDWARE_BINDING",
	LayerFinalHandshake:     "FINAL_HANDSHAKE",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LAYER(%d)", int(l))
}

// ParseLayer maps a config string back to a Layer.
func ParseLayer(name string) (Layer, error) {
	for l, n := range layerNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown layer: %q", name)
}

// Status is the session state. Idle, Scanning, Identified are transient;
// Unlocked and Failed are terminal for one run.
type Status int

const (
	StatusIdle Status = iota
	StatusScanning
	StatusIdentified
	StatusUnlocked
	StatusFailed
)

var statusNames = map[Status]string{
	StatusIdle:       "IDLE",
	StatusScanning:   "SCANNING",
	StatusIdentified: "IDENTIFIED",
	StatusUnlocked:   "BANKING_UNLOCKED",
	StatusFailed:     "FAILED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// Result is one layer's verdict. Capture errors arrive here as failed
// results with a distinguishing reason, never as panics or silent aborts.
type Result struct {
	OK     bool
	Reason string
}

// Event is emitted to the progress callback on every layer transition.
type Event struct {
	Layer  Layer
	Status Status
}

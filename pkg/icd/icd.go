// Package icd is the interface contract shared by the host and the controller:
// endpoint and topic names plus the payloads they carry.
package icd

import (
	"github.com/aretw0/llmvn/pkg/transport"
)

// ProductName identifies the controller on the link.
const ProductName = "llm-vn-controller"

// LinkPath is the HTTP path the controller serves the WebSocket link on.
const LinkPath = "/" + ProductName

// Empty is the payload of endpoints that carry no data.
type Empty struct{}

var (
	// Ping echoes its argument.
	Ping = transport.Endpoint[uint32, uint32]{Path: "ping"}

	// SetDisplay replaces the controller's current screen.
	SetDisplay = transport.Endpoint[Screen, Empty]{Path: "set_display"}

	// ButtonActionPerformed is published once per decoded button press.
	ButtonActionPerformed = transport.Topic[ButtonAction]{Path: "button_action"}
)

// Endpoints lists every endpoint path the controller serves.
func Endpoints() []string {
	return []string{Ping.Path, SetDisplay.Path}
}

// Topics lists every topic path the controller publishes.
func Topics() []string {
	return []string{ButtonActionPerformed.Path}
}

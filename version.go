package llmvn

import _ "embed"

// Version is the release of both kiosk binaries.
//
//go:embed VERSION
var Version string

/*
Package llmvn runs a two-node visual novel kiosk where visitors talk to
historical characters played by a large language model.

# Nodes

The controller (cmd/vncontroller) owns the buttons and the display. It samples
four button lines, publishes decoded presses as topic events, and draws
whatever screen the host last sent. It serves a single host over a WebSocket
link.

The host (cmd/vnhost) owns the session. It runs the character carousel, then a
timed conversation in which each visitor turn is one of three candidate replies
proposed by the model. Every turn is printed on a receipt printer and the
finished conversation is archived.

# Layout

  - pkg/icd: the endpoint and topic contract shared by both nodes.
  - pkg/transport: the request/response and topic dispatcher, with stream and WebSocket links.
  - pkg/buttons, pkg/display, pkg/device: the controller side.
  - pkg/session, pkg/conversation, pkg/character, pkg/controller: the host side.
  - pkg/adapters: printer, model, archive, terminal and HTTP status adapters.
*/
package llmvn

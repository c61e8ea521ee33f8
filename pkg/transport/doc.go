/*
Package transport connects the host and the controller over a single full-duplex link.

Traffic is carried as Frames. A frame is one JSON object per link message and holds
a kind, a path, a sequence number and an opaque body.

Two styles are supported:

  - Endpoints: request/response. The host calls an endpoint and the controller's
    Server dispatches the request to the handler registered for its path, then
    answers with a response frame carrying the same sequence number.
  - Topics: one-way notifications published by the controller. A host only
    receives events that arrive while it holds a Subscription to the topic.

Links are pluggable. The streamlink subpackage frames newline-delimited JSON over
any io.ReadWriteCloser (a serial gadget, a pipe). The wslink subpackage runs the
same frames over a WebSocket.
*/
package transport

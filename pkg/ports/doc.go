/*
Package ports defines the driven ports (interfaces) of the kiosk.

These interfaces decouple the session state machine and the controller loops from
concrete devices and services, so the same logic runs against a thermal printer or
a log, a WebSocket controller or an in-memory fake, a local model server or a stub.

# Key Interfaces

  - Controller: The host's view of the button/display device.
  - ChatModel: The language model backend.
  - Printer: The receipt printer that keeps a paper transcript.
  - ConversationStore: The archive of finished conversations.
  - Renderer: The controller's screen.
*/
package ports

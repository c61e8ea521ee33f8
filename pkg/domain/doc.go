/*
Package domain contains the core models of the kiosk host.

It defines the characters a visitor can talk to, the structured output the
language model answers with, and the conversation record that is archived when
a chat ends. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Character: A persona with display colours, a model name and opening lines.
  - Output: One model turn, a response plus three candidate user replies.
  - Conversation: The archived record of a chat (transcript and model history).
*/
package domain

package domain

import "errors"

// ErrConversationNotFound is returned when a conversation key cannot be found in the archive.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrConversationExists is returned when a conversation key is archived twice.
var ErrConversationExists = errors.New("conversation already archived")

// ErrInvalidKey is returned for conversation keys that cannot name an archive entry.
var ErrInvalidKey = errors.New("invalid conversation key")

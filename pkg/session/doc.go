/*
Package session implements the host's kiosk loop.

A session is a character selection followed by a conversation. The Machine drives
the controller screen from button presses alone: the carousel moves with Fn1 and
Fn3 and is confirmed with Fn2, then each Fn button picks one of the three replies
offered by the character model. A conversation ends exactly once, when End is
pressed, when no reply is picked within the reply timeout, or when the model
offers fewer than three replies. The finished record is printed and archived.
*/
package session

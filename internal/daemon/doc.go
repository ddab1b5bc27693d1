// Package daemon provides the main orchestration for chatbubbled: it wires
// the session manager to the bus, the presence notification, sound cues and
// config hot reload.
package daemon

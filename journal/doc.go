// Package journal implements a segmented append-only log of order-flow
// events with CRC framing and replay iteration. It is the persistence
// collaborator of the matching core: the core itself performs no I/O.
package journal

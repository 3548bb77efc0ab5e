// Package service orchestrates the matching core and its collaborators:
// journal, trade outbox, and snapshots. It provides the serialized API
// for placing, cancelling, amending, and querying orders, decoupled from
// any transport or driver.
package service

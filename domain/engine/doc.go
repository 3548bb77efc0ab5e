// Package engine implements continuous price-time-priority matching over
// a single orderbook. Submit consumes incoming flow, trades greedily
// against the opposing side, and rests or discards any remainder by order
// type. Arrival and trade sequence counters are owned by the engine
// instance, making replay of an identical input sequence byte-for-byte
// deterministic.
package engine

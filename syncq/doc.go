// Package syncq holds transfer records that could not be submitted and
// replays them when the backend is reachable again.
//
// The queue is a single JSON array persisted under one store key
// (DefaultKey). Enqueue appends and saves. Drain submits from the head and
// removes only the gapless prefix the backend confirmed, so a failure in the
// middle leaves that record and everything behind it in place, in order.
//
// A record that keeps failing blocks every record behind it. That is the
// price of never reordering.
//
// Watcher turns connectivity events into drain passes after a settle delay.
package syncq

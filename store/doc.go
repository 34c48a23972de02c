// Package store provides the durable key-value stores behind the offline
// queue: File for a handheld's local disk, Redis for a shared gateway, and
// Memory for tests.
//
// All backends follow the same contract: Set replaces the whole blob, Get
// returns ErrNotFound for a missing key, Clear removes only keys the store
// owns.
package store

// Package codec stores a box number on a tag as a single NDEF Text record and
// reads it back.
//
// # Reading
//
// ReadBoxID probes the message length with FAST_READ 3A 04 04, reads only
// the pages the message occupies starting at page 5, skips the five-byte
// record prefix (payload length, 'T', status, "en") and collects characters
// up to the 0xFE terminator. The text must be a non-negative decimal number.
//
// # Writing
//
// WriteText rejects empty or unrepresentable text before the radio is
// touched, then issues one WRITE per page from page 4 upward:
//
//	A2 04 03 <n+7> D1 01
//	A2 05 <n+3> 54 02 65
//	A2 06 6E t0 t1 t2
//	A2 07 t3 t4 t5 t6
//	...
//	A2 xx .. FE 00 00      terminator, zero padded
//
// Layout returns the same page plan without touching hardware.
//
// # Sessions
//
// Every call acquires one tag session and releases it on every exit path,
// including decode failures. Failures are *types.Error values of kind
// ErrKindDriver, ErrKindDecode or ErrKindInvalidPayload.
package codec

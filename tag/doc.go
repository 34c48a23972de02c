// Package tag models the paged memory of an NFC Forum Type 2 tag (NTAG21x)
// and the raw command boundary to the radio that reads it.
//
// # Memory layout
//
// Tag memory is an array of 4-byte pages addressed by a single byte:
//
//	page 0-2   serial number and lock bytes (read-only)
//	page 3     capability container (E1 10 <size/8> 00)
//	page 4..   user memory, holding NDEF TLVs
//
// # Driver
//
// Driver is the only way the rest of the module touches hardware. Every
// interaction is one scoped session:
//
//	err := tag.WithSession(ctx, drv, func(ctx context.Context) error {
//	    resp, err := tag.FastRead(ctx, drv, 4, 4)
//	    ...
//	})
//
// WithSession releases the session on every exit path, so a failed read never
// leaves the radio held open.
//
// # Memory
//
// Memory is an in-process tag that speaks the same command set. It backs the
// tag image files used by cmd/boxctl and stands in for hardware in tests,
// including fault injection and simulated removal from the field.
package tag

// Package types defines the error taxonomy shared by the boxtrace packages.
//
// Every failure that crosses a package boundary is a *Error carrying an
// ErrKind. Callers branch on the kind with errors.Is against the exported
// sentinels:
//
//	id, err := codec.ReadBoxID(ctx, drv)
//	switch {
//	case errors.Is(err, types.ErrDriver):
//	    // tag moved out of range; ask the operator to tap again
//	case errors.Is(err, types.ErrDecode):
//	    // tag is blank or holds something other than a box number
//	}
//
// No kind is fatal. Driver and decode errors end the current scan,
// submission errors send the record to the offline queue, and persistence
// errors leave the in-memory queue authoritative until the next save.
//
// This package has no dependencies beyond the standard library.
package types

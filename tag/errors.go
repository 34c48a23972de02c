package tag

import "errors"

var (
	// ErrNoTag indicates no tag is in the field when a session is requested.
	ErrNoTag = errors.New("tag: no tag in field")
	// ErrTagLost indicates the tag left the field during a session.
	ErrTagLost = errors.New("tag: connection lost")
	// ErrBusy indicates a session is already open.
	ErrBusy = errors.New("tag: session already active")
	// ErrNoSession indicates a command was sent without an open session.
	ErrNoSession = errors.New("tag: no active session")
	// ErrNAK indicates the tag rejected a command (bad address, locked page,
	// malformed frame).
	ErrNAK = errors.New("tag: command not acknowledged")
	// ErrImageSize indicates a memory image is not a whole number of pages
	// or is too small to hold user memory.
	ErrImageSize = errors.New("tag: invalid memory image size")
)

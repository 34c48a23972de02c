package tag

// Type 2 tag command set (NFC Forum T2T / NXP NTAG21x). Each command is
// sent as a raw frame; the driver adds and strips CRC.
const (
	// CmdRead reads 16 bytes (four pages) starting at the given page.
	// Frame: 30 <page>. Reads past the last page wrap to page 0.
	CmdRead byte = 0x30

	// CmdFastRead reads an inclusive page range.
	// Frame: 3A <start> <end>. Response is (end-start+1)*PageSize bytes.
	CmdFastRead byte = 0x3A

	// CmdWrite writes exactly one page.
	// Frame: A2 <page> <b0> <b1> <b2> <b3>. Response is a 4-bit ACK.
	CmdWrite byte = 0xA2

	// ACK is the positive acknowledgement returned for a write.
	ACK byte = 0x0A
)

const (
	// PageSize is the number of bytes in one addressable page.
	PageSize = 4

	// ReadSize is the number of bytes returned by CmdRead.
	ReadSize = 4 * PageSize

	// WriteFrameSize is the length of a CmdWrite frame: opcode, page, data.
	WriteFrameSize = 2 + PageSize

	// FastReadFrameSize is the length of a CmdFastRead frame.
	FastReadFrameSize = 3

	// CCPage holds the capability container. Pages 0-3 (serial number,
	// lock bytes, CC) are not writable through CmdWrite.
	CCPage = 3

	// FirstUserPage is the first page of user memory.
	FirstUserPage = 4
)

// Page counts of common NTAG21x parts.
const (
	NTAG213Pages = 45
	NTAG215Pages = 135
	NTAG216Pages = 231
)

// minPages is the smallest memory that has any user pages at all.
const minPages = FirstUserPage + 1

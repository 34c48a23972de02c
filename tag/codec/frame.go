package codec

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/boxtrace/pkg/types"
	"github.com/joshuapare/boxtrace/tag"
)

// Frame layout of a box number on the tag: one NDEF Text record inside an
// NDEF TLV, followed by a terminator TLV.
//
//	page 4   03 <n+7> D1 01          TLV tag, message length, record header, type length
//	page 5   <n+3> 54 02 65          payload length, 'T', status (UTF-8, lang len 2), 'e'
//	page 6   6E t0 t1 t2             'n', text
//	page 7+  t3 t4 t5 t6 ...         text, four bytes per page
//	last     ... FE 00 ..            terminator TLV, zero padded to the page
const (
	// LengthPage holds the TLV header whose second byte is the message length.
	LengthPage = 4
	// BasePage is the first page of the NDEF record.
	BasePage = 5
	// FirstTextPage is the first page written with text bytes.
	FirstTextPage = 6

	tlvNDEF      = 0x03
	recordHeader = 0xD1 // MB | ME | SR | TNF well-known
	typeLength   = 0x01
	typeText     = 0x54 // 'T'
	statusByte   = 0x02 // UTF-8, 2-byte language code

	// Terminator ends the text. It is the NDEF terminator TLV.
	Terminator = 0xFE

	// MessageOverhead is the message length minus the text length:
	// record header, type length, payload length, type, status, "en".
	MessageOverhead = 7
	// PayloadOverhead is the record payload length minus the text length:
	// status and "en".
	PayloadOverhead = 3
	// PrefixSize is the number of bytes read from BasePage before text starts:
	// payload length, type, status, "en".
	PrefixSize = 5

	// MaxTextLen keeps the message length within the single-byte TLV length
	// and the short-record payload length.
	MaxTextLen = 0xFF - MessageOverhead
)

var language = [2]byte{'e', 'n'}

// PageWrite is one planned CmdWrite.
type PageWrite struct {
	Page byte
	Data [tag.PageSize]byte
}

func (w PageWrite) String() string {
	return fmt.Sprintf("page %d: % x", w.Page, w.Data[:])
}

// Layout returns the page writes that store text on a tag, in the order they
// are issued. Pages are strictly increasing from LengthPage with no gaps.
func Layout(text string) ([]PageWrite, error) {
	raw, err := encodeText(text)
	if err != nil {
		return nil, err
	}
	n := len(raw)

	writes := []PageWrite{
		{Page: LengthPage, Data: [4]byte{tlvNDEF, byte(n + MessageOverhead), recordHeader, typeLength}},
		{Page: BasePage, Data: [4]byte{byte(n + PayloadOverhead), typeText, statusByte, language[0]}},
	}

	stream := make([]byte, 0, n+2)
	stream = append(stream, language[1])
	stream = append(stream, raw...)
	stream = append(stream, Terminator)

	page := FirstTextPage
	for off := 0; off < len(stream); off += tag.PageSize {
		var w PageWrite
		w.Page = byte(page)
		copy(w.Data[:], stream[off:])
		writes = append(writes, w)
		page++
	}
	return writes, nil
}

// encodeText validates text and converts it to tag bytes. Tags store one
// byte per character, so text is limited to ISO-8859-1.
func encodeText(text string) ([]byte, error) {
	if text == "" {
		return nil, types.InvalidPayload("nothing to write")
	}
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, types.InvalidPayload(fmt.Sprintf("text %q is not representable on a tag", text))
	}
	if len(raw) > MaxTextLen {
		return nil, types.InvalidPayload(fmt.Sprintf("text is %d bytes, limit %d", len(raw), MaxTextLen))
	}
	if bytes.IndexByte(raw, Terminator) >= 0 {
		return nil, types.InvalidPayload(fmt.Sprintf("text %q contains the terminator byte", text))
	}
	return raw, nil
}

// payloadPages returns how many pages from BasePage hold a message of
// length n.
func payloadPages(n int) int {
	return (n + tag.PageSize - 1) / tag.PageSize
}

// extractText skips the record prefix and returns the text up to the
// terminator. A missing terminator means the record was cut short.
func extractText(raw []byte) (string, error) {
	if len(raw) <= PrefixSize {
		return "", types.Decode(fmt.Sprintf("record is %d bytes, shorter than its prefix", len(raw)), nil)
	}
	body := raw[PrefixSize:]
	end := bytes.IndexByte(body, Terminator)
	if end < 0 {
		return "", types.Decode("no terminator within declared length", nil)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body[:end])
	if err != nil {
		return "", types.Decode("decode text", err)
	}
	return string(decoded), nil
}

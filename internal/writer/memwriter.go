package writer

import "sync"

// MemWriter captures blobs in memory.
type MemWriter struct {
	mu     sync.Mutex
	Buf    []byte
	Writes int
	// Err, when set, is returned by WriteAll and nothing is stored.
	Err error
}

// WriteAll stores a copy of buf.
func (w *MemWriter) WriteAll(buf []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Buf = append(w.Buf[:0], buf...)
	w.Writes++
	return nil
}

// Bytes returns a copy of the last stored blob.
func (w *MemWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.Buf...)
}

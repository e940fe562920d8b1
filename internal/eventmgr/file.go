package eventmgr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/nidsd/nidsd/internal/events"
)

// FileSink writes the binary event-envelope stream to disk, rotating
// to a freshly timestamped file once the current file reaches
// maxBytes. Grounded on
// original_source/src/events/event_file_writer.cc's create_new_file
// and write.
type FileSink struct {
	mu sync.Mutex

	dir      string
	maxBytes uint32
	hashAlg  HashAlgorithm
	encAlg   EncryptionAlgorithm
	key      []byte
	clock    clockwork.Clock

	f       *os.File
	curSize uint32
}

// NewFileSink opens the first rotated file under dir immediately.
func NewFileSink(dir string, maxBytes uint32, hashAlg HashAlgorithm, encAlg EncryptionAlgorithm, key []byte, clock clockwork.Clock) (*FileSink, error) {
	s := &FileSink{dir: dir, maxBytes: maxBytes, hashAlg: hashAlg, encAlg: encAlg, key: key, clock: clock}
	if err := s.rotate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) Name() string { return "file" }

// rotate opens a new timestamped file, closing any previously open
// one first. Filename format mirrors create_new_file()'s
// event_log_YYYY_MM_DD_HH_MM_SS_mmmm.bin.
func (s *FileSink) rotate() error {
	if s.f != nil {
		s.f.Close()
	}

	now := s.clock.Now().UTC()
	name := fmt.Sprintf("event_log_%04d_%02d_%02d_%02d_%02d_%02d_%04d.bin",
		now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond()/1_000_000)

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("eventmgr: opening event file: %w", err)
	}

	s.f = f
	s.curSize = 0
	return nil
}

// Write serializes ev, seals it in the hash-then-encrypt envelope,
// and appends it to the current file, rotating first if the file has
// reached maxBytes. Rotation is not crash-atomic (spec.md §4.5): a
// process killed mid-write may leave a truncated trailing record.
func (s *FileSink) Write(ev events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleartext := EncodeMessage(ev)
	hdr, ciphertext, err := Seal(cleartext, s.hashAlg, s.encAlg, s.key)
	if err != nil {
		return err
	}

	record := encodeEnvelope(hdr, ciphertext)

	if s.curSize >= s.maxBytes {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	if _, err := s.f.Write(record); err != nil {
		return fmt.Errorf("eventmgr: writing event record: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("eventmgr: flushing event file: %w", err)
	}

	s.curSize += uint32(len(record))
	return nil
}

// Close flushes and closes the currently open file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// encodeEnvelope renders an event_msg_hdr followed by its ciphertext,
// per spec.md §6's wire layout.
func encodeEnvelope(hdr EnvelopeHeader, ciphertext []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(envelopeHdrLen + len(ciphertext))

	buf.WriteByte(hdr.Version)
	buf.WriteByte(byte(hdr.HashAlg))
	buf.WriteByte(byte(hdr.EncAlg))

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], hdr.EncMsgLen)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], hdr.HashLen)
	buf.Write(u32[:])

	buf.Write(hdr.IV[:])
	buf.Write(hdr.Hash[:])
	buf.Write(ciphertext)

	return buf.Bytes()
}

// decodeEnvelope parses an event_msg_hdr and its ciphertext tail from
// a binary event file, returning the number of bytes consumed. A
// truncated trailing record (fewer bytes than the header declares) is
// reported as io.ErrUnexpectedEOF, matching spec.md §4.5's "verifiers
// MUST treat a truncated trailing record as the end of the file, not
// as corruption" — callers should stop reading on this error rather
// than treat it as a fatal parse failure.
func decodeEnvelope(b []byte) (EnvelopeHeader, []byte, int, error) {
	if len(b) < envelopeHdrLen {
		return EnvelopeHeader{}, nil, 0, fmt.Errorf("eventmgr: truncated envelope header")
	}

	var hdr EnvelopeHeader
	hdr.Version = b[0]
	hdr.HashAlg = HashAlgorithm(b[1])
	hdr.EncAlg = EncryptionAlgorithm(b[2])
	hdr.EncMsgLen = binary.LittleEndian.Uint32(b[3:7])
	hdr.HashLen = binary.LittleEndian.Uint32(b[7:11])
	copy(hdr.IV[:], b[11:11+ivLen])
	copy(hdr.Hash[:], b[11+ivLen:11+ivLen+hashBufLen])

	total := envelopeHdrLen + int(hdr.EncMsgLen)
	if len(b) < total {
		return EnvelopeHeader{}, nil, 0, fmt.Errorf("eventmgr: truncated trailing record: %w", io.ErrUnexpectedEOF)
	}

	ciphertext := b[envelopeHdrLen:total]
	return hdr, ciphertext, total, nil
}

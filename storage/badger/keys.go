package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// Key prefixes for different data types
const (
	recordPrefix        = "rec:"
	recordURLPrefix     = "rurl:"
	recordTitlePrefix   = "rtt:"
	recordCreatedPrefix = "rcr:"
	recordIDSeq         = "rseq"
)

// makeRecordKey generates a key for a stored record by ID.
// Format: prefix + id
func makeRecordKey(id core.ID) []byte {
	buf := make([]byte, len(recordPrefix)+8)
	offset := copy(buf, recordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeURLKey generates the unique source URL index key.
// The URL is stored verbatim so distinct URLs can never collide.
func makeURLKey(sourceURL string) []byte {
	return append([]byte(recordURLPrefix), sourceURL...)
}

// makePartialTitleKey generates the prefix shared by all records with the
// same title and source type.
// Format: prefix + blake2b(natural key)
func makePartialTitleKey(m core.Match) []byte {
	buf := make([]byte, len(recordTitlePrefix)+8)
	offset := copy(buf, recordTitlePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(m.Key())))
	return buf
}

// makeTitleKey generates a composite key for the title/source type index.
// Format: prefix + blake2b(natural key) + id
func makeTitleKey(m core.Match, id core.ID) []byte {
	partial := makePartialTitleKey(m)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeCreatedKey generates a composite key for the creation time index.
// Format: prefix + unix micros + id, big endian so lexicographic order is chronological.
func makeCreatedKey(createdAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(recordCreatedPrefix)+16)
	offset := copy(buf, recordCreatedPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialCreatedKey generates a seek key for creation time range scans.
func makePartialCreatedKey(ts time.Time) []byte {
	buf := make([]byte, len(recordCreatedPrefix)+8)
	offset := copy(buf, recordCreatedPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ts.UnixMicro()))
	return buf
}

// parseCreatedKey extracts the timestamp and ID from a creation index key.
func parseCreatedKey(key []byte) (int64, core.ID, bool) {
	offset := len(recordCreatedPrefix)
	if len(key) != offset+16 {
		return 0, 0, false
	}
	micros := int64(binary.BigEndian.Uint64(key[offset:]))
	id := core.ID(binary.BigEndian.Uint64(key[offset+8:]))
	return micros, id, true
}

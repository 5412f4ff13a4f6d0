package timeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
)

// localKeyPrefix namespaces correlation keys of not-yet-confirmed
// messages so they can never collide with a server-assigned identity.
const localKeyPrefix = "local:"

// Key derives the correlation key for a message. Server identity is
// authoritative when present; otherwise the key is a hash over a
// length-prefixed tuple of sender, timestamp and text, which avoids the
// delimiter collisions of naive string concatenation.
func Key(m domain.Message) string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return localKeyPrefix + hashTuple(m.SenderID, m.Timestamp.UTC().Format(time.RFC3339Nano), m.Text)
}

func hashTuple(fields ...string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(f)))
		h.Write(lenBuf[:])
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

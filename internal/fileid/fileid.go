package fileid

import (
	"crypto/rand"
	"strconv"
	"time"
)

const (
	base36Chars  = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength = 9
)

// New returns an opaque file identifier: the current millisecond timestamp
// followed by 9 random base36 characters. The random suffix keeps concurrent
// in-process calls distinct; the files table PRIMARY KEY backs global
// uniqueness at insert time.
func New() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + randomSuffix()
}

func randomSuffix() string {
	b := make([]byte, suffixLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a nanosecond tail so an identifier is still produced
		return strconv.FormatInt(time.Now().UnixNano()%1e9, 36)
	}
	for i := range b {
		b[i] = base36Chars[int(b[i])%len(base36Chars)]
	}
	return string(b)
}

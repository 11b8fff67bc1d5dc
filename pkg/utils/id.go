package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// seq disambiguates IDs minted within the same nanosecond.
var seq uint64

// GenMsgID returns a creation-sequenced message ID. IDs sort
// lexicographically in creation order, which makes them usable directly as
// storage keys and pagination cursors.
func GenMsgID() string {
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	return fmt.Sprintf("m%020d-%06d", ts, s%1000000)
}

// GenID returns a random hex identifier for conversations, connections and
// provisioned users.
func GenID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		// fall back to a time-derived id; rand failure here is effectively fatal anyway
		return fmt.Sprintf("t%020d", time.Now().UTC().UnixNano())
	}
	return hex.EncodeToString(b)
}

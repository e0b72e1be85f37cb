package store

import (
	"crypto/sha256"
	"fmt"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// HashRecords computes SHA-256 over normalized records in order.
//
// Order is part of the hash: with last-write-wins, the same records in a
// different order can pivot to different votes.
func HashRecords(records []alignment.VoteRecord) string {
	h := sha256.New()
	for _, r := range records {
		h.Write([]byte(r.Resolution))
		h.Write([]byte{0}) // separator
		h.Write([]byte(r.Entity))
		h.Write([]byte{0})
		h.Write([]byte(r.Vote))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

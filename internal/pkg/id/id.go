package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, work as
// DynamoDB partition keys, and take their entropy from crypto/rand, which
// matters for verification ids handed to anonymous clients.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

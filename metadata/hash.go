package metadata

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/google/uuid"
)

// Document is anything with a canonical serialized form.
type Document interface {
	Marshal() []byte
}

// Hash returns sha256 of the document's canonical serialization.
func Hash(doc Document) [32]byte {
	return sha256.Sum256(doc.Marshal())
}

// SpecID interprets the first 16 bytes of the document hash as a UUID.
func SpecID(doc Document) uuid.UUID {
	sum := Hash(doc)
	id, _ := uuid.FromBytes(sum[:16])
	return id
}

// HashString is the base64 form of the first 16 bytes of the document hash,
// recorded as the source hash of the on-chain contract specification.
func HashString(doc Document) string {
	sum := Hash(doc)
	return base64.StdEncoding.EncodeToString(sum[:16])
}

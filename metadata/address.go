package metadata

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ruteri/contract-spec-publisher/bech32"
)

// AddressKind is the leading type key byte of a MetadataAddress.
type AddressKind byte

const (
	// KindScope addresses a scope: kind byte and scope UUID.
	KindScope                 AddressKind = 0x00
	// KindSession addresses a session within a scope.
	KindSession               AddressKind = 0x01
	// KindRecord addresses a named record within a scope.
	KindRecord                AddressKind = 0x02
	// KindContractSpecification addresses a contract specification.
	KindContractSpecification AddressKind = 0x03
	// KindScopeSpecification addresses a scope specification.
	KindScopeSpecification    AddressKind = 0x04
	// KindRecordSpecification addresses a named record specification within
	// a contract specification.
	KindRecordSpecification   AddressKind = 0x05
)

const (
	primaryLength   = 16
	secondaryLength = 16
	shortLength     = 1 + primaryLength
	longLength      = 1 + primaryLength + secondaryLength
)

type kindInfo struct {
	prefix string
	length int
}

var kindTable = map[AddressKind]kindInfo{
	KindScope:                 {prefix: "scope", length: shortLength},
	KindSession:               {prefix: "session", length: longLength},
	KindRecord:                {prefix: "record", length: longLength},
	KindContractSpecification: {prefix: "contractspec", length: shortLength},
	KindScopeSpecification:    {prefix: "scopespec", length: shortLength},
	KindRecordSpecification:   {prefix: "recspec", length: longLength},
}

// Address construction and parsing errors.
var (
	ErrInvalidAddress = errors.New("invalid metadata address")
	ErrBlankName      = errors.New("name must not be blank")
)

// Prefix returns the bech32 human-readable part used for this kind.
func (k AddressKind) Prefix() string {
	return kindTable[k].prefix
}

// Length returns the total byte length of an address of this kind.
func (k AddressKind) Length() int {
	return kindTable[k].length
}

// Valid reports whether k is a known type key.
func (k AddressKind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

func (k AddressKind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.prefix
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(k))
}

// MetadataAddress is a typed binary address: type key, 16-byte primary id and
// an optional 16-byte secondary id.
type MetadataAddress []byte

func newAddress(kind AddressKind, primary uuid.UUID, secondary []byte) MetadataAddress {
	addr := make(MetadataAddress, 0, kind.Length())
	addr = append(addr, byte(kind))
	addr = append(addr, primary[:]...)
	addr = append(addr, secondary...)
	return addr
}

// NameHash derives the secondary id of a named sub-resource.
func NameHash(name string) []byte {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(name))))
	return sum[:secondaryLength]
}

func namedAddress(kind AddressKind, primary uuid.UUID, name string) (MetadataAddress, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%s address: %w", kind, ErrBlankName)
	}
	return newAddress(kind, primary, NameHash(name)), nil
}

// ForScope returns the scope address of scope.
func ForScope(scope uuid.UUID) MetadataAddress {
	return newAddress(KindScope, scope, nil)
}

// ForSession returns the address of session within scope.
func ForSession(scope, session uuid.UUID) MetadataAddress {
	return newAddress(KindSession, scope, session[:])
}

// ForRecord returns the address of the record named name within scope. The
// name is trimmed and lowercased before hashing; a blank name fails with
// ErrBlankName.
func ForRecord(scope uuid.UUID, name string) (MetadataAddress, error) {
	return namedAddress(KindRecord, scope, name)
}

// ForScopeSpecification returns the scope specification address of spec.
func ForScopeSpecification(spec uuid.UUID) MetadataAddress {
	return newAddress(KindScopeSpecification, spec, nil)
}

// ForContractSpecification returns the contract specification address of spec.
func ForContractSpecification(spec uuid.UUID) MetadataAddress {
	return newAddress(KindContractSpecification, spec, nil)
}

// ForRecordSpecification returns the address of the record specification
// named name under contractSpec, normalized like ForRecord.
func ForRecordSpecification(contractSpec uuid.UUID, name string) (MetadataAddress, error) {
	return namedAddress(KindRecordSpecification, contractSpec, name)
}

// FromBytes validates the type key and exact length of b and returns a copy.
func FromBytes(b []byte) (MetadataAddress, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	kind := AddressKind(b[0])
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown type key 0x%02x", ErrInvalidAddress, b[0])
	}
	if len(b) != kind.Length() {
		return nil, fmt.Errorf("%w: %s address must be %d bytes, got %d", ErrInvalidAddress, kind, kind.Length(), len(b))
	}
	return MetadataAddress(bytes.Clone(b)), nil
}

// FromBech32 decodes s and checks that its prefix matches the embedded type key.
func FromBech32(s string) (MetadataAddress, error) {
	hrp, payload, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	addr, err := FromBytes(payload)
	if err != nil {
		return nil, err
	}
	if want := addr.Kind().Prefix(); hrp != want {
		return nil, fmt.Errorf("%w: prefix %q does not match %s type key (want %q)", ErrInvalidAddress, hrp, addr.Kind(), want)
	}
	return addr, nil
}

// Kind returns the leading type byte.
func (a MetadataAddress) Kind() AddressKind {
	if len(a) == 0 {
		return AddressKind(0xff)
	}
	return AddressKind(a[0])
}

// PrimaryUUID returns the scope or specification UUID that follows the kind byte.
func (a MetadataAddress) PrimaryUUID() uuid.UUID {
	var id uuid.UUID
	if len(a) >= shortLength {
		copy(id[:], a[1:shortLength])
	}
	return id
}

// SecondaryBytes returns the secondary id, or nil for short addresses.
func (a MetadataAddress) SecondaryBytes() []byte {
	if len(a) <= shortLength {
		return nil
	}
	return bytes.Clone(a[shortLength:])
}

// Bech32 encodes the address with the prefix of its kind.
func (a MetadataAddress) Bech32() (string, error) {
	if _, err := FromBytes(a); err != nil {
		return "", err
	}
	return bech32.Encode(a.Kind().Prefix(), a)
}

func (a MetadataAddress) Equal(other MetadataAddress) bool {
	return bytes.Equal(a, other)
}

// String returns the bech32 form, or hex when the address is malformed.
func (a MetadataAddress) String() string {
	s, err := a.Bech32()
	if err != nil {
		return hex.EncodeToString(a)
	}
	return s
}

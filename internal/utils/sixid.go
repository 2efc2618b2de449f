package utils

import (
	"crypto/rand"
	"errors"
	"strings"
)

// SixIDHookFunc lets tests force the next generated id.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook, when set, is consulted by NewSixID before generating randomly.
var NewSixIDHook SixIDHookFunc

// SixID is a 6-byte random document key, rendered as 10 Crockford Base32 characters.
// Collisions are possible and handled by the store retrying on duplicate keys.
type SixID [6]byte

// NewSixID creates a new random SixID.
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}

	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		return SixID{}
	}
	return id
}

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordDecodeMap = func() map[byte]byte {
	m := make(map[byte]byte, 64)
	for i := 0; i < len(crockfordAlphabet); i++ {
		c := crockfordAlphabet[i]
		m[c] = byte(i)
		if c >= 'A' && c <= 'Z' {
			m[c+('a'-'A')] = byte(i)
		}
	}
	m['O'], m['o'] = 0, 0
	m['I'], m['i'], m['L'], m['l'] = 1, 1, 1, 1
	return m
}()

// String returns the upper-case Crockford Base32 form.
func (u SixID) String() string {
	result := make([]byte, 0, 10)
	var bits, offset uint
	for _, b := range u {
		bits |= uint(b) << offset
		offset += 8
		for offset >= 5 {
			result = append(result, crockfordAlphabet[bits&0x1F])
			bits >>= 5
			offset -= 5
		}
	}
	if offset > 0 {
		result = append(result, crockfordAlphabet[bits&0x1F])
	}
	return string(result)
}

// IsZero reports whether the id is all zero bytes.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// ParseSixID parses a Crockford Base32 string. Hyphens and spaces are ignored,
// and o/i/l are read as 0/1/1.
func ParseSixID(s string) (SixID, error) {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(s) != 10 {
		return SixID{}, errors.New("invalid SixID: length must be 10")
	}

	var id SixID
	var bits uint64
	var offset uint
	n := 0
	for i := 0; i < len(s); i++ {
		val, ok := crockfordDecodeMap[s[i]]
		if !ok {
			return SixID{}, errors.New("invalid character in SixID")
		}
		bits |= uint64(val) << offset
		offset += 5
		for offset >= 8 && n < len(id) {
			id[n] = byte(bits)
			n++
			bits >>= 8
			offset -= 8
		}
	}
	if n != len(id) {
		return SixID{}, errors.New("invalid SixID: could not decode 6 bytes")
	}
	return id, nil
}

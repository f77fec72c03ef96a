package bulldozer

import (
	"crypto/sha256"
	"encoding/binary"
	"unicode/utf8"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

const (
	discriminatorSize = 8
	pubkeySize        = 32
)

type discriminator [discriminatorSize]byte

func accountDiscriminator(name string) discriminator {
	return hashDiscriminator("account:" + name)
}

func instructionDiscriminator(name string) discriminator {
	return hashDiscriminator("global:" + name)
}

func hashDiscriminator(preimage string) discriminator {
	var d discriminator
	sum := sha256.Sum256([]byte(preimage))
	copy(d[:], sum[:discriminatorSize])
	return d
}

// fixedStringSize is the slot a string of at most max bytes occupies.
func fixedStringSize(max int) int {
	return 4 + max
}

func putDiscriminator(dst []byte, d discriminator, offset *int) {
	copy(dst[*offset:], d[:])
	*offset += discriminatorSize
}

func getDiscriminator(src []byte, dst *discriminator, offset *int) {
	copy(dst[:], src[*offset:*offset+discriminatorSize])
	*offset += discriminatorSize
}

func putKey(dst []byte, v types.Pubkey, offset *int) {
	copy(dst[*offset:], v[:])
	*offset += pubkeySize
}

func getKey(src []byte, dst *types.Pubkey, offset *int) {
	copy(dst[:], src[*offset:*offset+pubkeySize])
	*offset += pubkeySize
}

func putBool(dst []byte, v bool, offset *int) {
	if v {
		dst[*offset] = 1
	} else {
		dst[*offset] = 0
	}
	*offset++
}

func getBool(src []byte, dst *bool, offset *int) {
	*dst = src[*offset] != 0
	*offset++
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset++
}

func getUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset++
}

func putUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst[*offset:], v)
	*offset += 2
}

func getUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src[*offset:])
	*offset += 2
}

func putUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}

func getUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}

func putInt64(dst []byte, v int64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], uint64(v))
	*offset += 8
}

func getInt64(src []byte, dst *int64, offset *int) {
	*dst = int64(binary.LittleEndian.Uint64(src[*offset:]))
	*offset += 8
}

// putFixedString writes a u32 length prefix followed by v, zero padded to max.
func putFixedString(dst []byte, v string, max int, offset *int) {
	putUint32(dst, uint32(len(v)), offset)
	copy(dst[*offset:*offset+max], v)
	*offset += max
}

func getFixedString(src []byte, dst *string, max int, offset *int) error {
	var n uint32
	getUint32(src, &n, offset)
	if int(n) > max {
		return ErrAccountDidNotDeserialize
	}
	*dst = string(src[*offset : *offset+int(n)])
	*offset += max
	return nil
}

// putString writes an unpadded length-prefixed string.
func putString(dst []byte, v string, offset *int) {
	putUint32(dst, uint32(len(v)), offset)
	copy(dst[*offset:], v)
	*offset += len(v)
}

func getString(src []byte, dst *string, offset *int) error {
	if len(src) < *offset+4 {
		return ErrAccountDidNotDeserialize
	}
	var n uint32
	getUint32(src, &n, offset)
	if len(src) < *offset+int(n) {
		return ErrAccountDidNotDeserialize
	}
	*dst = string(src[*offset : *offset+int(n)])
	*offset += int(n)
	return nil
}

// Optional values occupy a fixed slot: a presence byte and the value size.

func putOptionKey(dst []byte, v *types.Pubkey, offset *int) {
	putBool(dst, v != nil, offset)
	if v != nil {
		copy(dst[*offset:], v[:])
	}
	*offset += pubkeySize
}

func getOptionKey(src []byte, dst **types.Pubkey, offset *int) {
	var present bool
	getBool(src, &present, offset)
	if present {
		var k types.Pubkey
		copy(k[:], src[*offset:*offset+pubkeySize])
		*dst = &k
	} else {
		*dst = nil
	}
	*offset += pubkeySize
}

func putOptionUint8(dst []byte, v *uint8, offset *int) {
	putBool(dst, v != nil, offset)
	if v != nil {
		dst[*offset] = *v
	}
	*offset++
}

func getOptionUint8(src []byte, dst **uint8, offset *int) {
	var present bool
	getBool(src, &present, offset)
	if present {
		v := src[*offset]
		*dst = &v
	} else {
		*dst = nil
	}
	*offset++
}

func putOptionUint16(dst []byte, v *uint16, offset *int) {
	putBool(dst, v != nil, offset)
	if v != nil {
		binary.LittleEndian.PutUint16(dst[*offset:], *v)
	}
	*offset += 2
}

func getOptionUint16(src []byte, dst **uint16, offset *int) {
	var present bool
	getBool(src, &present, offset)
	if present {
		v := binary.LittleEndian.Uint16(src[*offset:])
		*dst = &v
	} else {
		*dst = nil
	}
	*offset += 2
}

func putOptionUint32(dst []byte, v *uint32, offset *int) {
	putBool(dst, v != nil, offset)
	if v != nil {
		binary.LittleEndian.PutUint32(dst[*offset:], *v)
	}
	*offset += 4
}

func getOptionUint32(src []byte, dst **uint32, offset *int) {
	var present bool
	getBool(src, &present, offset)
	if present {
		v := binary.LittleEndian.Uint32(src[*offset:])
		*dst = &v
	} else {
		*dst = nil
	}
	*offset += 4
}

// Text limits.
const (
	MaxNameLength     = 32
	MaxURLLength      = 300
	MaxBodyLength     = 10240
	maxArgumentString = MaxBodyLength + 1024
)

func validateName(name string) error {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(name) == 0 || !utf8.ValidString(name) {
		return ErrInvalidName
	}
	return nil
}

func validateURL(url string) error {
	if len(url) > MaxURLLength {
		return ErrUrlTooLong
	}
	if !utf8.ValidString(url) {
		return ErrInvalidName
	}
	return nil
}

func validateBody(body string) error {
	if len(body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	if !utf8.ValidString(body) {
		return ErrInvalidName
	}
	return nil
}

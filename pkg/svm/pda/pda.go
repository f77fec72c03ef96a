// Package pda derives program addresses.
//
// Program addresses are public keys that do not lie on the ed25519 curve,
// so no private key exists for them and only the owning program can act on
// their behalf. They are found by hashing seeds, a bump byte, the program
// ID and a fixed marker, searching bumps downward from 255 until the hash
// is off-curve.
package pda

import (
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

// PDA constants.
const (
	MaxSeeds   = 16
	MaxSeedLen = 32
)

// pdaMarker is appended after the program ID in address derivation.
var pdaMarker = []byte("ProgramDerivedAddress")

// PDA errors.
var (
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrMaxSeedsExceeded      = errors.New("max seeds exceeded")
	ErrOnCurve               = errors.New("derived address lies on the ed25519 curve")
	ErrNoViableBump          = errors.New("unable to find a viable program address bump seed")
)

// CreateProgramAddress derives the address for seeds that already include
// the bump. It returns ErrOnCurve when the hash is a valid public key.
func CreateProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return types.Pubkey{}, ErrMaxSeedsExceeded
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return types.Pubkey{}, ErrMaxSeedLengthExceeded
		}
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write(pdaMarker)

	var pub [32]byte
	copy(pub[:], h.Sum(nil))

	var point edwards25519.ExtendedGroupElement
	if point.FromBytes(&pub) {
		return types.Pubkey{}, ErrOnCurve
	}

	return types.Pubkey(pub), nil
}

// FindProgramAddress searches bumps from 255 downward for an off-curve
// address. Each attempt is charged to meter when one is supplied.
func FindProgramAddress(seeds [][]byte, programID types.Pubkey, meter *svm.ComputeMeter) (types.Pubkey, uint8, error) {
	if len(seeds) > MaxSeeds-1 {
		return types.Pubkey{}, 0, ErrMaxSeedsExceeded
	}

	bump := []byte{math.MaxUint8}
	withBump := append(append([][]byte{}, seeds...), bump)

	for {
		if meter != nil {
			if err := meter.Consume(svm.CUFindProgramAddress); err != nil {
				return types.Pubkey{}, 0, err
			}
		}

		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, bump[0], nil
		}
		if err != ErrOnCurve {
			return types.Pubkey{}, 0, errors.Wrap(err, "failed to derive address")
		}

		if bump[0] == 0 {
			return types.Pubkey{}, 0, ErrNoViableBump
		}
		bump[0]--
	}
}

// VerifyProgramAddress reports whether addr is the address derived from
// seeds and bump. It is cheaper than a full search when the bump is stored.
func VerifyProgramAddress(addr types.Pubkey, seeds [][]byte, bump uint8, programID types.Pubkey, meter *svm.ComputeMeter) (bool, error) {
	if meter != nil {
		if err := meter.Consume(svm.CUCreateProgramAddress); err != nil {
			return false, err
		}
	}
	derived, err := CreateProgramAddress(append(append([][]byte{}, seeds...), []byte{bump}), programID)
	if err == ErrOnCurve {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return derived == addr, nil
}

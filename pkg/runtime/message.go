package runtime

import (
	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

var (
	// ErrMalformedTransaction is returned for wire data that does not decode.
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrSanitizeFailure is returned for messages that decode but are
	// internally inconsistent.
	ErrSanitizeFailure = errors.New("transaction failed to sanitize accounts offsets correctly")

	// ErrTooManyAccounts is returned when a message references more keys
	// than an index byte can address.
	ErrTooManyAccounts = errors.New("too many account keys")
)

// MessageHeader describes the account types in a message.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into the message keys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// Message is a legacy Solana message: unique account keys ordered writable
// signers, readonly signers, writable non-signers, readonly non-signers.
type Message struct {
	Header          MessageHeader
	AccountKeys     []types.Pubkey
	RecentBlockhash types.Hash
	Instructions    []CompiledInstruction
}

type keyMeta struct {
	key      types.Pubkey
	signer   bool
	writable bool
}

// NewMessage compiles instructions with payer as the first, writable signer.
func NewMessage(payer types.Pubkey, blockhash types.Hash, instructions ...svm.Instruction) (*Message, error) {
	metas := []*keyMeta{{key: payer, signer: true, writable: true}}
	index := map[types.Pubkey]*keyMeta{payer: metas[0]}
	add := func(key types.Pubkey, signer, writable bool) {
		m, ok := index[key]
		if !ok {
			m = &keyMeta{key: key}
			index[key] = m
			metas = append(metas, m)
		}
		m.signer = m.signer || signer
		m.writable = m.writable || writable
	}
	for _, ix := range instructions {
		for _, am := range ix.Accounts {
			add(am.Pubkey, am.IsSigner, am.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}
	if len(metas) > 256 {
		return nil, ErrTooManyAccounts
	}

	msg := &Message{RecentBlockhash: blockhash}
	for _, class := range []struct{ signer, writable bool }{
		{true, true}, {true, false}, {false, true}, {false, false},
	} {
		for _, m := range metas {
			if m.signer != class.signer || m.writable != class.writable {
				continue
			}
			msg.AccountKeys = append(msg.AccountKeys, m.key)
			switch {
			case m.signer && m.writable:
				msg.Header.NumRequiredSignatures++
			case m.signer:
				msg.Header.NumRequiredSignatures++
				msg.Header.NumReadonlySignedAccounts++
			case !m.writable:
				msg.Header.NumReadonlyUnsignedAccounts++
			}
		}
	}

	positions := make(map[types.Pubkey]uint8, len(msg.AccountKeys))
	for i, key := range msg.AccountKeys {
		positions[key] = uint8(i)
	}
	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: positions[ix.ProgramID],
			AccountIndexes: make([]uint8, len(ix.Accounts)),
			Data:           append([]byte(nil), ix.Data...),
		}
		for i, am := range ix.Accounts {
			compiled.AccountIndexes[i] = positions[am.Pubkey]
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}
	return msg, nil
}

// IsSigner reports whether the key at index must sign.
func (m *Message) IsSigner(index int) bool {
	return index < int(m.Header.NumRequiredSignatures)
}

// IsWritable reports whether the key at index may be modified.
func (m *Message) IsWritable(index int) bool {
	return isAccountWritable(index,
		int(m.Header.NumRequiredSignatures),
		int(m.Header.NumReadonlySignedAccounts),
		int(m.Header.NumReadonlyUnsignedAccounts),
		len(m.AccountKeys))
}

// isAccountWritable determines if an account is writable based on its position.
func isAccountWritable(index, numSigners, numReadonlySigned, numReadonlyUnsigned, total int) bool {
	if index < numSigners {
		// Signer accounts: first (numSigners - numReadonlySigned) are writable
		return index < (numSigners - numReadonlySigned)
	}
	// Non-signer accounts: first (total - numSigners - numReadonlyUnsigned) are writable
	nonSignerIndex := index - numSigners
	numWritableUnsigned := total - numSigners - numReadonlyUnsigned
	return nonSignerIndex < numWritableUnsigned
}

// Sanitize checks the header and every index against the key list.
func (m *Message) Sanitize() error {
	h := m.Header
	n := len(m.AccountKeys)
	switch {
	case h.NumRequiredSignatures == 0:
		return errors.Wrap(ErrSanitizeFailure, "no fee payer")
	case int(h.NumRequiredSignatures) > n:
		return errors.Wrap(ErrSanitizeFailure, "more signers than keys")
	case h.NumReadonlySignedAccounts >= h.NumRequiredSignatures:
		return errors.Wrap(ErrSanitizeFailure, "fee payer must be writable")
	case int(h.NumReadonlyUnsignedAccounts) > n-int(h.NumRequiredSignatures):
		return errors.Wrap(ErrSanitizeFailure, "readonly count exceeds keys")
	}

	seen := make(map[types.Pubkey]bool, n)
	for _, key := range m.AccountKeys {
		if seen[key] {
			return errors.Wrapf(ErrSanitizeFailure, "duplicate key %s", key)
		}
		seen[key] = true
	}
	for i, ix := range m.Instructions {
		if ix.ProgramIDIndex == 0 || int(ix.ProgramIDIndex) >= n {
			return errors.Wrapf(ErrSanitizeFailure, "instruction %d program index", i)
		}
		for _, idx := range ix.AccountIndexes {
			if int(idx) >= n {
				return errors.Wrapf(ErrSanitizeFailure, "instruction %d account index %d", i, idx)
			}
		}
	}
	return nil
}

// Serialize encodes the message in wire form.
func (m *Message) Serialize() []byte {
	buf := make([]byte, 0, 3+len(m.AccountKeys)*types.PubkeySize+types.HashSize+64)
	buf = append(buf, m.Header.NumRequiredSignatures, m.Header.NumReadonlySignedAccounts, m.Header.NumReadonlyUnsignedAccounts)
	buf = appendShortVec(buf, len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		buf = append(buf, key[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = appendShortVec(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendShortVec(buf, len(ix.AccountIndexes))
		buf = append(buf, ix.AccountIndexes...)
		buf = appendShortVec(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// decodeMessage parses a message from d.
func decodeMessage(d *decoder) *Message {
	m := &Message{}
	header := d.bytes(3)
	if header != nil {
		m.Header = MessageHeader{header[0], header[1], header[2]}
	}
	keys := d.shortVec()
	for i := 0; i < keys && d.err == nil; i++ {
		var key types.Pubkey
		copy(key[:], d.bytes(types.PubkeySize))
		m.AccountKeys = append(m.AccountKeys, key)
	}
	copy(m.RecentBlockhash[:], d.bytes(types.HashSize))
	count := d.shortVec()
	for i := 0; i < count && d.err == nil; i++ {
		var ix CompiledInstruction
		if b := d.bytes(1); b != nil {
			ix.ProgramIDIndex = b[0]
		}
		ix.AccountIndexes = append([]uint8{}, d.bytes(d.shortVec())...)
		ix.Data = append([]byte{}, d.bytes(d.shortVec())...)
		m.Instructions = append(m.Instructions, ix)
	}
	return m
}

// appendShortVec appends the compact-u16 length encoding.
func appendShortVec(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// decoder reads wire data. The first failure sticks.
type decoder struct {
	data []byte
	pos  int
	err  error
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.pos < n {
		d.err = ErrMalformedTransaction
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) shortVec() int {
	var v, shift int
	for i := 0; i < 3; i++ {
		b := d.bytes(1)
		if b == nil {
			return 0
		}
		v |= int(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return v
		}
		shift += 7
	}
	d.err = ErrMalformedTransaction
	return 0
}

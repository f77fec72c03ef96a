package runtime

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
)

var (
	// ErrSignatureVerification is returned when a signature does not match
	// its key.
	ErrSignatureVerification = errors.New("transaction signature verification failure")

	// ErrMissingSigner is returned by Sign when a required signer's key was
	// not supplied.
	ErrMissingSigner = errors.New("missing signer key")
)

// Transaction is a message and one signature per required signer.
type Transaction struct {
	Signatures []types.Signature
	Message    Message
}

// NewTransaction compiles instructions into an unsigned transaction.
func NewTransaction(payer types.Pubkey, blockhash types.Hash, instructions ...svm.Instruction) (*Transaction, error) {
	msg, err := NewMessage(payer, blockhash, instructions...)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Signatures: make([]types.Signature, msg.Header.NumRequiredSignatures),
		Message:    *msg,
	}, nil
}

// Sign signs the message with every key that matches a required signer.
// All required signatures must be present afterwards.
func (tx *Transaction) Sign(keys ...ed25519.PrivateKey) error {
	message := tx.Message.Serialize()
	byPubkey := make(map[types.Pubkey]ed25519.PrivateKey, len(keys))
	for _, key := range keys {
		byPubkey[types.PubkeyFromPublicKey(key.Public().(ed25519.PublicKey))] = key
	}

	n := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != n {
		tx.Signatures = make([]types.Signature, n)
	}
	for i := 0; i < n; i++ {
		key, ok := byPubkey[tx.Message.AccountKeys[i]]
		if !ok {
			if tx.Signatures[i].IsZero() {
				return errors.Wrapf(ErrMissingSigner, "%s", tx.Message.AccountKeys[i])
			}
			continue
		}
		copy(tx.Signatures[i][:], ed25519.Sign(key, message))
	}
	return nil
}

// Signature returns the transaction ID, the fee payer's signature.
func (tx *Transaction) Signature() types.Signature {
	if len(tx.Signatures) == 0 {
		return types.Signature{}
	}
	return tx.Signatures[0]
}

// Sanitize validates the message and the signature count.
func (tx *Transaction) Sanitize() error {
	if err := tx.Message.Sanitize(); err != nil {
		return err
	}
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return errors.Wrap(ErrSanitizeFailure, "signature count")
	}
	return nil
}

// VerifySignatures checks every signature against its signer key.
func (tx *Transaction) VerifySignatures() error {
	message := tx.Message.Serialize()
	for i, sig := range tx.Signatures {
		if !sig.Verify(tx.Message.AccountKeys[i], message) {
			return errors.Wrapf(ErrSignatureVerification, "signer %s", tx.Message.AccountKeys[i])
		}
	}
	return nil
}

// Serialize encodes the transaction in wire form.
func (tx *Transaction) Serialize() []byte {
	message := tx.Message.Serialize()
	buf := make([]byte, 0, 3+len(tx.Signatures)*types.SignatureSize+len(message))
	buf = appendShortVec(buf, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		buf = append(buf, sig[:]...)
	}
	return append(buf, message...)
}

// DeserializeTransaction decodes a transaction from wire form.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	d := &decoder{data: data}
	tx := &Transaction{}
	count := d.shortVec()
	for i := 0; i < count && d.err == nil; i++ {
		var sig types.Signature
		copy(sig[:], d.bytes(types.SignatureSize))
		tx.Signatures = append(tx.Signatures, sig)
	}
	tx.Message = *decodeMessage(d)
	if d.err != nil {
		return nil, d.err
	}
	if d.pos != len(data) {
		return nil, errors.Wrap(ErrMalformedTransaction, "trailing bytes")
	}
	return tx, nil
}

package runtime

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/system"
)

func testKey(name string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte(name))
	return ed25519.NewKeyFromSeed(seed[:])
}

func address(key ed25519.PrivateKey) types.Pubkey {
	return types.PubkeyFromPublicKey(key.Public().(ed25519.PublicKey))
}

func TestNewMessageOrdersKeys(t *testing.T) {
	payer, signer := address(testKey("payer")), address(testKey("signer"))
	writable, readonly := types.Pubkey{7}, types.Pubkey{8}

	msg, err := NewMessage(payer, types.Hash{1}, svm.Instruction{
		ProgramID: types.BulldozerProgramAddr,
		Accounts: []svm.AccountMeta{
			svm.ReadOnly(readonly, false),
			svm.ReadOnly(signer, true),
			svm.Writable(writable, false),
			svm.Writable(writable, false),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []types.Pubkey{payer, signer, writable, readonly, types.BulldozerProgramAddr}, msg.AccountKeys)
	assert.Equal(t, MessageHeader{
		NumRequiredSignatures:       2,
		NumReadonlySignedAccounts:   1,
		NumReadonlyUnsignedAccounts: 2,
	}, msg.Header)
	assert.Equal(t, []uint8{3, 1, 2, 2}, msg.Instructions[0].AccountIndexes)
	assert.EqualValues(t, 4, msg.Instructions[0].ProgramIDIndex)

	writableFlags := make([]bool, len(msg.AccountKeys))
	for i := range msg.AccountKeys {
		writableFlags[i] = msg.IsWritable(i)
	}
	assert.Equal(t, []bool{true, false, true, false, false}, writableFlags)
	assert.True(t, msg.IsSigner(1))
	assert.False(t, msg.IsSigner(2))
}

func TestTransactionRoundTrip(t *testing.T) {
	payerKey := testKey("payer")
	payer := address(payerKey)

	tx, err := NewTransaction(payer, types.Hash{3}, system.NewTransferInstruction(payer, types.Pubkey{9}, 42))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(payerKey))
	require.NoError(t, tx.Sanitize())
	require.NoError(t, tx.VerifySignatures())

	decoded, err := DeserializeTransaction(tx.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tx.Signature(), decoded.Signature())
	assert.Equal(t, tx.Message.Serialize(), decoded.Message.Serialize())
	require.NoError(t, decoded.VerifySignatures())

	_, err = DeserializeTransaction(append(tx.Serialize(), 0))
	assert.ErrorIs(t, err, ErrMalformedTransaction)

	_, err = DeserializeTransaction(tx.Serialize()[:40])
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	payerKey, otherKey := testKey("payer"), testKey("other")
	payer, other := address(payerKey), address(otherKey)

	ix := system.NewTransferInstruction(other, payer, 1)
	tx, err := NewTransaction(payer, types.Hash{3}, ix)
	require.NoError(t, err)

	err = tx.Sign(payerKey)
	assert.ErrorIs(t, err, ErrMissingSigner)

	require.NoError(t, tx.Sign(payerKey, otherKey))
	require.NoError(t, tx.VerifySignatures())

	tx.Message.RecentBlockhash = types.Hash{4}
	assert.ErrorIs(t, tx.VerifySignatures(), ErrSignatureVerification)
}

func TestSanitize(t *testing.T) {
	payer := address(testKey("payer"))
	tx, err := NewTransaction(payer, types.Hash{}, system.NewTransferInstruction(payer, types.Pubkey{9}, 1))
	require.NoError(t, err)
	require.NoError(t, tx.Sanitize())

	bad := *tx
	bad.Signatures = nil
	assert.ErrorIs(t, bad.Sanitize(), ErrSanitizeFailure)

	msg := tx.Message
	msg.Instructions = []CompiledInstruction{{ProgramIDIndex: 9}}
	assert.ErrorIs(t, msg.Sanitize(), ErrSanitizeFailure)

	msg = tx.Message
	msg.AccountKeys = append([]types.Pubkey{}, msg.AccountKeys...)
	msg.AccountKeys[1] = payer
	assert.ErrorIs(t, msg.Sanitize(), ErrSanitizeFailure)

	msg = tx.Message
	msg.Header.NumReadonlySignedAccounts = 1
	assert.ErrorIs(t, msg.Sanitize(), ErrSanitizeFailure)
}

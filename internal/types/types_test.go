package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyFromBase58(t *testing.T) {
	p, err := PubkeyFromBase58(SystemProgramAddr.String())
	require.NoError(t, err)
	assert.Equal(t, SystemProgramAddr, p)

	_, err = PubkeyFromBase58("0OIl")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "base58 decode"), err.Error())

	_, err = PubkeyFromBase58(base58.Encode([]byte{1, 2, 3}))
	assert.True(t, errors.Is(err, ErrInvalidPubkey))
}

func TestSignatureAndHashLengths(t *testing.T) {
	_, err := SignatureFromBase58(base58.Encode(make([]byte, 32)))
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	_, err = HashFromBase58(base58.Encode(make([]byte, 64)))
	assert.True(t, errors.Is(err, ErrInvalidHash))

	h := ComputeHash([]byte("bulldozer"))
	parsed, err := HashFromBase58(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestPubkeyJSON(t *testing.T) {
	out, err := json.Marshal(map[string]Pubkey{"program": BulldozerProgramAddr})
	require.NoError(t, err)
	assert.JSONEq(t, `{"program":"AEW1U9KAF1VUxaKEqzqTe5Q6J3TqwPJWMRXLkfMZQ8RM"}`, string(out))

	var back map[string]Pubkey
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, BulldozerProgramAddr, back["program"])

	assert.Error(t, json.Unmarshal([]byte(`{"program":"short"}`), &back))
}

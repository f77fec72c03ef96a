package bulldozer

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
)

func TestRecordSizes(t *testing.T) {
	sizes := map[AccountType]int{
		AccountTypeUser:                    433,
		AccountTypeWorkspace:               94,
		AccountTypeWorkspaceStats:          17,
		AccountTypeBudget:                  89,
		AccountTypeCollaborator:            123,
		AccountTypeApplication:             125,
		AccountTypeApplicationStats:        17,
		AccountTypeCollection:              157,
		AccountTypeCollectionStats:         13,
		AccountTypeCollectionAttribute:     209,
		AccountTypeInstruction:             161,
		AccountTypeInstructionStats:        17,
		AccountTypeInstructionArgument:     209,
		AccountTypeInstructionAccount:      294,
		AccountTypeInstructionAccountStats: 13,
		AccountTypeInstructionRelation:     217,
	}
	require.Len(t, sizes, len(accountTypeNames))

	for typ, size := range sizes {
		rec, err := NewRecord(typ)
		require.NoError(t, err)
		data := rec.Marshal()
		assert.Len(t, data, size, typ.String())
		assert.Equal(t, typ, AccountTypeOf(data), typ.String())
	}
	assert.Equal(t, 161+5, InstructionSize(5))
}

func TestAccountDiscriminators(t *testing.T) {
	sum := sha256.Sum256([]byte("account:Workspace"))
	assert.Equal(t, sum[:8], AccountTypeWorkspace.Discriminator())

	sum = sha256.Sum256([]byte("global:create_workspace"))
	d := instructionDiscriminator(InstructionCreateWorkspace)
	assert.Equal(t, sum[:8], d[:])

	typ, ok := ParseAccountType("InstructionRelation")
	assert.True(t, ok)
	assert.Equal(t, AccountTypeInstructionRelation, typ)
	assert.Equal(t, AccountTypeUnknown, AccountTypeOf([]byte{1, 2, 3}))
}

func TestRecordRoundTrip(t *testing.T) {
	space := uint16(64)
	modifier := AccountModifierInit
	payer := types.Pubkey{7}
	account := &InstructionAccount{
		Authority:   types.Pubkey{1},
		Workspace:   types.Pubkey{2},
		Application: types.Pubkey{3},
		Instruction: types.Pubkey{4},
		Name:        "vault",
		Kind:        AccountKindDocument,
		Modifier:    &modifier,
		Collection:  &types.Pubkey{5},
		Payer:       &payer,
		Space:       &space,
		CreatedAt:   10,
		UpdatedAt:   20,
		StatsBump:   253,
	}
	rec, err := DecodeRecord(account.Marshal())
	require.NoError(t, err)
	assert.Equal(t, account, rec)

	ix := &Instruction{Authority: types.Pubkey{1}, Name: "transfer", Body: "let x = 1;", StatsBump: 1}
	rec, err = DecodeRecord(ix.Marshal())
	require.NoError(t, err)
	assert.Equal(t, ix, rec)

	max := uint32(20)
	size := uint32(4)
	attr := &CollectionAttribute{Name: "title", CreatedAt: 3}
	attr.Kind = AttributeKind{ID: AttributeKindString, Size: 20}
	attr.Modifier = &AttributeModifier{ID: AttributeModifierVector, Size: size}
	attr.MaxLength = &max
	rec, err = DecodeRecord(attr.Marshal())
	require.NoError(t, err)
	assert.Equal(t, attr, rec)
}

func TestDecodeRecordErrors(t *testing.T) {
	_, err := DecodeRecord([]byte{1, 2})
	assert.Equal(t, ErrAccountDiscriminatorNotFound, err)

	_, err = DecodeRecord(make([]byte, 64))
	assert.Equal(t, ErrAccountDiscriminatorMismatch, err)

	data := (&Workspace{Name: "w"}).Marshal()
	_, err = DecodeRecord(data[:40])
	assert.Equal(t, ErrAccountDidNotDeserialize, err)

	// a name slot claiming more than its capacity
	data[AuthorityOffset+pubkeySize] = MaxNameLength + 1
	_, err = DecodeRecord(data)
	assert.Equal(t, ErrAccountDidNotDeserialize, err)

	err = (&User{}).Unmarshal((&Budget{}).Marshal())
	assert.Equal(t, ErrAccountDiscriminatorMismatch, err)
}

func TestDecodeArgs(t *testing.T) {
	w := newArgWriter(discriminator{})
	(&NameArgs{Name: "app"}).write(w)
	data := w.buf[discriminatorSize:]

	var args NameArgs
	require.NoError(t, decodeArgs(data, &args))
	assert.Equal(t, "app", args.Name)

	assert.Equal(t, ErrInstructionDidNotDeserialize, decodeArgs(append(append([]byte{}, data...), 0), &NameArgs{}))
	assert.Equal(t, ErrInstructionDidNotDeserialize, decodeArgs(data[:5], &NameArgs{}))
	assert.Equal(t, ErrInstructionDidNotDeserialize, decodeArgs([]byte{1}, noArgs{}))

	max := uint32(10)
	w = newArgWriter(discriminator{})
	(&AttributeDto{Name: "n", Kind: uint8(AttributeKindNumber), Max: &max}).write(w)
	dto := w.buf[discriminatorSize:]

	var decoded AttributeDto
	require.NoError(t, decodeArgs(dto, &decoded))
	assert.Nil(t, decoded.Modifier)
	require.NotNil(t, decoded.Max)
	assert.EqualValues(t, 10, *decoded.Max)

	// option tags other than 0 and 1 are rejected
	bad := append([]byte{}, dto...)
	bad[4+1+1] = 2
	assert.Equal(t, ErrInstructionDidNotDeserialize, decodeArgs(bad, &AttributeDto{}))
}

func TestAttributeDtoResolve(t *testing.T) {
	u8 := func(v uint8) *uint8 { return &v }
	u32 := func(v uint32) *uint32 { return &v }

	tests := []struct {
		name string
		dto  AttributeDto
		kind AttributeKind
		mod  *AttributeModifier
		err  error
	}{
		{"boolean", AttributeDto{Name: "a", Kind: 0}, AttributeKind{ID: AttributeKindBoolean, Size: 1}, nil, nil},
		{"number", AttributeDto{Name: "a", Kind: 1, Max: u32(255)}, AttributeKind{ID: AttributeKindNumber, Size: 255}, nil, nil},
		{"string vector", AttributeDto{Name: "a", Kind: 2, MaxLength: u32(40), Modifier: u8(1), Size: u32(3)},
			AttributeKind{ID: AttributeKindString, Size: 40}, &AttributeModifier{ID: AttributeModifierVector, Size: 3}, nil},
		{"pubkey", AttributeDto{Name: "a", Kind: 3}, AttributeKind{ID: AttributeKindPubkey, Size: 32}, nil, nil},
		{"number without max", AttributeDto{Name: "a", Kind: 1}, AttributeKind{}, nil, ErrMissingMax},
		{"string without max length", AttributeDto{Name: "a", Kind: 2}, AttributeKind{}, nil, ErrMissingMaxLength},
		{"unknown kind", AttributeDto{Name: "a", Kind: 9}, AttributeKind{}, nil, ErrInvalidAttributeKind},
		{"array without size", AttributeDto{Name: "a", Kind: 0, Modifier: u8(0)}, AttributeKind{}, nil, ErrMissingModifierSize},
		{"unknown modifier", AttributeDto{Name: "a", Kind: 0, Modifier: u8(5), Size: u32(1)}, AttributeKind{}, nil, ErrInvalidAttributeModifier},
		{"long name", AttributeDto{Name: "abcdefghijklmnopqrstuvwxyz0123456", Kind: 0}, AttributeKind{}, nil, ErrNameTooLong},
		{"empty name", AttributeDto{Kind: 0}, AttributeKind{}, nil, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, mod, err := tt.dto.resolve()
			if tt.err != nil {
				assert.Equal(t, tt.err, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.mod, mod)
		})
	}
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, validateName("abcdefghijklmnopqrstuvwxyz012345"))
	assert.Equal(t, ErrInvalidName, validateName("\xff"))
	assert.Equal(t, ErrUrlTooLong, validateURL(string(make([]byte, MaxURLLength+1))))
	assert.NoError(t, validateURL(""))
	assert.Equal(t, ErrBodyTooLong, validateBody(string(make([]byte, MaxBodyLength+1))))
}

func TestCollaboratorStatus(t *testing.T) {
	status, err := ParseCollaboratorStatus(1)
	require.NoError(t, err)
	assert.Equal(t, CollaboratorStatusApproved, status)
	assert.Equal(t, "approved", status.String())

	_, err = ParseCollaboratorStatus(3)
	assert.Equal(t, ErrInvalidCollaboratorStatus, err)
}

func TestFilterMemcmps(t *testing.T) {
	ws := types.Pubkey{9}

	memcmps, err := Filter{Type: AccountTypeApplication, Workspace: &ws}.Memcmps()
	require.NoError(t, err)
	require.Len(t, memcmps, 2)
	assert.Equal(t, WorkspaceOffset, memcmps[1].Offset)

	_, err = Filter{Type: AccountTypeWorkspaceStats, Authority: &ws}.Memcmps()
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
	_, err = Filter{Type: AccountTypeCollection, Instruction: &ws}.Memcmps()
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
	_, err = Filter{}.Memcmps()
	assert.ErrorIs(t, err, ErrUnsupportedFilter)

	assert.False(t, Memcmp{Offset: 4, Bytes: []byte{1, 2}}.Matches([]byte{0, 0, 0, 0, 1}))
	assert.True(t, Memcmp{Offset: 3, Bytes: []byte{0, 1}}.Matches([]byte{0, 0, 0, 0, 1}))
}

func TestReader(t *testing.T) {
	db := accounts.NewMemoryDB()
	defer db.Close()

	wsA, wsB := types.Pubkey{1}, types.Pubkey{2}
	put := func(key types.Pubkey, rec Record) {
		require.NoError(t, db.SetAccount(key, &accounts.Account{
			Lamports: 1,
			Owner:    types.BulldozerProgramAddr,
			Data:     rec.Marshal(),
		}))
	}
	put(types.Pubkey{10}, &Application{Workspace: wsA, Name: "one"})
	put(types.Pubkey{11}, &Application{Workspace: wsA, Name: "two"})
	put(types.Pubkey{12}, &Application{Workspace: wsB, Name: "three"})
	put(types.Pubkey{13}, &Collection{Workspace: wsA, Name: "four"})

	// same bytes under a foreign owner are ignored
	require.NoError(t, db.SetAccount(types.Pubkey{14}, &accounts.Account{
		Lamports: 1,
		Owner:    types.SystemProgramAddr,
		Data:     (&Application{Workspace: wsA}).Marshal(),
	}))

	reader := NewReader(db)
	matches, err := reader.Find(Filter{Type: AccountTypeApplication, Workspace: &wsA})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, types.Pubkey{10}, matches[0].Pubkey)
	assert.Equal(t, "two", matches[1].Record.(*Application).Name)

	rec, err := reader.Fetch(types.Pubkey{13})
	require.NoError(t, err)
	assert.Equal(t, AccountTypeCollection, rec.Type())

	_, err = reader.Fetch(types.Pubkey{99})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reader.Fetch(types.Pubkey{14})
	assert.ErrorIs(t, err, ErrNotFound)
}

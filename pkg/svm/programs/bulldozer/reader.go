package bulldozer

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
)

var (
	// ErrNotFound is returned when no program record lives at an address.
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedFilter is returned when a filter names a field the
	// record type does not carry.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Memcmp matches account data holding Bytes at Offset.
type Memcmp struct {
	Offset int
	Bytes  []byte
}

// Matches reports whether data carries m.Bytes at m.Offset.
func (m Memcmp) Matches(data []byte) bool {
	if m.Offset < 0 || m.Offset+len(m.Bytes) > len(data) {
		return false
	}
	return bytes.Equal(data[m.Offset:m.Offset+len(m.Bytes)], m.Bytes)
}

// Filter selects records of one type. Nil fields match anything.
type Filter struct {
	Type        AccountType
	Authority   *types.Pubkey
	Workspace   *types.Pubkey
	Application *types.Pubkey
	Collection  *types.Pubkey
	Instruction *types.Pubkey
}

// Record types carrying each filterable field at its shared offset.
var (
	authorityTypes = typeSet(
		AccountTypeUser, AccountTypeWorkspace, AccountTypeBudget, AccountTypeCollaborator,
		AccountTypeApplication, AccountTypeCollection, AccountTypeCollectionAttribute,
		AccountTypeInstruction, AccountTypeInstructionArgument, AccountTypeInstructionAccount,
		AccountTypeInstructionRelation,
	)
	workspaceTypes = typeSet(
		AccountTypeBudget, AccountTypeCollaborator, AccountTypeApplication, AccountTypeCollection,
		AccountTypeCollectionAttribute, AccountTypeInstruction, AccountTypeInstructionArgument,
		AccountTypeInstructionAccount, AccountTypeInstructionRelation,
	)
	applicationTypes = typeSet(
		AccountTypeCollection, AccountTypeCollectionAttribute, AccountTypeInstruction,
		AccountTypeInstructionArgument, AccountTypeInstructionAccount, AccountTypeInstructionRelation,
	)
	collectionTypes  = typeSet(AccountTypeCollectionAttribute)
	instructionTypes = typeSet(
		AccountTypeInstructionArgument, AccountTypeInstructionAccount, AccountTypeInstructionRelation,
	)
)

func typeSet(ts ...AccountType) map[AccountType]bool {
	set := make(map[AccountType]bool, len(ts))
	for _, t := range ts {
		set[t] = true
	}
	return set
}

// Memcmps compiles the filter into the byte comparisons a record must pass.
func (f Filter) Memcmps() ([]Memcmp, error) {
	if _, ok := accountTypeNames[f.Type]; !ok {
		return nil, errors.Wrapf(ErrUnsupportedFilter, "record type %d", f.Type)
	}
	out := []Memcmp{{Offset: 0, Bytes: f.Type.Discriminator()}}

	fields := []struct {
		name   string
		key    *types.Pubkey
		offset int
		types  map[AccountType]bool
	}{
		{"authority", f.Authority, AuthorityOffset, authorityTypes},
		{"workspace", f.Workspace, WorkspaceOffset, workspaceTypes},
		{"application", f.Application, ApplicationOffset, applicationTypes},
		{"collection", f.Collection, CollectionOffset, collectionTypes},
		{"instruction", f.Instruction, InstructionOffset, instructionTypes},
	}
	for _, field := range fields {
		if field.key == nil {
			continue
		}
		if !field.types[f.Type] {
			return nil, errors.Wrapf(ErrUnsupportedFilter, "%s has no %s", f.Type, field.name)
		}
		out = append(out, Memcmp{Offset: field.offset, Bytes: field.key[:]})
	}
	return out, nil
}

// Match is a decoded record and its address.
type Match struct {
	Pubkey types.Pubkey `json:"pubkey"`
	Type   AccountType  `json:"type"`
	Record Record       `json:"account"`
}

// Reader decodes program records straight from ledger state.
type Reader struct {
	db accounts.DB
}

// NewReader returns a reader over db.
func NewReader(db accounts.DB) *Reader {
	return &Reader{db: db}
}

// Fetch decodes the record at pubkey.
func (r *Reader) Fetch(pubkey types.Pubkey) (Record, error) {
	acc, err := r.db.GetAccount(pubkey)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", pubkey)
	}
	if acc.Owner != types.BulldozerProgramAddr || len(acc.Data) == 0 {
		return nil, ErrNotFound
	}
	return DecodeRecord(acc.Data)
}

// Find returns every record matching f, ordered by address.
func (r *Reader) Find(f Filter) ([]Match, error) {
	memcmps, err := f.Memcmps()
	if err != nil {
		return nil, err
	}

	var out []Match
	err = r.db.IterateAccounts(func(pubkey types.Pubkey, acc *accounts.Account) error {
		if acc.Owner != types.BulldozerProgramAddr {
			return nil
		}
		for _, m := range memcmps {
			if !m.Matches(acc.Data) {
				return nil
			}
		}
		rec, err := DecodeRecord(acc.Data)
		if err != nil {
			return errors.Wrapf(err, "decode %s", pubkey)
		}
		out = append(out, Match{Pubkey: pubkey, Type: rec.Type(), Record: rec})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

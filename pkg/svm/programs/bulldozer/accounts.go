package bulldozer

import (
	"bytes"
	"fmt"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

// AccountType identifies a record type by its discriminator.
type AccountType uint8

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeUser
	AccountTypeWorkspace
	AccountTypeWorkspaceStats
	AccountTypeBudget
	AccountTypeCollaborator
	AccountTypeApplication
	AccountTypeApplicationStats
	AccountTypeCollection
	AccountTypeCollectionStats
	AccountTypeCollectionAttribute
	AccountTypeInstruction
	AccountTypeInstructionStats
	AccountTypeInstructionArgument
	AccountTypeInstructionAccount
	AccountTypeInstructionAccountStats
	AccountTypeInstructionRelation
)

var accountTypeNames = map[AccountType]string{
	AccountTypeUser:                    "User",
	AccountTypeWorkspace:               "Workspace",
	AccountTypeWorkspaceStats:          "WorkspaceStats",
	AccountTypeBudget:                  "Budget",
	AccountTypeCollaborator:            "Collaborator",
	AccountTypeApplication:             "Application",
	AccountTypeApplicationStats:        "ApplicationStats",
	AccountTypeCollection:              "Collection",
	AccountTypeCollectionStats:         "CollectionStats",
	AccountTypeCollectionAttribute:     "CollectionAttribute",
	AccountTypeInstruction:             "Instruction",
	AccountTypeInstructionStats:        "InstructionStats",
	AccountTypeInstructionArgument:     "InstructionArgument",
	AccountTypeInstructionAccount:      "InstructionAccount",
	AccountTypeInstructionAccountStats: "InstructionAccountStats",
	AccountTypeInstructionRelation:     "InstructionRelation",
}

var (
	accountDiscriminators = map[AccountType]discriminator{}
	accountTypesByDisc    = map[discriminator]AccountType{}
	accountTypesByName    = map[string]AccountType{}
)

func init() {
	for t, name := range accountTypeNames {
		d := accountDiscriminator(name)
		accountDiscriminators[t] = d
		accountTypesByDisc[d] = t
		accountTypesByName[name] = t
	}
}

func (t AccountType) String() string {
	if name, ok := accountTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

// MarshalText renders the type by name.
func (t AccountType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Discriminator returns the 8 byte prefix identifying records of type t.
func (t AccountType) Discriminator() []byte {
	d := accountDiscriminators[t]
	return d[:]
}

// ParseAccountType resolves a record type name such as "Workspace".
func ParseAccountType(name string) (AccountType, bool) {
	t, ok := accountTypesByName[name]
	return t, ok
}

// AccountTypeOf identifies record data by its discriminator.
func AccountTypeOf(data []byte) AccountType {
	if len(data) < discriminatorSize {
		return AccountTypeUnknown
	}
	var d discriminator
	copy(d[:], data)
	return accountTypesByDisc[d]
}

// Record is a typed program account.
type Record interface {
	Type() AccountType
	Marshal() []byte
	Unmarshal(data []byte) error
}

// NewRecord returns an empty record of type t.
func NewRecord(t AccountType) (Record, error) {
	switch t {
	case AccountTypeUser:
		return &User{}, nil
	case AccountTypeWorkspace:
		return &Workspace{}, nil
	case AccountTypeWorkspaceStats:
		return &WorkspaceStats{}, nil
	case AccountTypeBudget:
		return &Budget{}, nil
	case AccountTypeCollaborator:
		return &Collaborator{}, nil
	case AccountTypeApplication:
		return &Application{}, nil
	case AccountTypeApplicationStats:
		return &ApplicationStats{}, nil
	case AccountTypeCollection:
		return &Collection{}, nil
	case AccountTypeCollectionStats:
		return &CollectionStats{}, nil
	case AccountTypeCollectionAttribute:
		return &CollectionAttribute{}, nil
	case AccountTypeInstruction:
		return &Instruction{}, nil
	case AccountTypeInstructionStats:
		return &InstructionStats{}, nil
	case AccountTypeInstructionArgument:
		return &InstructionArgument{}, nil
	case AccountTypeInstructionAccount:
		return &InstructionAccount{}, nil
	case AccountTypeInstructionAccountStats:
		return &InstructionAccountStats{}, nil
	case AccountTypeInstructionRelation:
		return &InstructionRelation{}, nil
	default:
		return nil, ErrAccountDiscriminatorNotFound
	}
}

// DecodeRecord identifies and decodes record data.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < discriminatorSize {
		return nil, ErrAccountDiscriminatorNotFound
	}
	rec, err := NewRecord(AccountTypeOf(data))
	if err != nil {
		return nil, ErrAccountDiscriminatorMismatch
	}
	if err := rec.Unmarshal(data); err != nil {
		return nil, err
	}
	return rec, nil
}

func checkRecord(t AccountType, data []byte, size int) error {
	if len(data) < discriminatorSize {
		return ErrAccountDiscriminatorNotFound
	}
	if !bytes.Equal(data[:discriminatorSize], t.Discriminator()) {
		return ErrAccountDiscriminatorMismatch
	}
	if len(data) < size {
		return ErrAccountDidNotDeserialize
	}
	return nil
}

// Field offsets shared by the entity records, usable as memcmp filters.
const (
	AuthorityOffset   = discriminatorSize
	WorkspaceOffset   = AuthorityOffset + pubkeySize
	ApplicationOffset = WorkspaceOffset + pubkeySize
	CollectionOffset  = ApplicationOffset + pubkeySize
	InstructionOffset = ApplicationOffset + pubkeySize
)

// Record sizes.
const (
	UserSize                    = discriminatorSize + pubkeySize + 2*(4+MaxNameLength) + (4 + MaxURLLength) + 8 + 8 + 1
	WorkspaceSize               = discriminatorSize + pubkeySize + (4 + MaxNameLength) + 8 + 8 + 1 + 1
	WorkspaceStatsSize          = discriminatorSize + 4 + 4 + 1
	BudgetSize                  = discriminatorSize + 2*pubkeySize + 8 + 8 + 1
	CollaboratorSize            = discriminatorSize + 3*pubkeySize + 1 + 1 + 8 + 8 + 1
	ApplicationSize             = discriminatorSize + 2*pubkeySize + (4 + MaxNameLength) + 8 + 8 + 1
	ApplicationStatsSize        = discriminatorSize + 4 + 4 + 1
	CollectionSize              = discriminatorSize + 3*pubkeySize + (4 + MaxNameLength) + 8 + 8 + 1
	CollectionStatsSize         = discriminatorSize + 4 + 1
	CollectionAttributeSize     = discriminatorSize + 4*pubkeySize + (4 + MaxNameLength) + attributeShapeSize + 8 + 8
	InstructionBaseSize         = discriminatorSize + 3*pubkeySize + (4 + MaxNameLength) + 8 + 8 + 1 + 4
	InstructionStatsSize        = discriminatorSize + 4 + 4 + 1
	InstructionArgumentSize     = discriminatorSize + 4*pubkeySize + (4 + MaxNameLength) + attributeShapeSize + 8 + 8
	InstructionAccountSize      = discriminatorSize + 4*pubkeySize + (4 + MaxNameLength) + 1 + 2 + 3*(1+pubkeySize) + 3 + 8 + 8 + 1
	InstructionAccountStatsSize = discriminatorSize + 4 + 1
	InstructionRelationSize     = discriminatorSize + 6*pubkeySize + 8 + 8 + 1

	// kind (id, size), modifier option (id, size), max option, max length option
	attributeShapeSize = (1 + 4) + (1 + 1 + 4) + (1 + 4) + (1 + 4)
)

// InstructionSize returns the record size for an instruction body of n bytes.
func InstructionSize(bodyLen int) int {
	return InstructionBaseSize + bodyLen
}

// User is a person's profile, one per wallet.
type User struct {
	Authority    types.Pubkey `json:"authority"`
	UserName     string       `json:"userName"`
	Name         string       `json:"name"`
	ThumbnailURL string       `json:"thumbnailUrl"`
	CreatedAt    int64        `json:"createdAt"`
	UpdatedAt    int64        `json:"updatedAt"`
	Bump         uint8        `json:"bump"`
}

func (u *User) Type() AccountType { return AccountTypeUser }

func (u *User) Marshal() []byte {
	b := make([]byte, UserSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeUser], &offset)
	putKey(b, u.Authority, &offset)
	putFixedString(b, u.UserName, MaxNameLength, &offset)
	putFixedString(b, u.Name, MaxNameLength, &offset)
	putFixedString(b, u.ThumbnailURL, MaxURLLength, &offset)
	putInt64(b, u.CreatedAt, &offset)
	putInt64(b, u.UpdatedAt, &offset)
	putUint8(b, u.Bump, &offset)
	return b
}

func (u *User) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeUser, data, UserSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &u.Authority, &offset)
	if err := getFixedString(data, &u.UserName, MaxNameLength, &offset); err != nil {
		return err
	}
	if err := getFixedString(data, &u.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	if err := getFixedString(data, &u.ThumbnailURL, MaxURLLength, &offset); err != nil {
		return err
	}
	getInt64(data, &u.CreatedAt, &offset)
	getInt64(data, &u.UpdatedAt, &offset)
	getUint8(data, &u.Bump, &offset)
	return nil
}

// Workspace is the tenant root.
type Workspace struct {
	Authority  types.Pubkey `json:"authority"`
	Name       string       `json:"name"`
	CreatedAt  int64        `json:"createdAt"`
	UpdatedAt  int64        `json:"updatedAt"`
	BudgetBump uint8        `json:"budgetBump"`
	StatsBump  uint8        `json:"workspaceStatsBump"`
}

func (w *Workspace) Type() AccountType { return AccountTypeWorkspace }

func (w *Workspace) Marshal() []byte {
	b := make([]byte, WorkspaceSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeWorkspace], &offset)
	putKey(b, w.Authority, &offset)
	putFixedString(b, w.Name, MaxNameLength, &offset)
	putInt64(b, w.CreatedAt, &offset)
	putInt64(b, w.UpdatedAt, &offset)
	putUint8(b, w.BudgetBump, &offset)
	putUint8(b, w.StatsBump, &offset)
	return b
}

func (w *Workspace) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeWorkspace, data, WorkspaceSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &w.Authority, &offset)
	if err := getFixedString(data, &w.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	getInt64(data, &w.CreatedAt, &offset)
	getInt64(data, &w.UpdatedAt, &offset)
	getUint8(data, &w.BudgetBump, &offset)
	getUint8(data, &w.StatsBump, &offset)
	return nil
}

// WorkspaceStats counts a workspace's children.
type WorkspaceStats struct {
	QuantityOfApplications  uint32 `json:"quantityOfApplications"`
	QuantityOfCollaborators uint32 `json:"quantityOfCollaborators"`
	Bump                    uint8  `json:"bump"`
}

func (s *WorkspaceStats) Type() AccountType { return AccountTypeWorkspaceStats }

func (s *WorkspaceStats) Marshal() []byte {
	b := make([]byte, WorkspaceStatsSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeWorkspaceStats], &offset)
	putUint32(b, s.QuantityOfApplications, &offset)
	putUint32(b, s.QuantityOfCollaborators, &offset)
	putUint8(b, s.Bump, &offset)
	return b
}

func (s *WorkspaceStats) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeWorkspaceStats, data, WorkspaceStatsSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getUint32(data, &s.QuantityOfApplications, &offset)
	getUint32(data, &s.QuantityOfCollaborators, &offset)
	getUint8(data, &s.Bump, &offset)
	return nil
}

// Budget is the lamport pool funding a workspace's content.
type Budget struct {
	Authority types.Pubkey `json:"authority"`
	Workspace types.Pubkey `json:"workspace"`
	CreatedAt int64        `json:"createdAt"`
	UpdatedAt int64        `json:"updatedAt"`
	Bump      uint8        `json:"bump"`
}

func (b *Budget) Type() AccountType { return AccountTypeBudget }

func (b *Budget) Marshal() []byte {
	out := make([]byte, BudgetSize)
	var offset int
	putDiscriminator(out, accountDiscriminators[AccountTypeBudget], &offset)
	putKey(out, b.Authority, &offset)
	putKey(out, b.Workspace, &offset)
	putInt64(out, b.CreatedAt, &offset)
	putInt64(out, b.UpdatedAt, &offset)
	putUint8(out, b.Bump, &offset)
	return out
}

func (b *Budget) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeBudget, data, BudgetSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &b.Authority, &offset)
	getKey(data, &b.Workspace, &offset)
	getInt64(data, &b.CreatedAt, &offset)
	getInt64(data, &b.UpdatedAt, &offset)
	getUint8(data, &b.Bump, &offset)
	return nil
}

// Collaborator is a user's membership in a workspace.
type Collaborator struct {
	Authority types.Pubkey       `json:"authority"`
	Workspace types.Pubkey       `json:"workspace"`
	User      types.Pubkey       `json:"user"`
	Status    CollaboratorStatus `json:"status"`
	IsAdmin   bool               `json:"isAdmin"`
	CreatedAt int64              `json:"createdAt"`
	UpdatedAt int64              `json:"updatedAt"`
	Bump      uint8              `json:"bump"`
}

func (c *Collaborator) Type() AccountType { return AccountTypeCollaborator }

func (c *Collaborator) Marshal() []byte {
	b := make([]byte, CollaboratorSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeCollaborator], &offset)
	putKey(b, c.Authority, &offset)
	putKey(b, c.Workspace, &offset)
	putKey(b, c.User, &offset)
	putUint8(b, uint8(c.Status), &offset)
	putBool(b, c.IsAdmin, &offset)
	putInt64(b, c.CreatedAt, &offset)
	putInt64(b, c.UpdatedAt, &offset)
	putUint8(b, c.Bump, &offset)
	return b
}

func (c *Collaborator) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeCollaborator, data, CollaboratorSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &c.Authority, &offset)
	getKey(data, &c.Workspace, &offset)
	getKey(data, &c.User, &offset)
	var status uint8
	getUint8(data, &status, &offset)
	c.Status = CollaboratorStatus(status)
	getBool(data, &c.IsAdmin, &offset)
	getInt64(data, &c.CreatedAt, &offset)
	getInt64(data, &c.UpdatedAt, &offset)
	getUint8(data, &c.Bump, &offset)
	return nil
}

// Application groups collections and instructions.
type Application struct {
	Authority types.Pubkey `json:"authority"`
	Workspace types.Pubkey `json:"workspace"`
	Name      string       `json:"name"`
	CreatedAt int64        `json:"createdAt"`
	UpdatedAt int64        `json:"updatedAt"`
	StatsBump uint8        `json:"applicationStatsBump"`
}

func (a *Application) Type() AccountType { return AccountTypeApplication }

func (a *Application) Marshal() []byte {
	b := make([]byte, ApplicationSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeApplication], &offset)
	putKey(b, a.Authority, &offset)
	putKey(b, a.Workspace, &offset)
	putFixedString(b, a.Name, MaxNameLength, &offset)
	putInt64(b, a.CreatedAt, &offset)
	putInt64(b, a.UpdatedAt, &offset)
	putUint8(b, a.StatsBump, &offset)
	return b
}

func (a *Application) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeApplication, data, ApplicationSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &a.Authority, &offset)
	getKey(data, &a.Workspace, &offset)
	if err := getFixedString(data, &a.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	getInt64(data, &a.CreatedAt, &offset)
	getInt64(data, &a.UpdatedAt, &offset)
	getUint8(data, &a.StatsBump, &offset)
	return nil
}

// ApplicationStats counts an application's children.
type ApplicationStats struct {
	QuantityOfCollections  uint32 `json:"quantityOfCollections"`
	QuantityOfInstructions uint32 `json:"quantityOfInstructions"`
	Bump                   uint8  `json:"bump"`
}

func (s *ApplicationStats) Type() AccountType { return AccountTypeApplicationStats }

func (s *ApplicationStats) Marshal() []byte {
	b := make([]byte, ApplicationStatsSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeApplicationStats], &offset)
	putUint32(b, s.QuantityOfCollections, &offset)
	putUint32(b, s.QuantityOfInstructions, &offset)
	putUint8(b, s.Bump, &offset)
	return b
}

func (s *ApplicationStats) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeApplicationStats, data, ApplicationStatsSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getUint32(data, &s.QuantityOfCollections, &offset)
	getUint32(data, &s.QuantityOfInstructions, &offset)
	getUint8(data, &s.Bump, &offset)
	return nil
}

// Collection is a named data type inside an application.
type Collection struct {
	Authority   types.Pubkey `json:"authority"`
	Workspace   types.Pubkey `json:"workspace"`
	Application types.Pubkey `json:"application"`
	Name        string       `json:"name"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
	StatsBump   uint8        `json:"collectionStatsBump"`
}

func (c *Collection) Type() AccountType { return AccountTypeCollection }

func (c *Collection) Marshal() []byte {
	b := make([]byte, CollectionSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeCollection], &offset)
	putKey(b, c.Authority, &offset)
	putKey(b, c.Workspace, &offset)
	putKey(b, c.Application, &offset)
	putFixedString(b, c.Name, MaxNameLength, &offset)
	putInt64(b, c.CreatedAt, &offset)
	putInt64(b, c.UpdatedAt, &offset)
	putUint8(b, c.StatsBump, &offset)
	return b
}

func (c *Collection) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeCollection, data, CollectionSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &c.Authority, &offset)
	getKey(data, &c.Workspace, &offset)
	getKey(data, &c.Application, &offset)
	if err := getFixedString(data, &c.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	getInt64(data, &c.CreatedAt, &offset)
	getInt64(data, &c.UpdatedAt, &offset)
	getUint8(data, &c.StatsBump, &offset)
	return nil
}

// CollectionStats counts a collection's attributes.
type CollectionStats struct {
	QuantityOfAttributes uint32 `json:"quantityOfAttributes"`
	Bump                 uint8  `json:"bump"`
}

func (s *CollectionStats) Type() AccountType { return AccountTypeCollectionStats }

func (s *CollectionStats) Marshal() []byte {
	b := make([]byte, CollectionStatsSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeCollectionStats], &offset)
	putUint32(b, s.QuantityOfAttributes, &offset)
	putUint8(b, s.Bump, &offset)
	return b
}

func (s *CollectionStats) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeCollectionStats, data, CollectionStatsSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getUint32(data, &s.QuantityOfAttributes, &offset)
	getUint8(data, &s.Bump, &offset)
	return nil
}

// attributeShape is the typed shape shared by attributes and arguments.
type attributeShape struct {
	Kind      AttributeKind      `json:"kind"`
	Modifier  *AttributeModifier `json:"modifier"`
	Max       *uint32            `json:"max"`
	MaxLength *uint32            `json:"maxLength"`
}

func (s *attributeShape) put(dst []byte, offset *int) {
	putUint8(dst, uint8(s.Kind.ID), offset)
	putUint32(dst, s.Kind.Size, offset)
	putBool(dst, s.Modifier != nil, offset)
	if s.Modifier != nil {
		inner := *offset
		putUint8(dst, uint8(s.Modifier.ID), &inner)
		putUint32(dst, s.Modifier.Size, &inner)
	}
	*offset += 1 + 4
	putOptionUint32(dst, s.Max, offset)
	putOptionUint32(dst, s.MaxLength, offset)
}

func (s *attributeShape) get(src []byte, offset *int) {
	var id uint8
	getUint8(src, &id, offset)
	s.Kind.ID = AttributeKindID(id)
	getUint32(src, &s.Kind.Size, offset)
	var present bool
	getBool(src, &present, offset)
	if present {
		inner := *offset
		m := &AttributeModifier{}
		getUint8(src, &id, &inner)
		m.ID = AttributeModifierID(id)
		getUint32(src, &m.Size, &inner)
		s.Modifier = m
	} else {
		s.Modifier = nil
	}
	*offset += 1 + 4
	getOptionUint32(src, &s.Max, offset)
	getOptionUint32(src, &s.MaxLength, offset)
}

func (s *attributeShape) apply(dto *AttributeDto) error {
	kind, modifier, err := dto.resolve()
	if err != nil {
		return err
	}
	s.Kind = kind
	s.Modifier = modifier
	s.Max = dto.Max
	s.MaxLength = dto.MaxLength
	return nil
}

// CollectionAttribute is a typed field of a collection.
type CollectionAttribute struct {
	Authority   types.Pubkey `json:"authority"`
	Workspace   types.Pubkey `json:"workspace"`
	Application types.Pubkey `json:"application"`
	Collection  types.Pubkey `json:"collection"`
	Name        string       `json:"name"`
	attributeShape
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

func (a *CollectionAttribute) Type() AccountType { return AccountTypeCollectionAttribute }

func (a *CollectionAttribute) Marshal() []byte {
	b := make([]byte, CollectionAttributeSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeCollectionAttribute], &offset)
	putKey(b, a.Authority, &offset)
	putKey(b, a.Workspace, &offset)
	putKey(b, a.Application, &offset)
	putKey(b, a.Collection, &offset)
	putFixedString(b, a.Name, MaxNameLength, &offset)
	a.attributeShape.put(b, &offset)
	putInt64(b, a.CreatedAt, &offset)
	putInt64(b, a.UpdatedAt, &offset)
	return b
}

func (a *CollectionAttribute) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeCollectionAttribute, data, CollectionAttributeSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &a.Authority, &offset)
	getKey(data, &a.Workspace, &offset)
	getKey(data, &a.Application, &offset)
	getKey(data, &a.Collection, &offset)
	if err := getFixedString(data, &a.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	a.attributeShape.get(data, &offset)
	getInt64(data, &a.CreatedAt, &offset)
	getInt64(data, &a.UpdatedAt, &offset)
	return nil
}

// Instruction is a named operation of an application. Its body is the
// only variable-length field and sits at the end of the record.
type Instruction struct {
	Authority   types.Pubkey `json:"authority"`
	Workspace   types.Pubkey `json:"workspace"`
	Application types.Pubkey `json:"application"`
	Name        string       `json:"name"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
	StatsBump   uint8        `json:"instructionStatsBump"`
	Body        string       `json:"body"`
}

func (i *Instruction) Type() AccountType { return AccountTypeInstruction }

func (i *Instruction) Marshal() []byte {
	b := make([]byte, InstructionSize(len(i.Body)))
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeInstruction], &offset)
	putKey(b, i.Authority, &offset)
	putKey(b, i.Workspace, &offset)
	putKey(b, i.Application, &offset)
	putFixedString(b, i.Name, MaxNameLength, &offset)
	putInt64(b, i.CreatedAt, &offset)
	putInt64(b, i.UpdatedAt, &offset)
	putUint8(b, i.StatsBump, &offset)
	putString(b, i.Body, &offset)
	return b
}

func (i *Instruction) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeInstruction, data, InstructionBaseSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &i.Authority, &offset)
	getKey(data, &i.Workspace, &offset)
	getKey(data, &i.Application, &offset)
	if err := getFixedString(data, &i.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	getInt64(data, &i.CreatedAt, &offset)
	getInt64(data, &i.UpdatedAt, &offset)
	getUint8(data, &i.StatsBump, &offset)
	return getString(data, &i.Body, &offset)
}

// InstructionStats counts an instruction's arguments and accounts.
type InstructionStats struct {
	QuantityOfArguments uint32 `json:"quantityOfArguments"`
	QuantityOfAccounts  uint32 `json:"quantityOfAccounts"`
	Bump                uint8  `json:"bump"`
}

func (s *InstructionStats) Type() AccountType { return AccountTypeInstructionStats }

func (s *InstructionStats) Marshal() []byte {
	b := make([]byte, InstructionStatsSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeInstructionStats], &offset)
	putUint32(b, s.QuantityOfArguments, &offset)
	putUint32(b, s.QuantityOfAccounts, &offset)
	putUint8(b, s.Bump, &offset)
	return b
}

func (s *InstructionStats) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeInstructionStats, data, InstructionStatsSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getUint32(data, &s.QuantityOfArguments, &offset)
	getUint32(data, &s.QuantityOfAccounts, &offset)
	getUint8(data, &s.Bump, &offset)
	return nil
}

// InstructionArgument is a typed input of an instruction.
type InstructionArgument struct {
	Authority   types.Pubkey `json:"authority"`
	Workspace   types.Pubkey `json:"workspace"`
	Application types.Pubkey `json:"application"`
	Instruction types.Pubkey `json:"instruction"`
	Name        string       `json:"name"`
	attributeShape
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

func (a *InstructionArgument) Type() AccountType { return AccountTypeInstructionArgument }

func (a *InstructionArgument) Marshal() []byte {
	b := make([]byte, InstructionArgumentSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeInstructionArgument], &offset)
	putKey(b, a.Authority, &offset)
	putKey(b, a.Workspace, &offset)
	putKey(b, a.Application, &offset)
	putKey(b, a.Instruction, &offset)
	putFixedString(b, a.Name, MaxNameLength, &offset)
	a.attributeShape.put(b, &offset)
	putInt64(b, a.CreatedAt, &offset)
	putInt64(b, a.UpdatedAt, &offset)
	return b
}

func (a *InstructionArgument) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeInstructionArgument, data, InstructionArgumentSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &a.Authority, &offset)
	getKey(data, &a.Workspace, &offset)
	getKey(data, &a.Application, &offset)
	getKey(data, &a.Instruction, &offset)
	if err := getFixedString(data, &a.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	a.attributeShape.get(data, &offset)
	getInt64(data, &a.CreatedAt, &offset)
	getInt64(data, &a.UpdatedAt, &offset)
	return nil
}

// InstructionAccount is an account an instruction declares. Collection,
// Payer and Close are weak references validated when written.
type InstructionAccount struct {
	Authority   types.Pubkey       `json:"authority"`
	Workspace   types.Pubkey       `json:"workspace"`
	Application types.Pubkey       `json:"application"`
	Instruction types.Pubkey       `json:"instruction"`
	Name        string             `json:"name"`
	Kind        AccountKindID      `json:"kind"`
	Modifier    *AccountModifierID `json:"modifier"`
	Collection  *types.Pubkey      `json:"collection"`
	Payer       *types.Pubkey      `json:"payer"`
	Close       *types.Pubkey      `json:"close"`
	Space       *uint16            `json:"space"`
	CreatedAt   int64              `json:"createdAt"`
	UpdatedAt   int64              `json:"updatedAt"`
	StatsBump   uint8              `json:"instructionAccountStatsBump"`
}

func (a *InstructionAccount) Type() AccountType { return AccountTypeInstructionAccount }

func (a *InstructionAccount) Marshal() []byte {
	b := make([]byte, InstructionAccountSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeInstructionAccount], &offset)
	putKey(b, a.Authority, &offset)
	putKey(b, a.Workspace, &offset)
	putKey(b, a.Application, &offset)
	putKey(b, a.Instruction, &offset)
	putFixedString(b, a.Name, MaxNameLength, &offset)
	putUint8(b, uint8(a.Kind), &offset)
	var modifier *uint8
	if a.Modifier != nil {
		m := uint8(*a.Modifier)
		modifier = &m
	}
	putOptionUint8(b, modifier, &offset)
	putOptionKey(b, a.Collection, &offset)
	putOptionKey(b, a.Payer, &offset)
	putOptionKey(b, a.Close, &offset)
	putOptionUint16(b, a.Space, &offset)
	putInt64(b, a.CreatedAt, &offset)
	putInt64(b, a.UpdatedAt, &offset)
	putUint8(b, a.StatsBump, &offset)
	return b
}

func (a *InstructionAccount) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeInstructionAccount, data, InstructionAccountSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &a.Authority, &offset)
	getKey(data, &a.Workspace, &offset)
	getKey(data, &a.Application, &offset)
	getKey(data, &a.Instruction, &offset)
	if err := getFixedString(data, &a.Name, MaxNameLength, &offset); err != nil {
		return err
	}
	var kind uint8
	getUint8(data, &kind, &offset)
	a.Kind = AccountKindID(kind)
	var modifier *uint8
	getOptionUint8(data, &modifier, &offset)
	a.Modifier = nil
	if modifier != nil {
		m := AccountModifierID(*modifier)
		a.Modifier = &m
	}
	getOptionKey(data, &a.Collection, &offset)
	getOptionKey(data, &a.Payer, &offset)
	getOptionKey(data, &a.Close, &offset)
	getOptionUint16(data, &a.Space, &offset)
	getInt64(data, &a.CreatedAt, &offset)
	getInt64(data, &a.UpdatedAt, &offset)
	getUint8(data, &a.StatsBump, &offset)
	return nil
}

// InstructionAccountStats counts the relations touching an account.
type InstructionAccountStats struct {
	QuantityOfRelations uint32 `json:"quantityOfRelations"`
	Bump                uint8  `json:"bump"`
}

func (s *InstructionAccountStats) Type() AccountType { return AccountTypeInstructionAccountStats }

func (s *InstructionAccountStats) Marshal() []byte {
	b := make([]byte, InstructionAccountStatsSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeInstructionAccountStats], &offset)
	putUint32(b, s.QuantityOfRelations, &offset)
	putUint8(b, s.Bump, &offset)
	return b
}

func (s *InstructionAccountStats) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeInstructionAccountStats, data, InstructionAccountStatsSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getUint32(data, &s.QuantityOfRelations, &offset)
	getUint8(data, &s.Bump, &offset)
	return nil
}

// InstructionRelation is a directed edge between two accounts of the same
// instruction.
type InstructionRelation struct {
	Authority   types.Pubkey `json:"authority"`
	Workspace   types.Pubkey `json:"workspace"`
	Application types.Pubkey `json:"application"`
	Instruction types.Pubkey `json:"instruction"`
	From        types.Pubkey `json:"from"`
	To          types.Pubkey `json:"to"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
	Bump        uint8        `json:"bump"`
}

func (r *InstructionRelation) Type() AccountType { return AccountTypeInstructionRelation }

func (r *InstructionRelation) Marshal() []byte {
	b := make([]byte, InstructionRelationSize)
	var offset int
	putDiscriminator(b, accountDiscriminators[AccountTypeInstructionRelation], &offset)
	putKey(b, r.Authority, &offset)
	putKey(b, r.Workspace, &offset)
	putKey(b, r.Application, &offset)
	putKey(b, r.Instruction, &offset)
	putKey(b, r.From, &offset)
	putKey(b, r.To, &offset)
	putInt64(b, r.CreatedAt, &offset)
	putInt64(b, r.UpdatedAt, &offset)
	putUint8(b, r.Bump, &offset)
	return b
}

func (r *InstructionRelation) Unmarshal(data []byte) error {
	if err := checkRecord(AccountTypeInstructionRelation, data, InstructionRelationSize); err != nil {
		return err
	}
	offset := discriminatorSize
	getKey(data, &r.Authority, &offset)
	getKey(data, &r.Workspace, &offset)
	getKey(data, &r.Application, &offset)
	getKey(data, &r.Instruction, &offset)
	getKey(data, &r.From, &offset)
	getKey(data, &r.To, &offset)
	getInt64(data, &r.CreatedAt, &offset)
	getInt64(data, &r.UpdatedAt, &offset)
	getUint8(data, &r.Bump, &offset)
	return nil
}

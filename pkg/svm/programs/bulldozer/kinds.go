package bulldozer

import "fmt"

// CollaboratorStatus is the membership state of a collaborator.
type CollaboratorStatus uint8

const (
	CollaboratorStatusPending CollaboratorStatus = iota
	CollaboratorStatusApproved
	CollaboratorStatusRejected
)

// ParseCollaboratorStatus validates a wire status.
func ParseCollaboratorStatus(v uint8) (CollaboratorStatus, error) {
	if v > uint8(CollaboratorStatusRejected) {
		return 0, ErrInvalidCollaboratorStatus
	}
	return CollaboratorStatus(v), nil
}

func (s CollaboratorStatus) String() string {
	switch s {
	case CollaboratorStatusPending:
		return "pending"
	case CollaboratorStatusApproved:
		return "approved"
	case CollaboratorStatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// MarshalText renders the status by name.
func (s CollaboratorStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AttributeKindID identifies the type of a collection attribute or argument.
type AttributeKindID uint8

const (
	AttributeKindBoolean AttributeKindID = iota
	AttributeKindNumber
	AttributeKindString
	AttributeKindPubkey
)

func (k AttributeKindID) String() string {
	switch k {
	case AttributeKindBoolean:
		return "boolean"
	case AttributeKindNumber:
		return "number"
	case AttributeKindString:
		return "string"
	case AttributeKindPubkey:
		return "pubkey"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AttributeModifierID identifies a collection modifier.
type AttributeModifierID uint8

const (
	AttributeModifierArray AttributeModifierID = iota
	AttributeModifierVector
)

func (m AttributeModifierID) String() string {
	switch m {
	case AttributeModifierArray:
		return "array"
	case AttributeModifierVector:
		return "vector"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// AttributeKind is a resolved kind with the size its bound implies.
type AttributeKind struct {
	ID   AttributeKindID `json:"id"`
	Size uint32          `json:"size"`
}

// AttributeModifier is a resolved modifier with its element count.
type AttributeModifier struct {
	ID   AttributeModifierID `json:"id"`
	Size uint32              `json:"size"`
}

// AttributeDto is the caller-supplied description shared by collection
// attributes and instruction arguments.
type AttributeDto struct {
	Name      string
	Kind      uint8
	Modifier  *uint8
	Size      *uint32
	Max       *uint32
	MaxLength *uint32
}

// resolve validates the dto and derives the stored kind and modifier.
func (d *AttributeDto) resolve() (AttributeKind, *AttributeModifier, error) {
	if err := validateName(d.Name); err != nil {
		return AttributeKind{}, nil, err
	}

	var kind AttributeKind
	switch AttributeKindID(d.Kind) {
	case AttributeKindBoolean:
		kind = AttributeKind{ID: AttributeKindBoolean, Size: 1}
	case AttributeKindNumber:
		if d.Max == nil {
			return AttributeKind{}, nil, ErrMissingMax
		}
		kind = AttributeKind{ID: AttributeKindNumber, Size: *d.Max}
	case AttributeKindString:
		if d.MaxLength == nil {
			return AttributeKind{}, nil, ErrMissingMaxLength
		}
		kind = AttributeKind{ID: AttributeKindString, Size: *d.MaxLength}
	case AttributeKindPubkey:
		kind = AttributeKind{ID: AttributeKindPubkey, Size: pubkeySize}
	default:
		return AttributeKind{}, nil, ErrInvalidAttributeKind
	}

	if d.Modifier == nil {
		return kind, nil, nil
	}
	switch AttributeModifierID(*d.Modifier) {
	case AttributeModifierArray, AttributeModifierVector:
		if d.Size == nil {
			return AttributeKind{}, nil, ErrMissingModifierSize
		}
		return kind, &AttributeModifier{ID: AttributeModifierID(*d.Modifier), Size: *d.Size}, nil
	default:
		return AttributeKind{}, nil, ErrInvalidAttributeModifier
	}
}

// AccountKindID identifies the role of an instruction account.
type AccountKindID uint8

const (
	AccountKindDocument AccountKindID = iota
	AccountKindSigner
	AccountKindAccount
)

func (k AccountKindID) String() string {
	switch k {
	case AccountKindDocument:
		return "document"
	case AccountKindSigner:
		return "signer"
	case AccountKindAccount:
		return "account"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AccountModifierID identifies how an instruction account is accessed.
type AccountModifierID uint8

const (
	AccountModifierInit AccountModifierID = iota
	AccountModifierMut
)

func (m AccountModifierID) String() string {
	switch m {
	case AccountModifierInit:
		return "init"
	case AccountModifierMut:
		return "mut"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// AccountDto is the caller-supplied description of an instruction account.
type AccountDto struct {
	Name     string
	Kind     uint8
	Modifier *uint8
	Space    *uint16
}

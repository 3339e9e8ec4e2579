package account

import (
	"errors"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/paylink/paylink/internal/domain/history"
	"github.com/paylink/paylink/internal/domain/recency"
)

// Identity is the opaque principal-like id of a caller. An identity is at
// most one of user or business; the zero value is the anonymous caller.
type Identity string

// Anonymous is the unauthenticated caller identity.
const Anonymous Identity = ""

func (id Identity) IsAnonymous() bool { return id == Anonymous }

// String returns the raw textual form of the identity.
func (id Identity) String() string { return string(id) }

// Kind classifies an identity.
type Kind int

const (
	KindUnknown Kind = iota
	KindUser
	KindBusiness
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// MinAliasLen is the minimum length of a pay alias.
const MinAliasLen = 3

var (
	ErrAnonymousCaller = errors.New("anonymous caller")
	ErrAccountExists   = errors.New("account already exists")
	ErrAliasTaken      = errors.New("pay alias already registered")
	ErrInvalidAlias    = errors.New("pay alias must be at least 3 characters")
	ErrNotFound        = errors.New("account not found")
)

// ValidateAlias checks the alias shape at sign-up.
func ValidateAlias(alias string) error {
	if len(alias) < MinAliasLen {
		return ErrInvalidAlias
	}
	return nil
}

// User is a registered personal account. Chats and Relationships are the
// recency indices over the user's conversations and business pairings.
type User struct {
	Identity      Identity      `json:"identity"`
	Name          string        `json:"name"`
	Alias         string        `json:"alias"`
	ProfilePic    string        `json:"profilePic"`
	PassHash      string        `json:"-"`
	CreatedAt     uint64        `json:"createdAt"`
	Chats         recency.Index `json:"chats"`
	Relationships recency.Index `json:"relationships"`
}

// Category groups a business for display.
type Category string

const (
	CategoryAgriculture    Category = "AGRICULTURE"
	CategoryManufacturing  Category = "MANUFACTURING"
	CategoryTechnology     Category = "TECHNOLOGY"
	CategoryRetail         Category = "RETAIL"
	CategoryFood           Category = "FOOD"
	CategoryHealthcare     Category = "HEALTHCARE"
	CategoryEducation      Category = "EDUCATION"
	CategoryFinance        Category = "FINANCE"
	CategoryRealEstate     Category = "REAL_ESTATE"
	CategoryConstruction   Category = "CONSTRUCTION"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryProfessional   Category = "PROFESSIONAL"
	CategoryHospitality    Category = "HOSPITALITY"
	CategoryEnergy         Category = "ENERGY"
	CategoryOther          Category = "OTHER"
)

// ValidateCategory checks a business category value.
func ValidateCategory(c Category) error {
	switch c {
	case CategoryAgriculture, CategoryManufacturing, CategoryTechnology,
		CategoryRetail, CategoryFood, CategoryHealthcare, CategoryEducation,
		CategoryFinance, CategoryRealEstate, CategoryConstruction,
		CategoryTransportation, CategoryEntertainment, CategoryProfessional,
		CategoryHospitality, CategoryEnergy, CategoryOther:
		return nil
	default:
		return errors.New("invalid business category")
	}
}

// Business is a registered business account. Unlike users, a business
// keeps its transaction list inline rather than in the history mirror.
type Business struct {
	Identity     Identity        `json:"identity"`
	Name         string          `json:"name"`
	Alias        string          `json:"alias"`
	Logo         string          `json:"logo"`
	Category     Category        `json:"category"`
	PassHash     string          `json:"-"`
	Transactions []history.Entry `json:"transactions"`
	CreatedAt    uint64          `json:"createdAt"`
}

// Metadata is the public profile of either account kind.
type Metadata struct {
	Identity  Identity `json:"identity"`
	Kind      Kind     `json:"-"`
	Name      string   `json:"name"`
	Alias     string   `json:"alias"`
	Logo      string   `json:"logo,omitempty"`
	Category  Category `json:"category,omitempty"`
	CreatedAt uint64   `json:"createdAt"`
}

// Session resolves a bearer token to a caller identity.
type Session struct {
	ID        string
	TokenHash string
	Identity  Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HashPassphrase hashes a sign-up passphrase.
func HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", errors.New("passphrase is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassphrase checks a passphrase against its stored hash.
func VerifyPassphrase(hash, passphrase string) bool {
	if hash == "" || passphrase == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase)) == nil
}

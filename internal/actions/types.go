package actions

import (
	"errors"
	"time"
)

// Category groups action definitions by the business area they belong to.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryTimeTracking   Category = "time_tracking"
	CategoryOrders         Category = "orders"
	CategoryInvoices       Category = "invoices"
	CategoryUsers          Category = "users"
	CategoryDocuments      Category = "documents"
	CategoryIncidents      Category = "incidents"
	CategoryCompliance     Category = "compliance"
	CategoryCustom         Category = "custom"
)

// validCategories is the closed set of recognized categories.
var validCategories = map[Category]bool{
	CategoryAuthentication: true,
	CategoryTimeTracking:   true,
	CategoryOrders:         true,
	CategoryInvoices:       true,
	CategoryUsers:          true,
	CategoryDocuments:      true,
	CategoryIncidents:      true,
	CategoryCompliance:     true,
	CategoryCustom:         true,
}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool { return validCategories[c] }

// Definition is a named, registrable event type. The Key is stable and
// immutable after creation; everything raised through the dispatcher refers
// to a definition by its key.
type Definition struct {
	ID            string         `json:"id"`
	Key           string         `json:"action_key"`
	DisplayName   string         `json:"display_name"`
	Description   string         `json:"description"`
	Category      Category       `json:"category"`
	ContextSchema map[string]any `json:"context_schema,omitempty"`
	IsActive      bool           `json:"is_active"`
	IsSystem      bool           `json:"is_system"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Update carries a partial metadata update for a definition. Nil fields are
// left unchanged; the action key itself cannot be updated.
type Update struct {
	DisplayName   *string        `json:"display_name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Category      *Category      `json:"category,omitempty"`
	ContextSchema map[string]any `json:"context_schema,omitempty"`
	IsActive      *bool          `json:"is_active,omitempty"`
}

var (
	// ErrNotFound is returned when no definition exists for a key.
	ErrNotFound = errors.New("action not found")
	// ErrDuplicateKey is returned when creating a definition whose key is taken.
	ErrDuplicateKey = errors.New("action key already exists")
	// ErrSystemAction is returned when attempting to delete a built-in definition.
	ErrSystemAction = errors.New("system actions cannot be deleted")
	// ErrInvalidCategory is returned for categories outside the closed set.
	ErrInvalidCategory = errors.New("invalid action category")
)

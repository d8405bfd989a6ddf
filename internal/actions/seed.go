package actions

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// builtins is the fixed catalog of built-in event types every installation
// starts with. Keys are stable identifiers referenced from business code;
// never rename an entry, only add new ones.
var builtins = []Definition{
	// Authentication
	{
		Key:         "user.login",
		DisplayName: "User signed in",
		Description: "Raised when a user signs in successfully",
		Category:    CategoryAuthentication,
		ContextSchema: map[string]any{
			"userId":    "string",
			"email":     "string",
			"timestamp": "string",
		},
	},
	{
		Key:         "user.logout",
		DisplayName: "User signed out",
		Description: "Raised when a user signs out",
		Category:    CategoryAuthentication,
	},

	// Time tracking
	{
		Key:         "timeentry.clockin",
		DisplayName: "User clocked in",
		Description: "Raised when a user clocks in",
		Category:    CategoryTimeTracking,
		ContextSchema: map[string]any{
			"userId":      "string",
			"timeEntryId": "string",
			"clockIn":     "string",
		},
	},
	{
		Key:         "timeentry.clockout",
		DisplayName: "User clocked out",
		Description: "Raised when a user clocks out",
		Category:    CategoryTimeTracking,
		ContextSchema: map[string]any{
			"userId":      "string",
			"timeEntryId": "string",
			"clockOut":    "string",
			"totalHours":  "number",
		},
	},

	// Orders
	{
		Key:         "order.created",
		DisplayName: "Order created",
		Description: "Raised when a new order is created",
		Category:    CategoryOrders,
		ContextSchema: map[string]any{
			"orderId":     "string",
			"orderNumber": "string",
			"requestedBy": "string",
			"totalAmount": "number",
		},
	},
	{
		Key:         "order.approved",
		DisplayName: "Order approved",
		Description: "Raised when an order is approved",
		Category:    CategoryOrders,
	},
	{
		Key:         "order.rejected",
		DisplayName: "Order rejected",
		Description: "Raised when an order is rejected",
		Category:    CategoryOrders,
	},
	{
		Key:         "order.ordered",
		DisplayName: "Order placed",
		Description: "Raised when an order is actually placed with the supplier",
		Category:    CategoryOrders,
	},

	// Invoices
	{
		Key:         "invoice.created",
		DisplayName: "Invoice created",
		Description: "Raised when a new invoice is created",
		Category:    CategoryInvoices,
		ContextSchema: map[string]any{
			"invoiceId":     "string",
			"invoiceNumber": "string",
			"customerId":    "string",
			"totalAmount":   "number",
		},
	},
	{
		Key:         "invoice.sent",
		DisplayName: "Invoice sent",
		Description: "Raised when an invoice is marked as sent",
		Category:    CategoryInvoices,
	},
	{
		Key:         "invoice.paid",
		DisplayName: "Invoice paid",
		Description: "Raised when an invoice is marked as paid",
		Category:    CategoryInvoices,
	},
	{
		Key:         "invoice.cancelled",
		DisplayName: "Invoice cancelled",
		Description: "Raised when an invoice is cancelled",
		Category:    CategoryInvoices,
	},

	// Users
	{
		Key:         "user.created",
		DisplayName: "User created",
		Description: "Raised when a new user account is created",
		Category:    CategoryUsers,
	},
	{
		Key:         "user.updated",
		DisplayName: "User updated",
		Description: "Raised when a user account is modified",
		Category:    CategoryUsers,
	},
	{
		Key:         "user.deleted",
		DisplayName: "User deleted",
		Description: "Raised when a user account is deleted",
		Category:    CategoryUsers,
	},

	// Documents
	{
		Key:         "document.created",
		DisplayName: "Document created",
		Description: "Raised when a new document is created",
		Category:    CategoryDocuments,
	},
	{
		Key:         "document.updated",
		DisplayName: "Document updated",
		Description: "Raised when a document is modified",
		Category:    CategoryDocuments,
	},

	// Incidents
	{
		Key:         "incident.created",
		DisplayName: "Incident reported",
		Description: "Raised when a new incident is reported",
		Category:    CategoryIncidents,
	},
	{
		Key:         "incident.approved",
		DisplayName: "Incident approved",
		Description: "Raised when an incident report is approved",
		Category:    CategoryIncidents,
	},

	// Compliance
	{
		Key:         "compliance.violation",
		DisplayName: "Compliance violation detected",
		Description: "Raised when a compliance violation is detected",
		Category:    CategoryCompliance,
	},
}

// Seed inserts every built-in definition that does not exist yet and returns
// the newly created ones. Existing definitions are left untouched, so the
// call is idempotent.
func (s *Store) Seed(ctx context.Context) ([]Definition, error) {
	var created []Definition

	for _, def := range builtins {
		_, err := s.GetByKey(ctx, def.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("checking builtin %q: %w", def.Key, err)
		}

		def.IsSystem = true
		newDef, err := s.Create(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("seeding builtin %q: %w", def.Key, err)
		}
		created = append(created, *newDef)
		log.Printf("actions: created builtin %s", def.Key)
	}

	return created, nil
}

// Package guardian reconstructs parent -> children relationships from invoice
// child data when the backend supplies no guardian entity.
//
// Identity is a heuristic: the default key joins the father's name and phone
// number. Two guardians sharing a phone and name collide and their children
// merge; one guardian recorded with two phone variants splits in two. A
// backend-supplied guardian id can replace the heuristic by providing a
// different Keyer.
package guardian

import (
	"invoicedesk/pkg/models"
)

const (
	unknownName  = "Unknown"
	unknownPhone = "No Phone"
)

// GuardianKey identifies one guardian within a grouping run.
type GuardianKey string

// Keyer derives the guardian key of a child.
type Keyer interface {
	Key(child *models.ChildRef) GuardianKey
}

// KeyerFunc adapts a function to Keyer.
type KeyerFunc func(child *models.ChildRef) GuardianKey

// Key implements Keyer.
func (f KeyerFunc) Key(child *models.ChildRef) GuardianKey { return f(child) }

// NamePhoneKeyer keys guardians by "<fatherName>_<phone>" with placeholders
// for missing parts.
var NamePhoneKeyer Keyer = KeyerFunc(func(child *models.ChildRef) GuardianKey {
	return GuardianKey(orDefault(child.FatherName, unknownName) + "_" + orDefault(child.Phone, unknownPhone))
})

// Grouper groups invoices by guardian.
type Grouper struct {
	keyer Keyer
}

// NewGrouper returns a grouper using keyer, or NamePhoneKeyer when nil.
func NewGrouper(keyer Keyer) *Grouper {
	if keyer == nil {
		keyer = NamePhoneKeyer
	}
	return &Grouper{keyer: keyer}
}

// GroupByParent builds one Parent per guardian key in first-seen order.
// Invoices without child data are skipped, and a child id appears at most
// once under a parent.
func (g *Grouper) GroupByParent(invoices []models.Invoice) []models.Parent {
	var order []GuardianKey
	parents := make(map[GuardianKey]*models.Parent)

	for i := range invoices {
		child := invoices[i].Child
		if child == nil {
			continue
		}

		key := g.keyer.Key(child)
		parent, ok := parents[key]
		if !ok {
			parent = &models.Parent{
				ID:     string(key),
				Name:   orDefault(child.FatherName, unknownName),
				Phone:  child.Phone,
				Email:  child.Email,
				Centre: invoices[i].Centre,
			}
			parents[key] = parent
			order = append(order, key)
		}
		if parent.Email == "" {
			parent.Email = child.Email
		}

		if !parent.HasChild(child.ID) {
			parent.Children = append(parent.Children, models.Child{
				ID:                 child.ID,
				FullNameWithCaseID: child.FullNameWithCaseID,
				IsActive:           child.IsActive,
			})
		}
	}

	result := make([]models.Parent, 0, len(order))
	for _, key := range order {
		result = append(result, *parents[key])
	}
	return result
}

// InvoicesByParent returns the invoices of each parent, keyed by parent id.
func (g *Grouper) InvoicesByParent(invoices []models.Invoice) map[string][]models.Invoice {
	grouped := make(map[string][]models.Invoice)
	for i := range invoices {
		if invoices[i].Child == nil {
			continue
		}
		key := string(g.keyer.Key(invoices[i].Child))
		grouped[key] = append(grouped[key], invoices[i])
	}
	return grouped
}

// GroupByParent groups with the default name+phone heuristic.
func GroupByParent(invoices []models.Invoice) []models.Parent {
	return NewGrouper(nil).GroupByParent(invoices)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

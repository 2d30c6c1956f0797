package memory

import (
	"slices"
	"strings"

	"github.com/punchcard/punchcard/internal/model"
)

// insertOrdered keeps visits sorted by (Timestamp, Seq).
// Back-dated punches land in their timestamp position rather than at the tail.
func insertOrdered(visits []model.Visit, v model.Visit) []model.Visit {
	i, _ := slices.BinarySearchFunc(visits, v, model.CompareVisits)
	return slices.Insert(visits, i, v)
}

func sortCustomers(customers []*model.Customer) {
	slices.SortFunc(customers, func(a, b *model.Customer) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// sortCardsNewestFirst orders by CreatedAt descending, then ID descending.
func sortCardsNewestFirst(cards []*model.LoyaltyCard) {
	slices.SortFunc(cards, func(a, b *model.LoyaltyCard) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

func cloneCustomer(c model.Customer) model.Customer {
	if c.ArchivedAt != nil {
		t := *c.ArchivedAt
		c.ArchivedAt = &t
	}
	return c
}

func cloneCard(c model.LoyaltyCard) model.LoyaltyCard {
	if c.LastRedeemedAt != nil {
		t := *c.LastRedeemedAt
		c.LastRedeemedAt = &t
	}
	return c
}

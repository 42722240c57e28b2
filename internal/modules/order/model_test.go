package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPaid, StatusShipped, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{Status("BOGUS"), StatusPaid, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("shipped")
	assert.Error(t, err)
}

func sampleOrder() *Order {
	return &Order{
		ID:    uuid.New(),
		Total: 102599,
		Items: []*Item{
			{ProductID: "p1", Quantity: 2, UnitPrice: 50000, Subtotal: 100000},
			{ProductID: "p2", Quantity: 1, UnitPrice: 2599, Subtotal: 2599},
		},
	}
}

func TestCheckTotals(t *testing.T) {
	require.NoError(t, sampleOrder().CheckTotals())

	badLine := sampleOrder()
	badLine.Items[0].Subtotal = 99999
	assert.Error(t, badLine.CheckTotals())

	badTotal := sampleOrder()
	badTotal.Total = 1
	assert.Error(t, badTotal.CheckTotals())

	empty := sampleOrder()
	empty.Items = nil
	assert.Error(t, empty.CheckTotals())
}

func TestCloneIsDeep(t *testing.T) {
	o := sampleOrder()
	c := o.Clone()
	c.Items[0].Quantity = 99
	c.Status = StatusPaid
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Empty(t, o.Status)
}

func TestStockChanges(t *testing.T) {
	changes := sampleOrder().StockChanges()
	require.Len(t, changes, 2)
	assert.Equal(t, "p1", changes[0].ProductID)
	assert.Equal(t, 2, changes[0].Quantity)
}

func TestDuplicateErrorMessage(t *testing.T) {
	assert.Contains(t, (&DuplicateError{ExistingOrderID: "abc"}).Error(), "abc")
	assert.Contains(t, (&DuplicateError{}).Error(), "already being processed")
}

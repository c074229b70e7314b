package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReader map[string]int

func (f fakeReader) GetItemQuantity(productID string) int {
	return f[productID]
}

func TestCanAddItem(t *testing.T) {
	testCases := []struct {
		name     string
		current  int
		toAdd    int
		maxStock int
		expect   bool
	}{
		{name: "over the ceiling", current: 2, toAdd: 2, maxStock: 3, expect: false},
		{name: "exactly at the ceiling", current: 1, toAdd: 2, maxStock: 3, expect: true},
		{name: "absent product", current: 0, toAdd: 3, maxStock: 3, expect: true},
		{name: "zero stock", current: 0, toAdd: 1, maxStock: 0, expect: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			reader := fakeReader{"p1": tc.current}

			// when
			ok := CanAddItem(reader, "p1", tc.toAdd, tc.maxStock)

			// then
			assert.Equal(t, tc.expect, ok)
		})
	}
}

func TestGuard_ReadsLiveState(t *testing.T) {
	// given
	reader := fakeReader{}
	guard := NewGuard(reader)

	// when
	before := guard.CanAddItem("p1", 2, 3)
	reader["p1"] = 2
	after := guard.CanAddItem("p1", 2, 3)

	// then
	assert.True(t, before)
	assert.False(t, after)
	assert.Equal(t, 1, guard.Available("p1", 3))
	assert.Equal(t, 0, guard.Available("p1", 1))
}

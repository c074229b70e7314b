package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocReader struct {
	docs    map[string]CartDocument
	err     error
	lastUID string
}

func (f *fakeDocReader) ReadCart(_ context.Context, userID string) (CartDocument, bool, error) {
	f.lastUID = userID
	if f.err != nil {
		return CartDocument{}, false, f.err
	}
	doc, ok := f.docs[userID]
	return doc, ok, nil
}

func TestFirestoreCartLoader_LoadUserCart(t *testing.T) {
	img := "https://img/p1.png"
	docs := map[string]CartDocument{
		"user-1": {Items: []CartDocumentItem{
			{ItemID: "row-1", ProductID: "p1", Name: "Mug", UnitPrice: 1250, ImageURL: &img, Quantity: 2, VendorID: "v1", MaxStock: 5},
			{ProductID: "", Quantity: 1},
		}},
	}
	testCases := []struct {
		name          string
		userID        string
		readerErr     error
		expectSuccess bool
		expectItems   int
	}{
		{name: "document found", userID: "user-1", expectSuccess: true, expectItems: 1},
		{name: "no document is an empty success", userID: "user-2", expectSuccess: true, expectItems: 0},
		{name: "read error is a failure", userID: "user-1", readerErr: errors.New("unavailable"), expectSuccess: false},
		{name: "no principal is a failure", userID: "", expectSuccess: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			reader := &fakeDocReader{docs: docs, err: tc.readerErr}
			loader := NewFirestoreCartLoader(reader, discardLogger)
			ctx := session.WithPrincipal(context.Background(), tc.userID)

			// when
			result := loader.LoadUserCart(ctx)

			// then
			assert.Equal(t, tc.expectSuccess, result.Success)
			if !tc.expectSuccess {
				assert.NotEmpty(t, result.Error)
				return
			}
			assert.Equal(t, tc.userID, reader.lastUID)
			require.Len(t, result.Items, tc.expectItems)
			if tc.expectItems > 0 {
				assert.Equal(t, "p1", result.Items[0].ProductID)
				assert.Equal(t, 2, result.Items[0].Quantity)
				assert.Equal(t, 5, result.Items[0].MaxStock)
				assert.Equal(t, &img, result.Items[0].ImageURL)
			}
		})
	}
}

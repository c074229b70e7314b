package remote

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/go-playground/validator/v10"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CartDocument is the shape of a document in the carts collection.
type CartDocument struct {
	Items []CartDocumentItem `firestore:"items"`
}

type CartDocumentItem struct {
	ItemID    string  `firestore:"itemId"`
	ProductID string  `firestore:"productId"`
	Name      string  `firestore:"name"`
	UnitPrice int64   `firestore:"unitPrice"`
	ImageURL  *string `firestore:"imageUrl"`
	Quantity  int64   `firestore:"quantity"`
	VendorID  string  `firestore:"vendorId"`
	Weight    float64 `firestore:"weight"`
	MaxStock  int64   `firestore:"maxStock"`
}

// CartDocumentReader reads the cart document of a user.
// found is false when the user has no document.
type CartDocumentReader interface {
	ReadCart(ctx context.Context, userID string) (doc CartDocument, found bool, err error)
}

// FirestoreReader reads cart documents from a Firestore collection, doc id = user id.
type FirestoreReader struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient creates a Firestore client. An empty credentialsFile uses ADC.
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

func NewFirestoreReader(client *firestore.Client, collection string) *FirestoreReader {
	if collection == "" {
		collection = "carts"
	}
	return &FirestoreReader{client: client, collection: collection}
}

func (r *FirestoreReader) ReadCart(ctx context.Context, userID string) (CartDocument, bool, error) {
	snap, err := r.client.Collection(r.collection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return CartDocument{}, false, nil
		}
		return CartDocument{}, false, err
	}
	if snap == nil || !snap.Exists() {
		return CartDocument{}, false, nil
	}
	var doc CartDocument
	if err := snap.DataTo(&doc); err != nil {
		return CartDocument{}, false, fmt.Errorf("failed to decode cart document: %w", err)
	}
	return doc, true, nil
}

// FirestoreCartLoader loads the server cart from Firestore for the principal in the context.
type FirestoreCartLoader struct {
	reader   CartDocumentReader
	validate *validator.Validate
	logger   *slog.Logger
}

func NewFirestoreCartLoader(reader CartDocumentReader, logger *slog.Logger) *FirestoreCartLoader {
	return &FirestoreCartLoader{
		reader:   reader,
		validate: validator.New(),
		logger:   logger.With("component", "firestore_cart_loader"),
	}
}

func (l *FirestoreCartLoader) LoadUserCart(ctx context.Context) LoadResult {
	userID, ok := session.PrincipalFrom(ctx)
	if !ok {
		return Failure(carterrors.ErrUnauthenticated)
	}
	doc, found, err := l.reader.ReadCart(ctx, userID)
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", carterrors.ErrLoadCart, err))
	}
	if !found {
		return LoadResult{Success: true, Items: []cart.LineItem{}}
	}
	items := make([]cart.LineItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		items = append(items, cart.LineItem{
			ItemID:    it.ItemID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			ImageURL:  it.ImageURL,
			Quantity:  int(it.Quantity),
			VendorID:  it.VendorID,
			Weight:    it.Weight,
			MaxStock:  int(it.MaxStock),
		})
	}
	return LoadResult{Success: true, Items: validItems(ctx, l.validate, l.logger, items)}
}

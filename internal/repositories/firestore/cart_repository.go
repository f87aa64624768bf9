package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/itadmit/quickshop3-sub007/internal/domain"
	pfirestore "github.com/itadmit/quickshop3-sub007/internal/platform/firestore"
)

const cartSessionsCollection = "cart_sessions"

type cartSessionDocument struct {
	StoreID     string             `firestore:"storeId"`
	EnteredCode string             `firestore:"enteredCode,omitempty"`
	Lines       []cartLineDocument `firestore:"lines,omitempty"`
	UpdatedAt   time.Time          `firestore:"updatedAt"`
}

type cartLineDocument struct {
	VariantID     string   `firestore:"variantId"`
	ProductID     string   `firestore:"productId"`
	UnitPrice     int64    `firestore:"unitPrice"`
	Quantity      int      `firestore:"quantity"`
	ProductTags   []string `firestore:"productTags,omitempty"`
	CollectionIDs []string `firestore:"collectionIds,omitempty"`
}

// CartRepository reads session carts from Firestore. The session id is
// the document id; the store id is re-checked on read so a session from
// one store can never leak into another.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartSessionDocument]
}

// NewCartRepository constructs a Firestore-backed session cart reader.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartSessionDocument](provider, cartSessionsCollection, nil)
	return &CartRepository{base: base}, nil
}

// GetSession loads the stored cart for the session id within the store.
func (r *CartRepository) GetSession(ctx context.Context, storeID string, sessionID string) (domain.SessionCart, error) {
	if r == nil || r.base == nil {
		return domain.SessionCart{}, errors.New("cart repository not initialised")
	}
	store := strings.TrimSpace(storeID)
	session := strings.TrimSpace(sessionID)
	if store == "" || session == "" {
		return domain.SessionCart{}, errors.New("cart repository: store and session ids are required")
	}

	doc, err := r.base.Get(ctx, session)
	if err != nil {
		return domain.SessionCart{}, err
	}
	if doc.Data.StoreID != store {
		return domain.SessionCart{}, pfirestore.WrapError("cart_sessions.get",
			status.Error(codes.NotFound, "session does not belong to store"))
	}

	cart := domain.SessionCart{
		ID:          doc.ID,
		StoreID:     doc.Data.StoreID,
		EnteredCode: doc.Data.EnteredCode,
		UpdatedAt:   doc.Data.UpdatedAt.UTC(),
	}
	for _, line := range doc.Data.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{
			VariantID:     line.VariantID,
			ProductID:     line.ProductID,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			ProductTags:   line.ProductTags,
			CollectionIDs: line.CollectionIDs,
		})
	}
	return cart, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/validation"
)

const promoCollection = "promocodes"

// PromoRepository owns promo code records. Every state transition is a
// read followed by a write conditional on the revision that was read, so
// concurrent transitions of one code have a single winner.
type PromoRepository struct {
	store docstore.Store
}

func NewPromoRepository(store docstore.Store) *PromoRepository {
	return &PromoRepository{store: store}
}

// Create writes a New record, overwriting any record with the same code.
func (r *PromoRepository) Create(ctx context.Context, code, productName, description string) (*models.PromoCode, error) {
	promo := &models.PromoCode{
		Code:               validation.NormalizeCode(code),
		ProductName:        productName,
		ProductDescription: description,
		Status:             models.PromoStatusNew,
		CreatedAt:          now(),
	}
	if err := r.store.Set(ctx, promoCollection, promo.Code, encodePromo(promo)); err != nil {
		return nil, fmt.Errorf("create promo: %w", err)
	}
	return promo, nil
}

func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	doc, err := r.store.Get(ctx, promoCollection, validation.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get promo: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodePromo(doc)
}

// Activate moves a New code to Activated and binds it to userID.
func (r *PromoRepository) Activate(ctx context.Context, code string, userID int64) (bool, error) {
	return r.transition(ctx, code, models.PromoStatusNew, func(p *models.PromoCode) {
		at := now()
		p.Status = models.PromoStatusActivated
		p.ActivatedAt = &at
		p.UserID = userID
	})
}

// MarkUsed moves an Activated code to Used and binds the minted token address.
func (r *PromoRepository) MarkUsed(ctx context.Context, code string, nftAddress models.NftAddress) (bool, error) {
	return r.transition(ctx, code, models.PromoStatusActivated, func(p *models.PromoCode) {
		at := now()
		p.Status = models.PromoStatusUsed
		p.UsedAt = &at
		p.NftAddress = nftAddress
	})
}

// RebindAddress swaps the bound token address of a Used code, but only
// while it still points at from.
func (r *PromoRepository) RebindAddress(ctx context.Context, code string, from, to models.NftAddress) (bool, error) {
	doc, err := r.store.Get(ctx, promoCollection, validation.NormalizeCode(code))
	if err != nil {
		return false, fmt.Errorf("get promo: %w", err)
	}
	if doc == nil {
		return false, nil
	}
	promo, err := decodePromo(doc)
	if err != nil {
		return false, err
	}
	if promo.Status != models.PromoStatusUsed || promo.NftAddress != from {
		return false, nil
	}
	promo.NftAddress = to
	return r.write(ctx, doc, promo)
}

func (r *PromoRepository) ListByStatus(ctx context.Context, status models.PromoStatus) ([]models.PromoCode, error) {
	return r.find(ctx, docstore.Where("status", status.String()))
}

func (r *PromoRepository) ListByUser(ctx context.Context, userID int64) ([]models.PromoCode, error) {
	return r.find(ctx, docstore.Where("userId", userID))
}

func (r *PromoRepository) List(ctx context.Context) ([]models.PromoCode, error) {
	return r.find(ctx, docstore.Query{OrderBy: "createdAt", Desc: true})
}

func (r *PromoRepository) transition(ctx context.Context, code string, from models.PromoStatus, apply func(*models.PromoCode)) (bool, error) {
	doc, err := r.store.Get(ctx, promoCollection, validation.NormalizeCode(code))
	if err != nil {
		return false, fmt.Errorf("get promo: %w", err)
	}
	if doc == nil {
		return false, nil
	}
	promo, err := decodePromo(doc)
	if err != nil {
		return false, err
	}
	if promo.Status != from {
		return false, nil
	}
	apply(promo)
	return r.write(ctx, doc, promo)
}

func (r *PromoRepository) write(ctx context.Context, doc *docstore.Document, promo *models.PromoCode) (bool, error) {
	err := r.store.Update(ctx, promoCollection, doc.Key, encodePromo(promo), doc.Revision)
	if errors.Is(err, docstore.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update promo: %w", err)
	}
	return true, nil
}

func (r *PromoRepository) find(ctx context.Context, q docstore.Query) ([]models.PromoCode, error) {
	docs, err := r.store.Find(ctx, promoCollection, q)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	promos := make([]models.PromoCode, 0, len(docs))
	for i := range docs {
		promo, err := decodePromo(&docs[i])
		if err != nil {
			return nil, err
		}
		promos = append(promos, *promo)
	}
	return promos, nil
}

func encodePromo(p *models.PromoCode) docstore.Fields {
	return docstore.Fields{
		"schemaVersion":      int64(models.SchemaVersion),
		"code":               p.Code,
		"productName":        p.ProductName,
		"productDescription": p.ProductDescription,
		"status":             p.Status.String(),
		"nftAddress":         p.NftAddress.String(),
		"createdAt":          p.CreatedAt.UTC(),
		"activatedAt":        timeOrNil(p.ActivatedAt),
		"usedAt":             timeOrNil(p.UsedAt),
		"userId":             p.UserID,
		"orderId":            p.OrderID,
	}
}

func decodePromo(doc *docstore.Document) (*models.PromoCode, error) {
	if err := checkSchema(doc); err != nil {
		return nil, err
	}
	f := doc.Fields
	status, err := models.ParsePromoStatus(f.String("status"))
	if err != nil {
		return nil, corrupt(doc.Key, err)
	}
	return &models.PromoCode{
		Code:               f.String("code"),
		ProductName:        f.String("productName"),
		ProductDescription: f.String("productDescription"),
		Status:             status,
		NftAddress:         models.ParseNftAddress(f.String("nftAddress")),
		CreatedAt:          f.Time("createdAt"),
		ActivatedAt:        f.TimePtr("activatedAt"),
		UsedAt:             f.TimePtr("usedAt"),
		UserID:             f.Int64("userId"),
		OrderID:            f.String("orderId"),
	}, nil
}

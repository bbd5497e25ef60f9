package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/models"
)

const nftCollection = "nfts"

type NftRepository struct {
	store docstore.Store
}

func NewNftRepository(store docstore.Store) *NftRepository {
	return &NftRepository{store: store}
}

// Create stores token keyed by its token id. The status is always Minted.
func (r *NftRepository) Create(ctx context.Context, token *models.NftToken) error {
	token.Status = models.NftStatusMinted
	if token.MintedAt.IsZero() {
		token.MintedAt = now()
	}
	if err := r.store.Set(ctx, nftCollection, token.TokenID, encodeNft(token)); err != nil {
		return fmt.Errorf("create nft: %w", err)
	}
	return nil
}

func (r *NftRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.NftToken, error) {
	doc, err := r.store.Get(ctx, nftCollection, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get nft: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeNft(doc)
}

func (r *NftRepository) GetByAddress(ctx context.Context, nftAddress string) (*models.NftToken, error) {
	doc, err := r.findOne(ctx, docstore.Where("nftAddress", nftAddress))
	if err != nil || doc == nil {
		return nil, err
	}
	return decodeNft(doc)
}

func (r *NftRepository) GetByPromoCode(ctx context.Context, code string) (*models.NftToken, error) {
	doc, err := r.findOne(ctx, docstore.Where("promoCodeId", code))
	if err != nil || doc == nil {
		return nil, err
	}
	return decodeNft(doc)
}

func (r *NftRepository) GetByOwner(ctx context.Context, ownerAddress string) ([]models.NftToken, error) {
	return r.find(ctx, docstore.Where("ownerAddress", ownerAddress))
}

func (r *NftRepository) GetByStatus(ctx context.Context, status models.NftStatus) ([]models.NftToken, error) {
	return r.find(ctx, docstore.Where("status", status.String()))
}

// ListPending returns tokens whose address is still the mint message hash.
func (r *NftRepository) ListPending(ctx context.Context) ([]models.NftToken, error) {
	return r.find(ctx, docstore.Where("addressPending", true))
}

// Redeem marks the token at nftAddress as Redeemed. It reports false when no
// such token exists, when it is already redeemed, or when a concurrent writer
// got there first.
func (r *NftRepository) Redeem(ctx context.Context, nftAddress, txHash string) (bool, error) {
	doc, err := r.findOne(ctx, docstore.Where("nftAddress", nftAddress))
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	token, err := decodeNft(doc)
	if err != nil {
		return false, err
	}
	if !token.Status.Redeemable() {
		return false, nil
	}
	at := now()
	token.Status = models.NftStatusRedeemed
	token.RedeemedAt = &at
	token.RedeemTxHash = txHash
	return r.write(ctx, doc, token)
}

// ResolveAddress replaces a pending address with the final one.
func (r *NftRepository) ResolveAddress(ctx context.Context, tokenID, nftAddress string) (bool, error) {
	doc, err := r.store.Get(ctx, nftCollection, tokenID)
	if err != nil {
		return false, fmt.Errorf("get nft: %w", err)
	}
	if doc == nil {
		return false, nil
	}
	token, err := decodeNft(doc)
	if err != nil {
		return false, err
	}
	if !token.NftAddress.Pending {
		return false, nil
	}
	token.NftAddress = models.FinalAddress(nftAddress)
	return r.write(ctx, doc, token)
}

func (r *NftRepository) write(ctx context.Context, doc *docstore.Document, token *models.NftToken) (bool, error) {
	err := r.store.Update(ctx, nftCollection, doc.Key, encodeNft(token), doc.Revision)
	if errors.Is(err, docstore.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update nft: %w", err)
	}
	return true, nil
}

func (r *NftRepository) findOne(ctx context.Context, q docstore.Query) (*docstore.Document, error) {
	q.Limit = 1
	docs, err := r.store.Find(ctx, nftCollection, q)
	if err != nil {
		return nil, fmt.Errorf("find nft: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (r *NftRepository) find(ctx context.Context, q docstore.Query) ([]models.NftToken, error) {
	docs, err := r.store.Find(ctx, nftCollection, q)
	if err != nil {
		return nil, fmt.Errorf("list nfts: %w", err)
	}
	tokens := make([]models.NftToken, 0, len(docs))
	for i := range docs {
		token, err := decodeNft(&docs[i])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}
	return tokens, nil
}

func encodeNft(t *models.NftToken) docstore.Fields {
	return docstore.Fields{
		"schemaVersion":  int64(models.SchemaVersion),
		"tokenId":        t.TokenID,
		"nftAddress":     t.NftAddress.String(),
		"addressPending": t.NftAddress.Pending,
		"ownerAddress":   t.OwnerAddress,
		"promoCodeId":    t.PromoCodeID,
		"productName":    t.ProductName,
		"status":         t.Status.String(),
		"mintedAt":       t.MintedAt.UTC(),
		"redeemedAt":     timeOrNil(t.RedeemedAt),
		"mintTxHash":     t.MintTxHash,
		"redeemTxHash":   t.RedeemTxHash,
	}
}

func decodeNft(doc *docstore.Document) (*models.NftToken, error) {
	if err := checkSchema(doc); err != nil {
		return nil, err
	}
	f := doc.Fields
	status, err := models.ParseNftStatus(f.String("status"))
	if err != nil {
		return nil, corrupt(doc.Key, err)
	}
	return &models.NftToken{
		TokenID:      f.String("tokenId"),
		NftAddress:   models.ParseNftAddress(f.String("nftAddress")),
		OwnerAddress: f.String("ownerAddress"),
		PromoCodeID:  f.String("promoCodeId"),
		ProductName:  f.String("productName"),
		Status:       status,
		MintedAt:     f.Time("mintedAt"),
		RedeemedAt:   f.TimePtr("redeemedAt"),
		MintTxHash:   f.String("mintTxHash"),
		RedeemTxHash: f.String("redeemTxHash"),
	}, nil
}

package admin

import (
	"time"

	"github.com/digkill/TGPromoNFTBot/internal/models"
)

type promoRequest struct {
	Code        string `json:"code"`
	ProductName string `json:"product_name"`
	Description string `json:"description"`
}

type resolveRequest struct {
	Address string `json:"address"`
}

type broadcastRequest struct {
	Text        string `json:"text"`
	Audience    string `json:"audience"`
	AdminChatID int64  `json:"admin_chat_id"`
}

type promoResponse struct {
	Code        string     `json:"code"`
	ProductName string     `json:"product_name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	NftAddress  string     `json:"nft_address,omitempty"`
	UserID      int64      `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

func newPromoResponse(p *models.PromoCode) promoResponse {
	return promoResponse{
		Code:        p.Code,
		ProductName: p.ProductName,
		Description: p.ProductDescription,
		Status:      p.Status.String(),
		NftAddress:  p.NftAddress.String(),
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
		ActivatedAt: p.ActivatedAt,
		UsedAt:      p.UsedAt,
	}
}

type nftResponse struct {
	TokenID        string     `json:"token_id"`
	NftAddress     string     `json:"nft_address"`
	AddressPending bool       `json:"address_pending"`
	OwnerAddress   string     `json:"owner_address"`
	PromoCode      string     `json:"promo_code"`
	ProductName    string     `json:"product_name"`
	Status         string     `json:"status"`
	MintedAt       time.Time  `json:"minted_at"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty"`
	MintTxHash     string     `json:"mint_tx_hash,omitempty"`
}

func newNftResponse(t *models.NftToken) nftResponse {
	return nftResponse{
		TokenID:        t.TokenID,
		NftAddress:     t.NftAddress.Value,
		AddressPending: t.NftAddress.Pending,
		OwnerAddress:   t.OwnerAddress,
		PromoCode:      t.PromoCodeID,
		ProductName:    t.ProductName,
		Status:         t.Status.String(),
		MintedAt:       t.MintedAt,
		RedeemedAt:     t.RedeemedAt,
		MintTxHash:     t.MintTxHash,
	}
}

type broadcastResponse struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Audience  string     `json:"audience"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Delivered int        `json:"delivered"`
	Blocked   int        `json:"blocked"`
	Failed    int        `json:"failed"`
}

func newBroadcastResponse(m *models.BroadcastMessage) broadcastResponse {
	return broadcastResponse{
		ID:        m.MessageID,
		Text:      m.Text,
		Audience:  m.TargetAudience.String(),
		Status:    m.Status.String(),
		CreatedAt: m.CreatedAt,
		SentAt:    m.SentAt,
		Delivered: m.DeliveredCount,
		Blocked:   m.BlockedCount,
		Failed:    m.FailedCount,
	}
}

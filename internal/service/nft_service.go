package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/storage"
	"github.com/digkill/TGPromoNFTBot/internal/validation"
)

var (
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoAlreadyUsed = errors.New("promo code already used")
	ErrAlreadyMinted    = errors.New("nft already minted for promo code")
	ErrChainSubmission  = errors.New("mint submission failed")
	ErrMintInterrupted  = errors.New("mint interrupted after submission")
)

// collectionPlaceholder is the value shipped in sample configs.
const collectionPlaceholder = "адрес_NFT_коллекции"

const (
	opMint = 1

	modeOnChain   = "onchain"
	modeSimulated = "simulated"
	modeResumed   = "resumed"
)

var (
	storageDeposit = tlb.MustFromTON("0.05")
	// mintAmount covers the storage deposit plus 0.05 TON for forwarding.
	mintAmount = tlb.MustFromTON("0.1")
)

type WalletSigner interface {
	SendTransfer(ctx context.Context, destination string, amount tlb.Coins, body *cell.Cell) (string, error)
}

type MetadataUploader interface {
	UploadMetadata(ctx context.Context, meta storage.Metadata) (string, error)
}

type NftConfig struct {
	CollectionAddress string
	SimulationDelay   time.Duration
}

type MintResult struct {
	NftAddress models.NftAddress
	TxHash     string
	Simulated  bool
}

type NftService struct {
	cfg      NftConfig
	log      *slog.Logger
	signer   WalletSigner
	uploader MetadataUploader
	nfts     *repository.NftRepository
	promos   *repository.PromoRepository
	metrics  *metrics.Metrics
	locks    *keyedMutex
	now      func() time.Time
}

// NewNftService builds the minter. uploader may be nil, in which case the
// product name is stored on-chain as the item content.
func NewNftService(cfg NftConfig, log *slog.Logger, signer WalletSigner, uploader MetadataUploader, nfts *repository.NftRepository, promos *repository.PromoRepository, m *metrics.Metrics) *NftService {
	return &NftService{
		cfg:      cfg,
		log:      log,
		signer:   signer,
		uploader: uploader,
		nfts:     nfts,
		promos:   promos,
		metrics:  m,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func (s *NftService) onChain() bool {
	addr := strings.TrimSpace(s.cfg.CollectionAddress)
	return addr != "" && !strings.Contains(addr, collectionPlaceholder)
}

// Mint issues the collectible for code to ownerAddress and records it.
func (s *NftService) Mint(ctx context.Context, code, ownerAddress string) (*MintResult, error) {
	code = validation.NormalizeCode(code)
	unlock := s.locks.Lock(code)
	defer unlock()

	s.log.Info("minting nft", "code", code, "owner", ownerAddress)

	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get promo: %w", err)
	}
	if promo == nil {
		return nil, ErrPromoNotFound
	}
	if promo.Status == models.PromoStatusUsed {
		return nil, ErrPromoAlreadyUsed
	}
	existing, err := s.nfts.GetByPromoCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check existing nft: %w", err)
	}
	if existing != nil {
		if promo.Status != models.PromoStatusActivated {
			return nil, ErrAlreadyMinted
		}
		return s.completeBinding(ctx, promo, existing), nil
	}

	var result *MintResult
	mode := modeSimulated
	if s.onChain() {
		mode = modeOnChain
		result, err = s.mintOnChain(ctx, promo)
	} else {
		result, err = s.simulate(ctx)
	}
	if err != nil {
		s.metrics.Mint(mode, "error")
		return nil, err
	}

	token := &models.NftToken{
		TokenID:      uuid.NewString(),
		NftAddress:   result.NftAddress,
		OwnerAddress: ownerAddress,
		PromoCodeID:  code,
		ProductName:  promo.ProductName,
		MintTxHash:   result.TxHash,
	}
	if ctx.Err() != nil {
		// The message is already out. Recording the token lets a retry bind
		// it instead of submitting a second mint.
		s.metrics.Mint(mode, "interrupted")
		if err := s.nfts.Create(context.WithoutCancel(ctx), token); err != nil {
			s.log.Error("record interrupted mint", "code", code, "tx", result.TxHash, "err", err)
		}
		s.log.Warn("mint submitted but request cancelled, promo left activated", "code", code, "tx", result.TxHash)
		return nil, fmt.Errorf("%w: tx %s", ErrMintInterrupted, result.TxHash)
	}
	if err := s.nfts.Create(ctx, token); err != nil {
		s.metrics.Mint(mode, "error")
		return nil, err
	}
	s.markUsed(ctx, promo, result.NftAddress)

	s.metrics.Mint(mode, "ok")
	s.log.Info("nft minted", "code", code, "address", result.NftAddress.String(), "tx", result.TxHash, "simulated", result.Simulated)
	return result, nil
}

// completeBinding finishes a mint whose token was recorded but whose promo
// was never marked used. Nothing is submitted to the chain.
func (s *NftService) completeBinding(ctx context.Context, promo *models.PromoCode, token *models.NftToken) *MintResult {
	s.log.Info("completing earlier mint", "code", promo.Code, "token", token.TokenID, "tx", token.MintTxHash)
	s.markUsed(ctx, promo, token.NftAddress)
	s.metrics.Mint(modeResumed, "ok")
	return &MintResult{
		NftAddress: token.NftAddress,
		TxHash:     token.MintTxHash,
		Simulated:  !token.NftAddress.Pending,
	}
}

// markUsed failures are logged only; the token record already exists.
func (s *NftService) markUsed(ctx context.Context, promo *models.PromoCode, addr models.NftAddress) {
	used, err := s.promos.MarkUsed(ctx, promo.Code, addr)
	s.metrics.PromoTransition("use", used)
	if err != nil {
		s.log.Error("mark promo used", "code", promo.Code, "err", err)
	} else if !used {
		s.log.Warn("promo not in activated state after mint", "code", promo.Code, "status", promo.Status.String())
	}
}

func (s *NftService) mintOnChain(ctx context.Context, promo *models.PromoCode) (*MintResult, error) {
	body := cell.BeginCell().
		MustStoreUInt(opMint, 32).
		MustStoreUInt(uint64(s.now().UnixNano()), 64).
		MustStoreUInt(0, 64).
		MustStoreBigCoins(storageDeposit.Nano()).
		MustStoreRef(s.itemContent(ctx, promo)).
		EndCell()

	txHash, err := s.signer.SendTransfer(ctx, strings.TrimSpace(s.cfg.CollectionAddress), mintAmount, body)
	if err != nil {
		s.metrics.WalletSubmission("error")
		s.log.Error("mint transfer failed", "code", promo.Code, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrChainSubmission, err)
	}
	s.metrics.WalletSubmission("ok")

	return &MintResult{
		NftAddress: models.PendingAddress(txHash),
		TxHash:     txHash,
	}, nil
}

// itemContent is the metadata URL when an uploader is configured, the
// product name otherwise.
func (s *NftService) itemContent(ctx context.Context, promo *models.PromoCode) *cell.Cell {
	content := promo.ProductName
	if s.uploader != nil {
		url, err := s.uploader.UploadMetadata(ctx, storage.Metadata{
			Name:        promo.ProductName,
			Description: promo.ProductDescription,
		})
		if err != nil {
			s.log.Warn("metadata upload failed, storing product name", "code", promo.Code, "err", err)
		} else {
			content = url
		}
	}
	return cell.BeginCell().MustStoreStringSnake(content).EndCell()
}

func (s *NftService) simulate(ctx context.Context) (*MintResult, error) {
	s.log.Warn("nft collection address not configured, simulating mint")
	if s.cfg.SimulationDelay > 0 {
		timer := time.NewTimer(s.cfg.SimulationDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("simulate mint: %w", ctx.Err())
		case <-timer.C:
		}
	}

	hash := make([]byte, 32)
	if _, err := rand.Read(hash); err != nil {
		return nil, fmt.Errorf("simulate mint: %w", err)
	}
	data := make([]byte, 32)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("simulate mint: %w", err)
	}
	return &MintResult{
		NftAddress: models.FinalAddress(address.NewAddress(0, 0, data).String()),
		TxHash:     hex.EncodeToString(hash),
		Simulated:  true,
	}, nil
}

func (s *NftService) RedeemToken(ctx context.Context, nftAddress, txHash string) (bool, error) {
	ok, err := s.nfts.Redeem(ctx, nftAddress, txHash)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("nft redeemed", "address", nftAddress)
	}
	return ok, nil
}

// CheckOwnership compares against the stored record only.
func (s *NftService) CheckOwnership(ctx context.Context, nftAddress, expectedOwner string) (bool, error) {
	token, err := s.nfts.GetByAddress(ctx, nftAddress)
	if err != nil {
		return false, err
	}
	return token != nil && token.OwnerAddress == expectedOwner, nil
}

func (s *NftService) UserTokens(ctx context.Context, ownerAddress string) ([]models.NftToken, error) {
	return s.nfts.GetByOwner(ctx, ownerAddress)
}

// ResolveAddress binds the collection-assigned address to a pending token
// and to the promo code that produced it.
func (s *NftService) ResolveAddress(ctx context.Context, tokenID, nftAddress string) (bool, error) {
	token, err := s.nfts.GetByTokenID(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if token == nil || !token.NftAddress.Pending {
		return false, nil
	}
	ok, err := s.nfts.ResolveAddress(ctx, tokenID, nftAddress)
	if err != nil || !ok {
		return ok, err
	}
	if _, err := s.promos.RebindAddress(ctx, token.PromoCodeID, token.NftAddress, models.FinalAddress(nftAddress)); err != nil {
		s.log.Error("rebind promo address", "code", token.PromoCodeID, "err", err)
	}
	s.log.Info("nft address resolved", "token", tokenID, "address", nftAddress)
	return true, nil
}

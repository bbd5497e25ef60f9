package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/storage"
)

type fixture struct {
	store      *docstore.MemoryStore
	promos     *repository.PromoRepository
	nfts       *repository.NftRepository
	users      *repository.UserRepository
	broadcasts *repository.BroadcastRepository
	userSvc    *UserService
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	users := repository.NewUserRepository(store)
	return &fixture{
		store:      store,
		promos:     repository.NewPromoRepository(store),
		nfts:       repository.NewNftRepository(store),
		users:      users,
		broadcasts: repository.NewBroadcastRepository(store),
		userSvc:    NewUserService(users),
		metrics:    metrics.New(),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) nftService(cfg NftConfig, signer WalletSigner, uploader MetadataUploader) *NftService {
	return NewNftService(cfg, f.log, signer, uploader, f.nfts, f.promos, f.metrics)
}

type transfer struct {
	destination string
	amount      tlb.Coins
	body        *cell.Cell
}

type fakeSigner struct {
	mu        sync.Mutex
	err       error
	hash      string
	transfers []transfer
	onSend    func()
}

func (s *fakeSigner) SendTransfer(_ context.Context, destination string, amount tlb.Coins, body *cell.Cell) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onSend != nil {
		s.onSend()
	}
	if s.err != nil {
		return "", s.err
	}
	s.transfers = append(s.transfers, transfer{destination: destination, amount: amount, body: body})
	return s.hash, nil
}

type fakeUploader struct {
	url  string
	err  error
	meta []storage.Metadata
}

func (u *fakeUploader) UploadMetadata(_ context.Context, meta storage.Metadata) (string, error) {
	u.meta = append(u.meta, meta)
	return u.url, u.err
}

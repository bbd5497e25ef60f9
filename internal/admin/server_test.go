package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/service"
)

var resolvedAddress = "EQ" + strings.Repeat("b", 46)

type noopSigner struct{}

func (noopSigner) SendTransfer(context.Context, string, tlb.Coins, *cell.Cell) (string, error) {
	return "", nil
}

type stubWallet struct {
	configured bool
	balance    *big.Int
	err        error
}

func (w stubWallet) Configured() bool { return w.configured }

func (w stubWallet) Address() string { return "UQservice" }

func (w stubWallet) GetBalance(context.Context, string) (*big.Int, error) { return w.balance, w.err }

type recorder struct {
	mu   sync.Mutex
	sent map[int64]string
	// hold makes every send wait for cancellation.
	hold bool
}

func (r *recorder) SendText(ctx context.Context, chatID int64, text string) error {
	if r.hold {
		<-ctx.Done()
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[chatID] = text
	return nil
}

type testEnv struct {
	server *Server
	promos *repository.PromoRepository
	nfts   *repository.NftRepository
	users  *service.UserService
	client *recorder
}

func newTestEnv(t *testing.T, wallet Wallet) *testEnv {
	t.Helper()
	store := docstore.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	promos := repository.NewPromoRepository(store)
	nfts := repository.NewNftRepository(store)
	users := service.NewUserService(repository.NewUserRepository(store))
	nftSvc := service.NewNftService(service.NftConfig{}, log, noopSigner{}, nil, nfts, promos, m)
	client := &recorder{sent: map[int64]string{}}
	broadcasts := service.NewBroadcastService(log, repository.NewBroadcastRepository(store), users, client, nil, m)
	return &testEnv{
		server: NewServer(":0", "admin", "secret", log, service.NewPromoService(promos, nfts, users), nftSvc, broadcasts, wallet, m),
		promos: promos,
		nfts:   nfts,
		users:  users,
		client: client,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestBasicAuthRequired(t *testing.T) {
	e := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nftbot_pending_nft_addresses")
}

func TestPromoEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/promo-codes", `{"code":"plov2024","product_name":"Plov","description":"House plov"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[promoResponse](t, rec)
	assert.Equal(t, "PLOV2024", created.Code)
	assert.Equal(t, "New", created.Status)

	rec = e.do(t, http.MethodPost, "/promo-codes", `{"code":"x","product_name":"Plov"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/promo-codes", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/promo-codes/plov2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plov", decode[promoResponse](t, rec).ProductName)

	rec = e.do(t, http.MethodGet, "/promo-codes/MISSING1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/promo-codes/?status=New", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]promoResponse](t, rec), 1)

	rec = e.do(t, http.MethodGet, "/promo-codes/?status=Used", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]promoResponse](t, rec))

	rec = e.do(t, http.MethodGet, "/promo-codes/?status=Bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[service.Stats](t, rec)
	assert.Equal(t, 1, stats.Promos.Total)
	assert.Equal(t, 1, stats.Promos.New)
}

func TestResolvePendingAddress(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	_, err := e.promos.Create(ctx, "CHAIN001", "Plov", "")
	require.NoError(t, err)
	_, err = e.promos.Activate(ctx, "CHAIN001", 7)
	require.NoError(t, err)
	_, err = e.promos.MarkUsed(ctx, "CHAIN001", models.PendingAddress("abc123"))
	require.NoError(t, err)
	require.NoError(t, e.nfts.Create(ctx, &models.NftToken{
		TokenID:     "tok-1",
		NftAddress:  models.PendingAddress("abc123"),
		PromoCodeID: "CHAIN001",
		ProductName: "Plov",
		MintTxHash:  "abc123",
	}))

	rec := e.do(t, http.MethodGet, "/nfts/?pending=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]nftResponse](t, rec)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].AddressPending)

	rec = e.do(t, http.MethodPost, "/nfts/tok-1/address", `{"address":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/nfts/tok-1/address", `{"address":"`+resolvedAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/nfts/tok-1/address", `{"address":"`+resolvedAddress+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	token, err := e.nfts.GetByTokenID(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.FinalAddress(resolvedAddress), token.NftAddress)
	promo, err := e.promos.GetByCode(ctx, "CHAIN001")
	require.NoError(t, err)
	assert.Equal(t, models.FinalAddress(resolvedAddress), promo.NftAddress)

	rec = e.do(t, http.MethodGet, "/nfts/?status=Nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBroadcastEndpoints(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	_, err := e.users.Ensure(ctx, 100, "guest")
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/broadcasts", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/broadcasts", `{"text":"hello","audience":"Everyone"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/broadcasts", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[broadcastResponse](t, rec)
	assert.Equal(t, "All", created.Audience)
	assert.Equal(t, "Draft", created.Status)

	rec = e.do(t, http.MethodPost, "/broadcasts/"+created.ID+"/send", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	e.server.background.Wait()
	assert.Equal(t, "hello", e.client.sent[100])

	rec = e.do(t, http.MethodPost, "/broadcasts/"+created.ID+"/send", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/broadcasts/unknown/send", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/broadcasts/?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decode[[]broadcastResponse](t, rec)
	require.Len(t, recent, 1)
	assert.Equal(t, "Sent", recent[0].Status)
	assert.Equal(t, 1, recent[0].Delivered)

	rec = e.do(t, http.MethodGet, "/broadcasts/?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShutdownStopsBackgroundBroadcast(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	e.client.hold = true
	for id := int64(1); id <= 3; id++ {
		_, err := e.users.Ensure(ctx, id, "guest")
		require.NoError(t, err)
	}

	rec := e.do(t, http.MethodPost, "/broadcasts", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[broadcastResponse](t, rec)
	rec = e.do(t, http.MethodPost, "/broadcasts/"+created.ID+"/send", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- e.server.Run(runCtx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}

	rec = e.do(t, http.MethodGet, "/broadcasts/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decode[[]broadcastResponse](t, rec)
	require.Len(t, recent, 1)
	assert.Equal(t, "Sent", recent[0].Status)
	assert.Zero(t, recent[0].Delivered)
}

func TestWalletEndpoint(t *testing.T) {
	rec := newTestEnv(t, stubWallet{}).do(t, http.MethodGet, "/wallet", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = newTestEnv(t, stubWallet{configured: true, err: errors.New("node down")}).do(t, http.MethodGet, "/wallet", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = newTestEnv(t, stubWallet{configured: true, balance: big.NewInt(1_500_000_000)}).do(t, http.MethodGet, "/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "UQservice", body["address"])
	assert.Equal(t, "1500000000", body["balance_nano"])
}

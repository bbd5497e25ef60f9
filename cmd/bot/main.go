package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/digkill/TGPromoNFTBot/internal/admin"
	"github.com/digkill/TGPromoNFTBot/internal/config"
	"github.com/digkill/TGPromoNFTBot/internal/database"
	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
	"github.com/digkill/TGPromoNFTBot/internal/service"
	"github.com/digkill/TGPromoNFTBot/internal/session"
	"github.com/digkill/TGPromoNFTBot/internal/storage"
	"github.com/digkill/TGPromoNFTBot/internal/telegram"
	"github.com/digkill/TGPromoNFTBot/internal/ton"
	"github.com/digkill/TGPromoNFTBot/pkg/logger"
)

const sessionSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr, logFile := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logr)
	if err != nil {
		log.Fatalf("document store: %v", err)
	}
	defer store.Close()
	logr.Info("document store ready", "backend", cfg.StoreBackend)

	var (
		sessions    session.Store
		memorySweep *session.MemoryStore
	)
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis sessions: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		memorySweep = session.NewMemoryStore()
		sessions = memorySweep
	}

	endpoint := cfg.TonEndpoint
	if endpoint == "" {
		endpoint = ton.DefaultEndpoint(cfg.TonNetwork)
	}
	node := ton.NewToncenter(endpoint, cfg.TonAPIKey, cfg.RequestTimeout, logr)
	signer, err := ton.NewSigner(ton.SignerConfig{Mnemonic: cfg.TonMnemonic, Network: cfg.TonNetwork}, node, logr)
	if err != nil {
		log.Fatalf("ton wallet: %v", err)
	}

	var uploader service.MetadataUploader
	storageCfg := storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
	}
	if storageCfg.Enabled() {
		u, err := storage.NewUploader(storageCfg)
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = u
	}

	m := metrics.New()

	promoRepo := repository.NewPromoRepository(store)
	nftRepo := repository.NewNftRepository(store)
	userRepo := repository.NewUserRepository(store)
	broadcastRepo := repository.NewBroadcastRepository(store)

	userService := service.NewUserService(userRepo)
	nftService := service.NewNftService(service.NftConfig{
		CollectionAddress: cfg.NftCollectionAddress,
		SimulationDelay:   cfg.MintSimulationDelay,
	}, logr, signer, uploader, nftRepo, promoRepo, m)
	redemptionService := service.NewRedemptionService(logr, promoRepo, userService, nftService, m)
	promoService := service.NewPromoService(promoRepo, nftRepo, userService)
	if cfg.NftCollectionAddress != "" && !signer.Configured() {
		logr.Warn("collection address set without TON_BOT_MNEMONIC, on-chain mints will fail")
	}

	clientAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}
	clientMessenger := telegram.NewMessenger(clientAPI)

	var (
		adminAPI       *tgbotapi.BotAPI
		adminMessenger *telegram.APIMessenger
		adminSender    service.TextSender
	)
	if cfg.AdminBotToken != "" {
		adminAPI, err = tgbotapi.NewBotAPI(cfg.AdminBotToken)
		if err != nil {
			log.Fatalf("telegram admin bot: %v", err)
		}
		adminMessenger = telegram.NewMessenger(adminAPI)
		adminSender = adminMessenger
	}
	broadcastService := service.NewBroadcastService(logr, broadcastRepo, userService, clientMessenger, adminSender, m)

	bot := telegram.NewBot(telegram.BotConfig{
		CafeWalletAddress: cfg.CafeWalletAddress,
		MaxConcurrent:     cfg.MaxConcurrentUpdates,
	}, clientAPI, clientMessenger, logr, telegram.NewClientStates(sessions, cfg.SessionTTL), userService, redemptionService, nftService, signer)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, promoService, nftService, broadcastService, signer, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error { return adminServer.Run(gctx) })
	if adminAPI != nil {
		adminBot := telegram.NewAdminBot(telegram.AdminBotConfig{
			AdminIDs:      cfg.AdminChatIDs,
			MaxConcurrent: cfg.MaxConcurrentUpdates,
		}, adminAPI, adminMessenger, logr, telegram.NewAdminStates(sessions, cfg.SessionTTL), promoService, broadcastService)
		g.Go(func() error { return adminBot.Run(gctx) })
	}
	if cfg.NftMonitorEnabled {
		monitor := service.NewPendingMonitor(logr, nftRepo, m, cfg.NftMonitorInterval)
		g.Go(func() error { return monitor.Run(gctx) })
	}
	if memorySweep != nil {
		g.Go(func() error { return memorySweep.Run(gctx, sessionSweepInterval) })
	}

	if err := g.Wait(); err != nil {
		logr.Error("bot stopped", "err", err)
		return
	}
	logr.Info("bot stopped")
}

func openStore(ctx context.Context, cfg config.Config, logr *slog.Logger) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		fs, err := docstore.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsPath)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.BackendMySQL:
		db, err := database.Connect(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return docstore.NewMySQLStore(db), nil
	case config.BackendMemory:
		logr.Warn("using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

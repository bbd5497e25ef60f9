package ton

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var (
	ErrWalletNotConfigured = errors.New("wallet not configured")
	// ErrTransferNotApplied means the message expired before the wallet
	// seqno moved past it. Nothing was executed.
	ErrTransferNotApplied = errors.New("transfer not applied before expiry")
)

const (
	messageTTL = 3 * time.Minute
	seqnoPoll  = 2 * time.Second
	// sendMode 1 pays transfer fees separately from the attached value.
	sendMode = 1
)

type SignerConfig struct {
	Mnemonic string
	Network  string
}

// Signer owns the service wallet. Transfers are serialized and each one
// holds the wallet until the chain has applied it, so every message is
// signed with the seqno the contract currently expects.
type Signer struct {
	node    Node
	network string
	log     *slog.Logger
	now     func() time.Time
	poll    time.Duration

	key       ed25519.PrivateKey
	addr      *address.Address
	subwallet uint32
	stateInit *cell.Cell

	mu sync.Mutex
	// inFlight is set when the caller gave up waiting on a submitted
	// message; the next transfer finishes that wait first.
	inFlight       bool
	lastSeqno      uint32
	lastValidUntil time.Time
}

// NewSigner derives a v4r2 wallet from the mnemonic. An empty mnemonic
// yields an inert signer.
func NewSigner(cfg SignerConfig, node Node, log *slog.Logger) (*Signer, error) {
	s := &Signer{
		node:      node,
		network:   cfg.Network,
		log:       log,
		now:       time.Now,
		poll:      seqnoPoll,
		subwallet: wallet.DefaultSubwallet,
	}

	words := strings.Fields(cfg.Mnemonic)
	if len(words) == 0 {
		log.Warn("bot mnemonic not provided, wallet features unavailable")
		return s, nil
	}

	w, err := wallet.FromSeed(nil, words, wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("derive wallet: %w", err)
	}
	s.key = w.PrivateKey()
	s.addr = w.WalletAddress()

	si, err := wallet.GetStateInit(s.key.Public().(ed25519.PublicKey), wallet.V4R2, s.subwallet)
	if err != nil {
		return nil, fmt.Errorf("wallet state init: %w", err)
	}
	s.stateInit = cell.BeginCell().
		MustStoreBoolBit(false).
		MustStoreBoolBit(false).
		MustStoreBoolBit(true).MustStoreRef(si.Code).
		MustStoreBoolBit(true).MustStoreRef(si.Data).
		MustStoreBoolBit(false).
		EndCell()

	log.Info("ton wallet initialized", "network", cfg.Network, "address", s.addr.String())
	return s, nil
}

func (s *Signer) Configured() bool {
	return s.key != nil
}

// Address is the service wallet address, empty when inert.
func (s *Signer) Address() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

func (s *Signer) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	if !s.Configured() {
		return nil, ErrWalletNotConfigured
	}
	balance, err := s.node.GetBalance(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// SendTransfer signs and submits one internal message from the service
// wallet, then waits until the wallet seqno moves past it. The returned hash
// identifies the external message. If ctx ends during that wait the hash is
// still returned: the message is out and may yet be applied.
func (s *Signer) SendTransfer(ctx context.Context, destination string, amount tlb.Coins, body *cell.Cell) (string, error) {
	if !s.Configured() {
		return "", ErrWalletNotConfigured
	}
	dst, err := address.ParseAddr(destination)
	if err != nil {
		return "", fmt.Errorf("parse destination: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		err := s.awaitApplied(ctx, s.lastSeqno, s.lastValidUntil)
		switch {
		case errors.Is(err, ErrTransferNotApplied):
			s.log.Warn("previous wallet transfer expired unapplied", "seqno", s.lastSeqno)
		case err != nil:
			return "", fmt.Errorf("await previous transfer: %w", err)
		}
		s.inFlight = false
	}

	seqno, err := s.node.GetSeqno(ctx, s.addr.String())
	if err != nil {
		return "", fmt.Errorf("get seqno: %w", err)
	}
	validUntil := s.now().Add(messageTTL)

	ext := s.externalMessage(seqno, validUntil, internalMessage(dst, amount, body))
	if err := s.node.SendBoc(ctx, ext.ToBOC()); err != nil {
		return "", fmt.Errorf("send boc: %w", err)
	}

	hash := hex.EncodeToString(ext.Hash())
	s.log.Info("wallet transfer submitted", "seqno", seqno, "destination", dst.String(), "hash", hash)

	err = s.awaitApplied(ctx, seqno, validUntil)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, ErrTransferNotApplied):
		return "", err
	default:
		s.inFlight = true
		s.lastSeqno = seqno
		s.lastValidUntil = validUntil
		s.log.Warn("stopped waiting for wallet transfer", "seqno", seqno, "hash", hash, "error", err)
		return hash, nil
	}
}

// awaitApplied polls the wallet until its seqno passes seqno or validUntil
// is reached. Poll failures are retried; only ctx ends the wait early.
func (s *Signer) awaitApplied(ctx context.Context, seqno uint32, validUntil time.Time) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		current, err := s.node.GetSeqno(ctx, s.addr.String())
		if err == nil && current > seqno {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("poll wallet seqno", "error", err)
		}
		if !s.now().Before(validUntil) {
			return fmt.Errorf("%w: seqno %d", ErrTransferNotApplied, seqno)
		}
		timer.Reset(s.poll)
	}
}

// internalMessage builds int_msg_info with bounce set and zeroed fees; the
// validator fills in source, lt and timestamps.
func internalMessage(dst *address.Address, amount tlb.Coins, body *cell.Cell) *cell.Cell {
	b := cell.BeginCell().
		MustStoreUInt(0, 1).
		MustStoreBoolBit(true).
		MustStoreBoolBit(true).
		MustStoreBoolBit(false).
		MustStoreUInt(0, 2).
		MustStoreAddr(dst).
		MustStoreBigCoins(amount.Nano()).
		MustStoreBoolBit(false).
		MustStoreCoins(0).
		MustStoreCoins(0).
		MustStoreUInt(0, 64).
		MustStoreUInt(0, 32).
		MustStoreBoolBit(false)
	if body == nil {
		return b.MustStoreBoolBit(false).EndCell()
	}
	return b.MustStoreBoolBit(true).MustStoreRef(body).EndCell()
}

func (s *Signer) externalMessage(seqno uint32, validUntil time.Time, msg *cell.Cell) *cell.Cell {
	order := s.storeOrder(cell.BeginCell(), seqno, validUntil, msg).EndCell()
	signature := ed25519.Sign(s.key, order.Hash())
	body := s.storeOrder(cell.BeginCell().MustStoreSlice(signature, 512), seqno, validUntil, msg).EndCell()

	ext := cell.BeginCell().
		MustStoreUInt(0b10, 2).
		MustStoreUInt(0, 2).
		MustStoreAddr(s.addr).
		MustStoreCoins(0)
	if seqno == 0 {
		ext.MustStoreBoolBit(true).MustStoreBoolBit(true).MustStoreRef(s.stateInit)
	} else {
		ext.MustStoreBoolBit(false)
	}
	return ext.MustStoreBoolBit(true).MustStoreRef(body).EndCell()
}

// storeOrder writes a v4 wallet order: op 0 (simple send) with one message.
func (s *Signer) storeOrder(b *cell.Builder, seqno uint32, validUntil time.Time, msg *cell.Cell) *cell.Builder {
	return b.
		MustStoreUInt(uint64(s.subwallet), 32).
		MustStoreUInt(uint64(validUntil.Unix()), 32).
		MustStoreUInt(uint64(seqno), 32).
		MustStoreUInt(0, 8).
		MustStoreUInt(sendMode, 8).
		MustStoreRef(msg)
}

func (s *Signer) ExplorerURL(txHash string) string {
	return s.explorerBase() + "transaction/" + txHash
}

func (s *Signer) NftExplorerURL(nftAddress string) string {
	return s.explorerBase() + nftAddress
}

func (s *Signer) explorerBase() string {
	if s.network == "mainnet" {
		return "https://tonviewer.com/"
	}
	return "https://testnet.tonviewer.com/"
}

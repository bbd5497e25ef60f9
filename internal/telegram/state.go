package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/session"
)

var errUnknownState = errors.New("unknown session state")

// ClientState is the customer's position in the redemption dialog.
type ClientState interface {
	clientState()
}

type ClientStart struct{}

type WaitingForPromo struct{}

// WaitingForWallet carries the activated code until a wallet arrives.
type WaitingForWallet struct {
	Code string
}

func (ClientStart) clientState()      {}
func (WaitingForPromo) clientState()  {}
func (WaitingForWallet) clientState() {}

// AdminState is an admin's position in the admin dialog.
type AdminState interface {
	adminState()
}

type AdminMenu struct{}

type CreatingPromo struct{}

type BroadcastText struct {
	Audience models.Audience
}

func (AdminMenu) adminState()     {}
func (CreatingPromo) adminState() {}
func (BroadcastText) adminState() {}

type stateRecord struct {
	Kind     string `json:"kind"`
	Code     string `json:"code,omitempty"`
	Audience string `json:"audience,omitempty"`
}

type stateStore struct {
	store  session.Store
	prefix string
	ttl    time.Duration
}

func (s stateStore) key(chatID int64) string {
	return s.prefix + strconv.FormatInt(chatID, 10)
}

func (s stateStore) load(ctx context.Context, chatID int64) (*stateRecord, error) {
	raw, err := s.store.Get(ctx, s.key(chatID))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var rec stateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (s stateStore) save(ctx context.Context, chatID int64, rec stateRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Set(ctx, s.key(chatID), raw, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

type ClientStates struct {
	stateStore
}

func NewClientStates(store session.Store, ttl time.Duration) *ClientStates {
	return &ClientStates{stateStore{store: store, prefix: "client:", ttl: ttl}}
}

// Get returns ClientStart for a chat without a live session.
func (c *ClientStates) Get(ctx context.Context, chatID int64) (ClientState, error) {
	rec, err := c.load(ctx, chatID)
	if err != nil || rec == nil {
		return ClientStart{}, err
	}
	switch rec.Kind {
	case "start":
		return ClientStart{}, nil
	case "waiting_for_promo":
		return WaitingForPromo{}, nil
	case "waiting_for_wallet":
		return WaitingForWallet{Code: rec.Code}, nil
	default:
		return ClientStart{}, fmt.Errorf("%w: %q", errUnknownState, rec.Kind)
	}
}

func (c *ClientStates) Set(ctx context.Context, chatID int64, state ClientState) error {
	var rec stateRecord
	switch st := state.(type) {
	case ClientStart:
		rec.Kind = "start"
	case WaitingForPromo:
		rec.Kind = "waiting_for_promo"
	case WaitingForWallet:
		rec.Kind = "waiting_for_wallet"
		rec.Code = st.Code
	default:
		return fmt.Errorf("%w: %T", errUnknownState, state)
	}
	return c.save(ctx, chatID, rec)
}

type AdminStates struct {
	stateStore
}

func NewAdminStates(store session.Store, ttl time.Duration) *AdminStates {
	return &AdminStates{stateStore{store: store, prefix: "admin:", ttl: ttl}}
}

// Get returns nil for an admin without a live session.
func (a *AdminStates) Get(ctx context.Context, chatID int64) (AdminState, error) {
	rec, err := a.load(ctx, chatID)
	if err != nil || rec == nil {
		return nil, err
	}
	switch rec.Kind {
	case "menu":
		return AdminMenu{}, nil
	case "creating_promo":
		return CreatingPromo{}, nil
	case "broadcast_text":
		audience, err := models.ParseAudience(rec.Audience)
		if err != nil {
			return nil, err
		}
		return BroadcastText{Audience: audience}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownState, rec.Kind)
	}
}

func (a *AdminStates) Set(ctx context.Context, chatID int64, state AdminState) error {
	var rec stateRecord
	switch st := state.(type) {
	case AdminMenu:
		rec.Kind = "menu"
	case CreatingPromo:
		rec.Kind = "creating_promo"
	case BroadcastText:
		rec.Kind = "broadcast_text"
		rec.Audience = st.Audience.String()
	default:
		return fmt.Errorf("%w: %T", errUnknownState, state)
	}
	return a.save(ctx, chatID, rec)
}

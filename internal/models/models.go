package models

import (
	"strings"
	"time"
)

// SchemaVersion is written into every persisted record.
const SchemaVersion = 1

const pendingAddressPrefix = "pending_"

type PromoCode struct {
	Code               string
	ProductName        string
	ProductDescription string
	Status             PromoStatus
	NftAddress         NftAddress
	CreatedAt          time.Time
	ActivatedAt        *time.Time
	UsedAt             *time.Time
	UserID             int64
	OrderID            string
}

type NftToken struct {
	TokenID      string
	NftAddress   NftAddress
	OwnerAddress string
	PromoCodeID  string
	ProductName  string
	Status       NftStatus
	MintedAt     time.Time
	RedeemedAt   *time.Time
	MintTxHash   string
	RedeemTxHash string
}

type UserProfile struct {
	ChatID        int64
	Username      string
	WalletAddress string
	UserType      UserType
	CreatedAt     time.Time
	LastActivity  time.Time
	IsBlocked     bool
	Language      string
}

func (u *UserProfile) IsVIP() bool {
	return u != nil && u.UserType == UserTypeVIP
}

type BroadcastMessage struct {
	MessageID        string
	Text             string
	TargetAudience   Audience
	Status           BroadcastStatus
	CreatedAt        time.Time
	SentAt           *time.Time
	DeliveredCount   int
	BlockedCount     int
	FailedCount      int
	CreatedByAdminID int64
}

// NftAddress is a token address that is either final or still waiting for
// the collection to assign one. A pending address carries the hash of the
// mint message instead.
type NftAddress struct {
	Value   string
	Pending bool
}

func FinalAddress(addr string) NftAddress {
	return NftAddress{Value: addr}
}

func PendingAddress(txHash string) NftAddress {
	return NftAddress{Value: txHash, Pending: true}
}

// ParseNftAddress reverses String.
func ParseNftAddress(s string) NftAddress {
	if strings.HasPrefix(s, pendingAddressPrefix) {
		return PendingAddress(strings.TrimPrefix(s, pendingAddressPrefix))
	}
	return FinalAddress(s)
}

func (a NftAddress) String() string {
	if a.Pending {
		return pendingAddressPrefix + a.Value
	}
	return a.Value
}

func (a NftAddress) IsZero() bool {
	return a.Value == ""
}

package models

import (
	"errors"
	"fmt"
)

// ErrUnknownValue is returned when a persisted enum value has no mapping.
var ErrUnknownValue = errors.New("unknown enum value")

type PromoStatus int

const (
	PromoStatusNew PromoStatus = iota + 1
	PromoStatusActivated
	PromoStatusUsed
)

var promoStatusNames = map[PromoStatus]string{
	PromoStatusNew:       "New",
	PromoStatusActivated: "Activated",
	PromoStatusUsed:      "Used",
}

func (s PromoStatus) String() string {
	if name, ok := promoStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PromoStatus(%d)", int(s))
}

func ParsePromoStatus(v string) (PromoStatus, error) {
	for status, name := range promoStatusNames {
		if name == v {
			return status, nil
		}
	}
	return 0, fmt.Errorf("promo status %q: %w", v, ErrUnknownValue)
}

type NftStatus int

const (
	NftStatusMinted NftStatus = iota + 1
	NftStatusActive
	NftStatusRedeemed
)

var nftStatusNames = map[NftStatus]string{
	NftStatusMinted:   "Minted",
	NftStatusActive:   "Active",
	NftStatusRedeemed: "Redeemed",
}

func (s NftStatus) String() string {
	if name, ok := nftStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("NftStatus(%d)", int(s))
}

func ParseNftStatus(v string) (NftStatus, error) {
	for status, name := range nftStatusNames {
		if name == v {
			return status, nil
		}
	}
	return 0, fmt.Errorf("nft status %q: %w", v, ErrUnknownValue)
}

// Redeemable reports whether a token in this status may still be redeemed.
func (s NftStatus) Redeemable() bool {
	return s == NftStatusMinted || s == NftStatusActive
}

type UserType int

const (
	UserTypeRegular UserType = iota + 1
	UserTypeVIP
)

func (t UserType) String() string {
	switch t {
	case UserTypeRegular:
		return "Regular"
	case UserTypeVIP:
		return "VIP"
	default:
		return fmt.Sprintf("UserType(%d)", int(t))
	}
}

func ParseUserType(v string) (UserType, error) {
	switch v {
	case "Regular":
		return UserTypeRegular, nil
	case "VIP":
		return UserTypeVIP, nil
	default:
		return 0, fmt.Errorf("user type %q: %w", v, ErrUnknownValue)
	}
}

type Audience int

const (
	AudienceAll Audience = iota + 1
	AudienceRegular
	AudienceVIP
)

func (a Audience) String() string {
	switch a {
	case AudienceAll:
		return "All"
	case AudienceRegular:
		return "Regular"
	case AudienceVIP:
		return "VIP"
	default:
		return fmt.Sprintf("Audience(%d)", int(a))
	}
}

func ParseAudience(v string) (Audience, error) {
	switch v {
	case "All":
		return AudienceAll, nil
	case "Regular":
		return AudienceRegular, nil
	case "VIP":
		return AudienceVIP, nil
	default:
		return 0, fmt.Errorf("audience %q: %w", v, ErrUnknownValue)
	}
}

type BroadcastStatus int

const (
	BroadcastStatusDraft BroadcastStatus = iota + 1
	BroadcastStatusTesting
	BroadcastStatusSent
)

func (s BroadcastStatus) String() string {
	switch s {
	case BroadcastStatusDraft:
		return "Draft"
	case BroadcastStatusTesting:
		return "Testing"
	case BroadcastStatusSent:
		return "Sent"
	default:
		return fmt.Sprintf("BroadcastStatus(%d)", int(s))
	}
}

func ParseBroadcastStatus(v string) (BroadcastStatus, error) {
	switch v {
	case "Draft":
		return BroadcastStatusDraft, nil
	case "Testing":
		return BroadcastStatusTesting, nil
	case "Sent":
		return BroadcastStatusSent, nil
	default:
		return 0, fmt.Errorf("broadcast status %q: %w", v, ErrUnknownValue)
	}
}

package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/models"
)

const userCollection = "users"

type UserRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) GetByID(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	doc, err := r.store.Get(ctx, userCollection, userKey(chatID))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeUser(doc)
}

// GetOrCreate returns the profile for chatID, creating a Regular one on
// first contact. An existing profile gets its username refreshed.
func (r *UserRepository) GetOrCreate(ctx context.Context, chatID int64, username string) (*models.UserProfile, error) {
	user, err := r.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		ts := now()
		user = &models.UserProfile{
			ChatID:       chatID,
			Username:     username,
			UserType:     models.UserTypeRegular,
			CreatedAt:    ts,
			LastActivity: ts,
			Language:     "ru",
		}
		if err := r.store.Set(ctx, userCollection, userKey(chatID), encodeUser(user)); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return user, nil
	}
	if username != "" && user.Username != username {
		user.Username = username
		if err := r.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Update overwrites the profile and stamps LastActivity.
func (r *UserRepository) Update(ctx context.Context, user *models.UserProfile) error {
	user.LastActivity = now()
	if err := r.store.Set(ctx, userCollection, userKey(user.ChatID), encodeUser(user)); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByType(ctx context.Context, userType models.UserType) ([]models.UserProfile, error) {
	return r.find(ctx, docstore.Where("userType", userType.String()))
}

// GetActive returns users that have not blocked the bot.
func (r *UserRepository) GetActive(ctx context.Context) ([]models.UserProfile, error) {
	return r.find(ctx, docstore.Where("isBlocked", false))
}

func (r *UserRepository) GetAll(ctx context.Context) ([]models.UserProfile, error) {
	return r.find(ctx, docstore.Query{})
}

func (r *UserRepository) find(ctx context.Context, q docstore.Query) ([]models.UserProfile, error) {
	docs, err := r.store.Find(ctx, userCollection, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.UserProfile, 0, len(docs))
	for i := range docs {
		user, err := decodeUser(&docs[i])
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func userKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func encodeUser(u *models.UserProfile) docstore.Fields {
	return docstore.Fields{
		"schemaVersion": int64(models.SchemaVersion),
		"chatId":        u.ChatID,
		"username":      u.Username,
		"walletAddress": u.WalletAddress,
		"userType":      u.UserType.String(),
		"createdAt":     u.CreatedAt.UTC(),
		"lastActivity":  u.LastActivity.UTC(),
		"isBlocked":     u.IsBlocked,
		"language":      u.Language,
	}
}

func decodeUser(doc *docstore.Document) (*models.UserProfile, error) {
	if err := checkSchema(doc); err != nil {
		return nil, err
	}
	f := doc.Fields
	userType, err := models.ParseUserType(f.String("userType"))
	if err != nil {
		return nil, corrupt(doc.Key, err)
	}
	return &models.UserProfile{
		ChatID:        f.Int64("chatId"),
		Username:      f.String("username"),
		WalletAddress: f.String("walletAddress"),
		UserType:      userType,
		CreatedAt:     f.Time("createdAt"),
		LastActivity:  f.Time("lastActivity"),
		IsBlocked:     f.Bool("isBlocked"),
		Language:      f.String("language"),
	}, nil
}

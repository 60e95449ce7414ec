package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/models"
)

const (
	bcryptCost = 12
	ResetTTL   = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrResetTokenInvalid  = errors.New("reset password token is invalid or has expired")
)

var DefaultAvatar = models.Image{
	PublicID: "default_avatar_public_id",
	URL:      "https://placehold.co/150x150/cccccc/ffffff?text=Avatar",
}

// withoutSecrets mirrors the stored document minus credential fields.
var withoutSecrets = bson.M{"password": 0, "resetPasswordToken": 0, "resetPasswordExpire": 0}

type UserRepository struct {
	Collection *mongo.Collection
}

func (m *UserRepository) Insert(ctx context.Context, name, email, password string, role auth.Role) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        normalizeEmail(email),
		PasswordHash: string(hashedPassword),
		Avatar:       DefaultAvatar,
		Role:         role,
		CreatedAt:    time.Now(),
	}

	_, err = m.Collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return nil, &models.DuplicateError{Field: "email"}
	}
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (m *UserRepository) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := m.Collection.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}

func (m *UserRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (m *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	opts := options.FindOne().SetProjection(withoutSecrets)
	if err := m.Collection.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNoRecord
		}
		return nil, err
	}
	return &user, nil
}

func (m *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	cur, err := m.Collection.Find(ctx, bson.M{}, options.Find().SetProjection(withoutSecrets))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []*models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserUpdate carries the fields a profile or admin edit may change.
type UserUpdate struct {
	Name  string
	Email string
	Role  auth.Role
}

func (m *UserRepository) Update(ctx context.Context, id primitive.ObjectID, u UserUpdate) error {
	set := bson.M{}
	if u.Name != "" {
		set["name"] = u.Name
	}
	if u.Email != "" {
		set["email"] = normalizeEmail(u.Email)
	}
	if u.Role != "" {
		set["role"] = u.Role
	}
	if len(set) == 0 {
		return nil
	}

	res, err := m.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return &models.DuplicateError{Field: "email"}
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNoRecord
	}
	return nil
}

func (m *UserRepository) ChangePassword(ctx context.Context, id primitive.ObjectID, oldPassword, newPassword string) (*models.User, error) {
	var user models.User
	if err := m.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNoRecord
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return nil, ErrWrongPassword
	}
	if err := m.setPassword(ctx, bson.M{"_id": id}, newPassword); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}

func (m *UserRepository) setPassword(ctx context.Context, filter bson.M, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	res, err := m.Collection.UpdateOne(ctx, filter, bson.M{
		"$set":   bson.M{"password": string(hashed)},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNoRecord
	}
	return nil
}

// CreateResetToken stores the hash of a fresh reset token on the user and
// returns the raw token, which is only ever sent to the user.
func (m *UserRepository) CreateResetToken(ctx context.Context, email string, now time.Time) (string, *models.User, error) {
	user, err := m.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	token := NewResetToken()
	expire := now.Add(ResetTTL)
	_, err = m.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"resetPasswordToken":  HashResetToken(token),
		"resetPasswordExpire": expire,
	}})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (m *UserRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
	return err
}

// ResetPassword consumes token. The token and its expiry are removed in the
// same write that sets the new password, so a token works once.
func (m *UserRepository) ResetPassword(ctx context.Context, token, password string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"resetPasswordToken":  HashResetToken(token),
		"resetPasswordExpire": bson.M{"$gt": now},
	}

	user, err := m.findOne(ctx, filter)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	err = m.setPassword(ctx, filter, password)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ClearExpiredResetTokens drops reset tokens whose TTL has passed.
func (m *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := m.Collection.UpdateMany(ctx,
		bson.M{"resetPasswordExpire": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (m *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNoRecord
	}
	return nil
}

func NewResetToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

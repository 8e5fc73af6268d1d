package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

const AccountsCollection = "accounts"

type tokenDoc struct {
	Digest    string    `bson:"digest"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type accountDoc struct {
	ID                    bson.ObjectID `bson:"_id"`
	Username              string        `bson:"username"`
	Email                 string        `bson:"email"`
	PasswordHash          string        `bson:"password_hash"`
	Role                  string        `bson:"role"`
	Phone                 string        `bson:"phone,omitempty"`
	IsActivated           bool          `bson:"is_activated"`
	Activation            *tokenDoc     `bson:"activation,omitempty"`
	Reset                 *tokenDoc     `bson:"reset,omitempty"`
	EmailRetryCount       int           `bson:"email_retry_count"`
	ResendWindowStartedAt *time.Time    `bson:"resend_window_started_at,omitempty"`
	ResetAttemptCount     int           `bson:"reset_attempt_count"`
	CreatedAt             time.Time     `bson:"created_at"`
	UpdatedAt             time.Time     `bson:"updated_at"`
}

// AccountRepository stores one document per account. Keys are stored normalized
// so the unique indexes on username and email are case-insensitive.
type AccountRepository struct {
	coll *mongo.Collection
	Now  func() time.Time
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(AccountsCollection), Now: time.Now}
}

// EnsureIndexes creates the unique identity indexes and the digest lookup indexes.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("accounts_username_key")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("accounts_email_key")},
		{
			Keys: bson.D{{Key: "activation.digest", Value: 1}},
			Options: options.Index().SetName("accounts_activation_digest_idx").
				SetPartialFilterExpression(bson.D{{Key: "activation", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys: bson.D{{Key: "reset.digest", Value: 1}},
			Options: options.Index().SetName("accounts_reset_digest_idx").
				SetPartialFilterExpression(bson.D{{Key: "reset", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	})
	return err
}

func (r *AccountRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*entity.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: entity.NormalizeIdentity(email)}},
		bson.D{{Key: "username", Value: entity.NormalizeIdentity(username)}},
	}}})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: entity.NormalizeIdentity(email)}})
}

func (r *AccountRepository) FindByActivationDigest(ctx context.Context, digest string) (*entity.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "activation.digest", Value: digest}})
}

func (r *AccountRepository) FindByResetDigest(ctx context.Context, digest string) (*entity.Account, error) {
	return r.findOne(ctx, bson.D{{Key: "reset.digest", Value: digest}})
}

func (r *AccountRepository) Insert(ctx context.Context, a *entity.Account) error {
	now := r.Now().UTC()
	doc := toDoc(a)
	doc.ID = bson.NewObjectID()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapWriteError(err)
	}
	*a = *fromDoc(doc)
	return nil
}

func (r *AccountRepository) Save(ctx context.Context, a *entity.Account) error {
	id, err := bson.ObjectIDFromHex(a.ID)
	if err != nil {
		return repository.ErrNotFound
	}
	doc := toDoc(a)
	doc.ID = id
	doc.UpdatedAt = r.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	a.Email, a.Username, a.UpdatedAt = doc.Email, doc.Username, doc.UpdatedAt
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.D) (*entity.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return fromDoc(&doc), nil
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

func toDoc(a *entity.Account) *accountDoc {
	doc := &accountDoc{
		Username:              entity.NormalizeIdentity(a.Username),
		Email:                 entity.NormalizeIdentity(a.Email),
		PasswordHash:          a.PasswordDigest,
		Role:                  string(a.Role),
		Phone:                 a.Phone,
		IsActivated:           a.IsActivated,
		EmailRetryCount:       a.EmailRetryCount,
		ResendWindowStartedAt: a.ResendWindowStartedAt,
		ResetAttemptCount:     a.ResetAttemptCount,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
	if a.Activation != nil {
		doc.Activation = &tokenDoc{Digest: a.Activation.Digest, ExpiresAt: a.Activation.ExpiresAt}
	}
	if a.Reset != nil {
		doc.Reset = &tokenDoc{Digest: a.Reset.Digest, ExpiresAt: a.Reset.ExpiresAt}
	}
	return doc
}

func fromDoc(doc *accountDoc) *entity.Account {
	a := &entity.Account{
		ID:                    doc.ID.Hex(),
		Username:              doc.Username,
		Email:                 doc.Email,
		PasswordDigest:        doc.PasswordHash,
		Role:                  entity.Role(doc.Role),
		Phone:                 doc.Phone,
		IsActivated:           doc.IsActivated,
		EmailRetryCount:       doc.EmailRetryCount,
		ResendWindowStartedAt: doc.ResendWindowStartedAt,
		ResetAttemptCount:     doc.ResetAttemptCount,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}
	if doc.Activation != nil {
		a.Activation = &entity.PendingToken{Digest: doc.Activation.Digest, ExpiresAt: doc.Activation.ExpiresAt}
	}
	if doc.Reset != nil {
		a.Reset = &entity.PendingToken{Digest: doc.Reset.Digest, ExpiresAt: doc.Reset.ExpiresAt}
	}
	return a
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/finaidhub/hub/internal/core/domain"
)

const collectionIdentities = "identities"

type IdentityRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		col: db.Collection(collectionIdentities),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type identityDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Username     string             `bson:"username"`
	DisplayName  string             `bson:"display_name,omitempty"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Status       string             `bson:"status"`
	InvitedBy    string             `bson:"invited_by,omitempty"`
	LastLoginAt  *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func fromIdentity(i *domain.Identity) identityDoc {
	return identityDoc{
		Email:        strings.ToLower(i.Email),
		Username:     i.Username,
		DisplayName:  i.DisplayName,
		PasswordHash: i.PasswordHash,
		Role:         string(i.Role),
		Status:       string(i.Status),
		InvitedBy:    i.InvitedBy,
		LastLoginAt:  i.LastLoginAt,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

func (d identityDoc) toIdentity() *domain.Identity {
	return &domain.Identity{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Username:     d.Username,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		Status:       domain.Status(d.Status),
		InvitedBy:    d.InvitedBy,
		LastLoginAt:  d.LastLoginAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Create inserts a new identity. Username and email are unique.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromIdentity(identity)

	// The unique indexes cover each field on its own, not a username that
	// equals another identity's email.
	n, err := r.col.CountDocuments(ctx, collisionFilter(doc.Username, doc.Email), options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("check identity collision: %w", err)
	}
	if n > 0 {
		return nil, domain.ErrUserExists
	}

	now := r.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert identity: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toIdentity(), nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *IdentityRepository) FindByLogin(ctx context.Context, login string) (*domain.Identity, error) {
	return r.findOne(ctx, loginFilter(login))
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toIdentity(), nil
}

// List returns one page of identities matching filter plus the total match count.
func (r *IdentityRepository) List(ctx context.Context, filter domain.IdentityFilter) ([]*domain.Identity, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := listFilter(filter)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer cur.Close(ctx)

	var docs []identityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode identities: %w", err)
	}

	items := make([]*domain.Identity, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toIdentity())
	}
	return items, total, nil
}

func (r *IdentityRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	return r.updateFields(ctx, id, bson.M{"status": string(status)})
}

func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateFields(ctx, id, bson.M{"password_hash": passwordHash})
}

// RecordLogin stamps last_login_at and flips invited to active in one
// pipeline update, so a concurrent status change is never overwritten.
func (r *IdentityRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "last_login_at", Value: at},
			{Key: "updated_at", Value: r.now()},
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$status", string(domain.StatusInvited)}}},
				string(domain.StatusActive),
				"$status",
			}}}},
		}}},
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *IdentityRepository) updateFields(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fields["updated_at"] = r.now()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the unique login indexes and the listing indexes.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// loginFilter matches emails when login contains "@" and usernames otherwise,
// so a login string resolves to at most one identity.
func loginFilter(login string) bson.M {
	login = strings.TrimSpace(login)
	if domain.IsEmailLogin(login) {
		return bson.M{"email": strings.ToLower(login)}
	}
	return bson.M{"username": login}
}

func collisionFilter(username, email string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
		bson.M{"email": strings.ToLower(username)},
		bson.M{"username": email},
	}}
}

func listFilter(f domain.IdentityFilter) bson.M {
	query := bson.M{}
	if f.Role != "" {
		query["role"] = string(f.Role)
	}
	if f.Status != "" {
		query["status"] = string(f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"username": re},
			bson.M{"email": re},
			bson.M{"display_name": re},
		}
	}
	return query
}

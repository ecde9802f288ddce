package account

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostgresRepository stores teachers in the teachers table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t Teacher) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teachers (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, t.ID, t.Email, t.PasswordHash, t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepository) ByEmail(ctx context.Context, email string) (Teacher, error) {
	return r.one(ctx, `SELECT id, email, password_hash, created_at FROM teachers WHERE email = $1`, email)
}

func (r *PostgresRepository) ByID(ctx context.Context, id string) (Teacher, error) {
	return r.one(ctx, `SELECT id, email, password_hash, created_at FROM teachers WHERE id = $1`, id)
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (Teacher, error) {
	var t Teacher
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.Email, &t.PasswordHash, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrNotFound
	}
	return t, err
}

type teacherDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// MongoRepository stores teachers in the teachers collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository binds the repo to a database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("teachers")}
}

// EnsureIndexes makes email unique.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Wrap(err, "teachers index")
}

func (r *MongoRepository) Create(ctx context.Context, t Teacher) error {
	_, err := r.coll.InsertOne(ctx, teacherDoc{
		ID:           t.ID,
		Email:        t.Email,
		PasswordHash: t.PasswordHash,
		CreatedAt:    t.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *MongoRepository) ByEmail(ctx context.Context, email string) (Teacher, error) {
	return r.one(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoRepository) ByID(ctx context.Context, id string) (Teacher, error) {
	return r.one(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoRepository) one(ctx context.Context, filter bson.D) (Teacher, error) {
	var d teacherDoc
	err := r.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, err
	}
	return Teacher{ID: d.ID, Email: d.Email, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt.UTC()}, nil
}

// MemoryRepository keeps teachers in a map.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]Teacher
}

// NewMemoryRepository creates an empty repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]Teacher)}
}

func (r *MemoryRepository) Create(ctx context.Context, t Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == t.Email {
			return ErrEmailTaken
		}
	}
	r.byID[t.ID] = t
	return nil
}

func (r *MemoryRepository) ByEmail(ctx context.Context, email string) (Teacher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.byID {
		if t.Email == email {
			return t, nil
		}
	}
	return Teacher{}, ErrNotFound
}

func (r *MemoryRepository) ByID(ctx context.Context, id string) (Teacher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return Teacher{}, ErrNotFound
	}
	return t, nil
}

package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rollbook/internal/calendar"
)

const (
	studentsCollection   = "students"
	attendanceCollection = "attendances"
)

type studentDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Enrollment string             `bson:"enrollment"`
	Name       string             `bson:"name"`
}

type recordDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Enrollment string             `bson:"enrollment"`
	Name       string             `bson:"name"`
	Date       time.Time          `bson:"date"`
	Status     string             `bson:"status"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d recordDoc) record() Record {
	return Record{Enrollment: d.Enrollment, Name: d.Name, Date: calendar.Day(d.Date.UTC()), Status: Status(d.Status)}
}

// MongoStore keeps students and attendances in MongoDB collections.
type MongoStore struct {
	db       *mongo.Database
	students *mongo.Collection
	records  *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore binds the store to a database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:       db,
		students: db.Collection(studentsCollection),
		records:  db.Collection(attendanceCollection),
	}
}

// EnsureIndexes creates the uniqueness constraints on enrollment and (enrollment, date).
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := m.students.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "enrollment", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "students index")
	}
	_, err := m.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "enrollment", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "status", Value: 1}}},
	})
	return errors.Wrap(err, "attendances index")
}

func (m *MongoStore) Students(ctx context.Context) ([]Student, error) {
	cur, err := m.students.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "enrollment", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []studentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Student, 0, len(docs))
	for _, d := range docs {
		out = append(out, Student{Enrollment: d.Enrollment, Name: d.Name})
	}
	return out, nil
}

func (m *MongoStore) Student(ctx context.Context, enrollment string) (Student, error) {
	var d studentDoc
	err := m.students.FindOne(ctx, bson.D{{Key: "enrollment", Value: enrollment}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Student{}, ErrStudentNotFound
	}
	if err != nil {
		return Student{}, err
	}
	return Student{Enrollment: d.Enrollment, Name: d.Name}, nil
}

func (m *MongoStore) CreateStudent(ctx context.Context, s Student) error {
	_, err := m.students.InsertOne(ctx, studentDoc{Enrollment: s.Enrollment, Name: s.Name})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateStudent
	}
	return err
}

func (m *MongoStore) PresentBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	return m.find(ctx, bson.D{
		{Key: "date", Value: bson.D{{Key: "$gte", Value: calendar.Day(from)}, {Key: "$lte", Value: calendar.Day(to)}}},
		{Key: "status", Value: string(Present)},
	})
}

func (m *MongoStore) RecordsOn(ctx context.Context, date time.Time) ([]Record, error) {
	return m.find(ctx, bson.D{{Key: "date", Value: calendar.Day(date)}})
}

func (m *MongoStore) find(ctx context.Context, filter bson.D) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "enrollment", Value: 1}})
	cur, err := m.records.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

// Mark upserts on (enrollment, date); the unique index rejects duplicates.
func (m *MongoStore) Mark(ctx context.Context, rec Record) error {
	filter := bson.D{
		{Key: "enrollment", Value: rec.Enrollment},
		{Key: "date", Value: calendar.Day(rec.Date)},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: rec.Name},
		{Key: "status", Value: string(rec.Status)},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	_, err := m.records.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

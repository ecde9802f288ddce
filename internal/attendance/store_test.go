package attendance

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/store"
)

// storeContract exercises the behaviour every Store backend must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateStudent(ctx, Student{"E2", "Bob"}))
	require.NoError(t, s.CreateStudent(ctx, Student{"E1", "Alice"}))
	assert.ErrorIs(t, s.CreateStudent(ctx, Student{"E1", "Other"}), ErrDuplicateStudent)

	roster, err := s.Students(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Student{{"E1", "Alice"}, {"E2", "Bob"}}, roster)

	_, err = s.Student(ctx, "E404")
	assert.ErrorIs(t, err, ErrStudentNotFound)

	mark := func(enrollment, date string, st Status) {
		require.NoError(t, s.Mark(ctx, Record{Enrollment: enrollment, Name: "n", Date: day(date), Status: st}))
	}
	mark("E1", "2025-04-01", Present)
	mark("E1", "2025-04-01", Present)
	mark("E2", "2025-04-01", Present)
	mark("E2", "2025-04-01", Absent)
	mark("E1", "2025-04-02", Present)
	mark("E1", "2025-05-01", Present)

	recs, err := s.RecordsOn(ctx, day("2025-04-01"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "E1", recs[0].Enrollment)
	assert.Equal(t, Present, recs[0].Status)
	assert.Equal(t, "E2", recs[1].Enrollment)
	assert.Equal(t, Absent, recs[1].Status)

	pres, err := s.PresentBetween(ctx, day("2025-04-01"), day("2025-04-30"))
	require.NoError(t, err)
	require.Len(t, pres, 2)
	for _, r := range pres {
		assert.Equal(t, "E1", r.Enrollment)
		assert.Equal(t, Present, r.Status)
		assert.Equal(t, time.UTC, r.Date.Location())
	}
	assert.Equal(t, day("2025-04-01"), pres[0].Date)
	assert.Equal(t, day("2025-04-02"), pres[1].Date)

	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestPostgresStoreContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.Client.ExecContext(ctx, `TRUNCATE attendance, students`)
	require.NoError(t, err)

	storeContract(t, NewRepository(db.Client))
}

func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	m, err := store.NewMongo(ctx, uri, fmt.Sprintf("rollbook_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	defer func() {
		_ = m.Database.Drop(ctx)
		_ = m.Close(ctx)
	}()

	s := NewMongoStore(m.Database)
	require.NoError(t, s.EnsureIndexes(ctx))
	storeContract(t, s)
}

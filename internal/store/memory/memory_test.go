package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/clinic-api/internal/model"
	"github.com/medrec/clinic-api/internal/store"
)

func TestInsertAndFindOne(t *testing.T) {
	coll := New().Collection(store.CollPatients)
	ctx := context.Background()

	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": "a", "socialId": "1234567890"}))

	doc, err := coll.FindOne(ctx, model.Document{"_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "1234567890", doc["socialId"])

	_, err = coll.FindOne(ctx, model.Document{"_id": "missing"})
	assert.ErrorIs(t, err, store.ErrNoDocuments)
}

func TestUniqueConstraint(t *testing.T) {
	coll := New().Collection(store.CollPatients)
	ctx := context.Background()

	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": "a", "socialId": "1234567890"}))
	err := coll.InsertOne(ctx, model.Document{"_id": "b", "socialId": "1234567890"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// Updating another doc onto the taken value fails the same way.
	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": "c", "socialId": "0987654321"}))
	err = coll.UpdateOne(ctx, model.Document{"_id": "c"}, model.Document{"socialId": "1234567890"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestFindSortSkipLimit(t *testing.T) {
	coll := New().Collection(store.CollVisits)
	ctx := context.Background()
	for i, at := range []int64{30, 10, 20, 40} {
		require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": i, "visitedAt": at}))
	}

	docs, err := coll.Find(ctx, model.Document{}, store.FindOptions{
		SortField: "visitedAt", Ascending: true, Skip: 1, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.EqualValues(t, 20, docs[0]["visitedAt"])
	assert.EqualValues(t, 30, docs[1]["visitedAt"])
}

func TestFindRangeFilter(t *testing.T) {
	coll := New().Collection(store.CollVisits)
	ctx := context.Background()
	for i, at := range []int64{100, 200, 300} {
		require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": i, "visitedAt": at}))
	}

	docs, err := coll.Find(ctx, model.Document{
		"visitedAt": store.Range{From: 150, To: 300},
	}, store.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestNumericWidthsMatchLoosely(t *testing.T) {
	// JSON decoding turns stored ints into float64; filters must still
	// hit.
	coll := New().Collection(store.CollVisits)
	ctx := context.Background()
	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": "v", "visitedAt": float64(42)}))

	_, err := coll.FindOne(ctx, model.Document{"visitedAt": int64(42)})
	assert.NoError(t, err)
}

func TestUpdateOne(t *testing.T) {
	coll := New().Collection(store.CollPatients)
	ctx := context.Background()
	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": "a", "firstName": "Jane"}))

	require.NoError(t, coll.UpdateOne(ctx, model.Document{"_id": "a"}, model.Document{"firstName": "Janet"}))

	doc, err := coll.FindOne(ctx, model.Document{"_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "Janet", doc["firstName"])

	err = coll.UpdateOne(ctx, model.Document{"_id": "missing"}, model.Document{"firstName": "x"})
	assert.ErrorIs(t, err, store.ErrNoDocuments)
}

func TestFindOneReturnsCopy(t *testing.T) {
	coll := New().Collection(store.CollPatients)
	ctx := context.Background()
	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": "a", "firstName": "Jane"}))

	doc, err := coll.FindOne(ctx, model.Document{"_id": "a"})
	require.NoError(t, err)
	doc["firstName"] = "mutated"

	again, err := coll.FindOne(ctx, model.Document{"_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", again["firstName"])
}

func TestDeleteManyAndCount(t *testing.T) {
	coll := New().Collection(store.CollVisits)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": i, "patientId": "p1"}))
	}
	require.NoError(t, coll.InsertOne(ctx, model.Document{"_id": 9, "patientId": "p2"}))

	removed, err := coll.DeleteMany(ctx, model.Document{"patientId": "p1"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	n, err := coll.EstimatedCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	blobs := New().Blobs()
	ctx := context.Background()

	n, err := blobs.Put(ctx, "b1", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	size, err := blobs.Size(ctx, "b1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	r, err := blobs.Get(ctx, "b1")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, blobs.Delete(ctx, "b1"))
	_, err = blobs.Get(ctx, "b1")
	assert.ErrorIs(t, err, store.ErrNoDocuments)
}

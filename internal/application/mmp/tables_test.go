package mmp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/tableio"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// memStore is an in-memory minio.TableStore.
type memStore struct {
	objects map[minio.ObjectRef]*table.Table
	formats map[minio.ObjectRef]tableio.Format
}

func newMemStore() *memStore {
	return &memStore{objects: map[minio.ObjectRef]*table.Table{}, formats: map[minio.ObjectRef]tableio.Format{}}
}

func (m *memStore) PutTable(ctx context.Context, ref minio.ObjectRef, t *table.Table, f tableio.Format) (*minio.UploadResult, error) {
	m.objects[ref], m.formats[ref] = t, f
	return &minio.UploadResult{Ref: ref, ContentType: f.ContentType()}, nil
}

func (m *memStore) GetTable(ctx context.Context, ref minio.ObjectRef, opts ...tableio.ReadOption) (*table.Table, error) {
	t, ok := m.objects[ref]
	if !ok {
		return nil, errors.NotFound("object not found")
	}
	return t, nil
}

func (m *memStore) Exists(ctx context.Context, ref minio.ObjectRef) (bool, error) {
	_, ok := m.objects[ref]
	return ok, nil
}

func (m *memStore) Delete(ctx context.Context, ref minio.ObjectRef) error {
	delete(m.objects, ref)
	return nil
}

func (m *memStore) List(ctx context.Context, bucket, prefix string) ([]minio.ObjectInfo, error) {
	return nil, nil
}

func (m *memStore) PresignedURL(ctx context.Context, ref minio.ObjectRef, expiry time.Duration) (string, error) {
	return "https://example.invalid/" + ref.Key, nil
}

func (m *memStore) RunRef(runID, name string, f tableio.Format) minio.ObjectRef {
	return minio.ObjectRef{Bucket: "mmp-tables", Key: "runs/" + runID + "/" + name + "." + string(f)}
}

func TestTableRepository_LocalRoundTrip(t *testing.T) {
	repo := NewTableRepository(nil, "", nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pairs.csv")

	require.NoError(t, repo.Save(ctx, path, halogenTable(t)))
	back, err := repo.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())
	assert.Equal(t, []string{"Smiles", "ID", "pIC50"}, back.ColumnNames())
	assert.Empty(t, repo.RunLocation("r", "pairs"))
}

func TestTableRepository_ObjectStorageDisabled(t *testing.T) {
	repo := NewTableRepository(nil, tableio.FormatCSV, nil)
	ctx := context.Background()

	_, err := repo.Load(ctx, "minio://b/k.csv")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	assert.True(t, errors.IsCode(repo.Save(ctx, "minio://b/k.csv", halogenTable(t)), errors.ErrCodeBadRequest))

	_, err = repo.Load(ctx, "")
	assert.True(t, errors.IsValidation(err))
}

func TestTableRepository_ObjectStore(t *testing.T) {
	store := newMemStore()
	repo := NewTableRepository(store, tableio.FormatJSON, nil)
	ctx := context.Background()

	loc := repo.RunLocation("r1", "network")
	assert.Equal(t, "minio://mmp-tables/runs/r1/network.json", loc)

	require.NoError(t, repo.Save(ctx, loc, halogenTable(t)))
	ref := minio.ObjectRef{Bucket: "mmp-tables", Key: "runs/r1/network.json"}
	assert.Equal(t, tableio.FormatJSON, store.formats[ref])

	back, err := repo.Load(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())

	_, err = repo.Load(ctx, "minio://mmp-tables/none.csv")
	assert.True(t, errors.IsNotFound(err))

	_, err = repo.Load(ctx, "minio://bucket-only")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

//Personal.AI order the ending

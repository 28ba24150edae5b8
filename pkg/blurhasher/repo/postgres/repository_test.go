package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
	repopg "github.com/tendant/simple-blurhash/pkg/blurhasher/repo/postgres"
)

const testDatabaseURLEnv = "BLURHASH_TEST_DATABASE_URL"

const hostSchema = `
CREATE TABLE directus_files (
	id uuid PRIMARY KEY,
	storage varchar(255),
	filename_disk varchar(255),
	type varchar(255),
	width integer,
	height integer
);
CREATE TABLE directus_fields (
	id serial PRIMARY KEY,
	collection varchar(64) NOT NULL,
	field varchar(64) NOT NULL,
	special varchar(64),
	interface varchar(64),
	options json,
	readonly boolean NOT NULL DEFAULT false,
	hidden boolean NOT NULL DEFAULT false,
	width varchar(30),
	note text
);`

// newTestPool connects to a throwaway schema holding the host tables
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	databaseURL := os.Getenv(testDatabaseURLEnv)
	if databaseURL == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}

	ctx := context.Background()
	schema := "blurhash_test_" + uuid.NewString()[:8]

	admin, err := pgx.Connect(ctx, databaseURL)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(databaseURL)
	require.NoError(t, err)
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, hostSchema)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		_ = admin.Close(context.Background())
	})

	return pool
}

func insertFile(t *testing.T, pool *pgxpool.Pool, fileType string, width, height *int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO directus_files (id, storage, filename_disk, type, width, height) VALUES ($1, 'local', $2, $3, $4, $5)`,
		id, id+".png", fileType, width, height)
	require.NoError(t, err)
	return id
}

func intPtr(v int) *int { return &v }

func TestRepository_BootstrapAndWrite(t *testing.T) {
	pool := newTestPool(t)
	repo := repopg.NewWithPool(pool)
	ctx := context.Background()

	_, err := repo.ReadField(ctx, blurhasher.FilesCollection, blurhasher.FieldName)
	require.ErrorIs(t, err, blurhasher.ErrFieldNotFound)

	require.NoError(t, repo.CreateField(ctx, blurhasher.FilesCollection, blurhasher.BlurhashField()))
	// A second create is a no-op at the database level.
	require.NoError(t, repo.CreateField(ctx, blurhasher.FilesCollection, blurhasher.BlurhashField()))

	def, err := repo.ReadField(ctx, blurhasher.FilesCollection, blurhasher.FieldName)
	require.NoError(t, err)
	assert.Equal(t, "string", def.Type)
	assert.Equal(t, blurhasher.FieldMaxLength, def.Schema.MaxLength)
	assert.True(t, def.Schema.IsNullable)
	assert.Equal(t, "input", def.Meta.Interface)
	assert.True(t, def.Meta.Readonly)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM directus_fields WHERE collection = $1 AND field = $2",
		blurhasher.FilesCollection, blurhasher.FieldName).Scan(&count))
	assert.Equal(t, 1, count)

	id := insertFile(t, pool, "image/png", intPtr(800), intPtr(600))

	file, err := repo.ReadFile(ctx, id, blurhasher.EligibilityFields())
	require.NoError(t, err)
	assert.Equal(t, id, file.ID)
	assert.Equal(t, "image/png", file.Type)
	assert.Equal(t, 800, *file.Width)
	assert.Empty(t, file.Blurhash)

	require.NoError(t, repo.UpdateFile(ctx, id, blurhasher.FileUpdate{Blurhash: "LEHV6nWB2yk8pyo0adR*.7kCMdnj"}))

	file, err = repo.ReadFile(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "LEHV6nWB2yk8pyo0adR*.7kCMdnj", file.Blurhash)
	assert.Equal(t, id+".png", file.FilenameDisk)
	assert.Equal(t, "local", file.Storage)
}

func TestRepository_NullDimensions(t *testing.T) {
	pool := newTestPool(t)
	repo := repopg.NewWithPool(pool)
	ctx := context.Background()

	id := insertFile(t, pool, "image/svg+xml", nil, nil)

	file, err := repo.ReadFile(ctx, id, []string{"type", "width", "height"})
	require.NoError(t, err)
	assert.Nil(t, file.Width)
	assert.Nil(t, file.Height)
}

func TestRepository_NotFound(t *testing.T) {
	pool := newTestPool(t)
	repo := repopg.NewWithPool(pool)
	ctx := context.Background()
	require.NoError(t, repo.CreateField(ctx, blurhasher.FilesCollection, blurhasher.BlurhashField()))

	tests := []string{uuid.NewString(), "not-a-uuid"}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			_, err := repo.ReadFile(ctx, id, []string{"type"})
			assert.ErrorIs(t, err, blurhasher.ErrFileNotFound)

			err = repo.UpdateFile(ctx, id, blurhasher.FileUpdate{Blurhash: "x"})
			assert.ErrorIs(t, err, blurhasher.ErrFileNotFound)
		})
	}
}

func TestRepository_ListFileIDs(t *testing.T) {
	pool := newTestPool(t)
	repo := repopg.NewWithPool(pool)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		insertFile(t, pool, fmt.Sprintf("image/png;%d", i), intPtr(1), intPtr(1))
	}

	var all []string
	afterID := ""
	for {
		ids, err := repo.ListFileIDs(ctx, afterID, 2)
		require.NoError(t, err)
		if len(ids) == 0 {
			break
		}
		all = append(all, ids...)
		afterID = ids[len(ids)-1]
	}

	assert.Len(t, all, 5)
	assert.IsIncreasing(t, all)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

const fieldsTable = "directus_fields"

// DBTX is an interface that allows us to use either a connection pool or a single connection
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements blurhasher.FileService and blurhasher.FieldService
// on top of the host's Postgres schema
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02": // invalid_text_representation, e.g. a key that is not a uuid
			return blurhasher.ErrFileNotFound
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - host schema required")
		case "42703": // undefined_column
			return fmt.Errorf("column does not exist in %s: %s", operation, pgErr.Message)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// File operations

// fileColumns maps projection names to select expressions
var fileColumns = map[string]string{
	"type":          "type",
	"width":         "width",
	"height":        "height",
	"blurhash":      "blurhash",
	"storage":       "storage",
	"filename_disk": "filename_disk",
}

var allFileFields = []string{"type", "width", "height", "blurhash", "storage", "filename_disk"}

func (r *Repository) ReadFile(ctx context.Context, id string, fields []string) (*blurhasher.File, error) {
	if len(fields) == 0 {
		fields = allFileFields
	}

	var (
		file         blurhasher.File
		fileType     *string
		blurhash     *string
		storage      *string
		filenameDisk *string
	)

	columns := []string{"id::text"}
	dest := []interface{}{&file.ID}
	for _, field := range fields {
		column, ok := fileColumns[field]
		if !ok {
			continue
		}
		columns = append(columns, column)
		switch field {
		case "type":
			dest = append(dest, &fileType)
		case "width":
			dest = append(dest, &file.Width)
		case "height":
			dest = append(dest, &file.Height)
		case "blurhash":
			dest = append(dest, &blurhash)
		case "storage":
			dest = append(dest, &storage)
		case "filename_disk":
			dest = append(dest, &filenameDisk)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1",
		strings.Join(columns, ", "), pgx.Identifier{blurhasher.FilesCollection}.Sanitize())

	if err := r.db.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blurhasher.ErrFileNotFound
		}
		return nil, r.handlePostgresError("read file", err)
	}

	file.Type = deref(fileType)
	file.Blurhash = deref(blurhash)
	file.Storage = deref(storage)
	file.FilenameDisk = deref(filenameDisk)
	return &file, nil
}

func (r *Repository) UpdateFile(ctx context.Context, id string, update blurhasher.FileUpdate) error {
	query := fmt.Sprintf("UPDATE %s SET blurhash = $2 WHERE id = $1",
		pgx.Identifier{blurhasher.FilesCollection}.Sanitize())

	tag, err := r.db.Exec(ctx, query, id, update.Blurhash)
	if err != nil {
		return r.handlePostgresError("update file", err)
	}
	if tag.RowsAffected() == 0 {
		return blurhasher.ErrFileNotFound
	}
	return nil
}

// ListFileIDs returns up to limit ids ordered after afterID
func (r *Repository) ListFileIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id::text FROM %s
		WHERE id::text > $1
		ORDER BY id::text
		LIMIT $2`, pgx.Identifier{blurhasher.FilesCollection}.Sanitize())

	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, r.handlePostgresError("list files", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, r.handlePostgresError("list files", err)
	}
	return ids, nil
}

// Field operations

// ReadField resolves a field from the table columns, then attaches display
// metadata when the host registered any.
func (r *Repository) ReadField(ctx context.Context, collection, field string) (*blurhasher.FieldDefinition, error) {
	def := blurhasher.FieldDefinition{Collection: collection, Field: field}

	var (
		maxLength  *int
		isNullable string
	)
	err := r.db.QueryRow(ctx, `
		SELECT data_type, character_maximum_length, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`,
		collection, field,
	).Scan(&def.Schema.DataType, &maxLength, &isNullable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blurhasher.ErrFieldNotFound
		}
		return nil, r.handlePostgresError("read field schema", err)
	}
	if maxLength != nil {
		def.Schema.MaxLength = *maxLength
	}
	def.Schema.IsNullable = isNullable == "YES"
	def.Type = typeFromDataType(def.Schema.DataType)

	var iface, note, width *string
	query := fmt.Sprintf(`
		SELECT interface, note, width, readonly, hidden
		FROM %s WHERE collection = $1 AND field = $2`, pgx.Identifier{fieldsTable}.Sanitize())
	err = r.db.QueryRow(ctx, query, collection, field).
		Scan(&iface, &note, &width, &def.Meta.Readonly, &def.Meta.Hidden)
	switch {
	case err == nil:
		def.Meta.Interface = deref(iface)
		def.Meta.Note = deref(note)
		def.Meta.Width = deref(width)
	case errors.Is(err, pgx.ErrNoRows):
		// schema-only field
	default:
		return nil, r.handlePostgresError("read field meta", err)
	}

	return &def, nil
}

// CreateField adds the column and its display metadata in one transaction
func (r *Repository) CreateField(ctx context.Context, collection string, def blurhasher.FieldDefinition) error {
	columnType, err := columnTypeFor(def)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("create field", err)
	}
	defer tx.Rollback(ctx)

	nullability := "NOT NULL"
	if def.Schema.IsNullable {
		nullability = "NULL"
	}
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s %s",
		pgx.Identifier{collection}.Sanitize(), pgx.Identifier{def.Field}.Sanitize(), columnType, nullability)
	if _, err := tx.Exec(ctx, alter); err != nil {
		return r.handlePostgresError("add column", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %[1]s (collection, field, interface, note, width, readonly, hidden)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (SELECT 1 FROM %[1]s WHERE collection = $1 AND field = $2)`,
		pgx.Identifier{fieldsTable}.Sanitize())
	if _, err := tx.Exec(ctx, insert,
		collection, def.Field, nullIfEmpty(def.Meta.Interface), nullIfEmpty(def.Meta.Note),
		nullIfEmpty(def.Meta.Width), def.Meta.Readonly, def.Meta.Hidden); err != nil {
		return r.handlePostgresError("insert field meta", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("create field", err)
	}
	return nil
}

func columnTypeFor(def blurhasher.FieldDefinition) (string, error) {
	switch def.Type {
	case "string":
		length := def.Schema.MaxLength
		if length <= 0 {
			length = 255
		}
		return fmt.Sprintf("varchar(%d)", length), nil
	case "text":
		return "text", nil
	case "integer":
		return "integer", nil
	default:
		return "", fmt.Errorf("unsupported field type: %s", def.Type)
	}
}

func typeFromDataType(dataType string) string {
	switch dataType {
	case "character varying", "character":
		return "string"
	case "text":
		return "text"
	case "integer", "smallint", "bigint":
		return "integer"
	default:
		return dataType
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
)

// Repository implements blurhasher.FileService and blurhasher.FieldService using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	files  map[string]*blurhasher.File
	fields map[string]*blurhasher.FieldDefinition // "collection.field" -> definition
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		files:  make(map[string]*blurhasher.File),
		fields: make(map[string]*blurhasher.FieldDefinition),
	}
}

// File operations

// CreateFile stores a file record. An empty ID is replaced by a new UUID.
func (r *Repository) CreateFile(ctx context.Context, file *blurhasher.File) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fileCopy := copyFile(file)
	if fileCopy.ID == "" {
		fileCopy.ID = uuid.NewString()
	}
	if _, exists := r.files[fileCopy.ID]; exists {
		return "", fmt.Errorf("file %s already exists", fileCopy.ID)
	}

	r.files[fileCopy.ID] = fileCopy
	return fileCopy.ID, nil
}

// ReadFile returns a copy of the record restricted to the requested fields
func (r *Repository) ReadFile(ctx context.Context, id string, fields []string) (*blurhasher.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, exists := r.files[id]
	if !exists {
		return nil, blurhasher.ErrFileNotFound
	}

	return project(file, fields), nil
}

// UpdateFile writes the blurhash of an existing record
func (r *Repository) UpdateFile(ctx context.Context, id string, update blurhasher.FileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, exists := r.files[id]
	if !exists {
		return blurhasher.ErrFileNotFound
	}

	file.Blurhash = update.Blurhash
	return nil
}

// DeleteFile removes a record
func (r *Repository) DeleteFile(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[id]; !exists {
		return blurhasher.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

// ListFileIDs returns up to limit ids greater than afterID, in ascending order
func (r *Repository) ListFileIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.files))
	for id := range r.files {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Field operations

func (r *Repository) ReadField(ctx context.Context, collection, field string) (*blurhasher.FieldDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.fields[fieldKey(collection, field)]
	if !exists {
		return nil, blurhasher.ErrFieldNotFound
	}

	defCopy := *def
	return &defCopy, nil
}

func (r *Repository) CreateField(ctx context.Context, collection string, def blurhasher.FieldDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fieldKey(collection, def.Field)
	if _, exists := r.fields[key]; exists {
		return fmt.Errorf("field %s already exists", key)
	}

	def.Collection = collection
	r.fields[key] = &def
	return nil
}

func fieldKey(collection, field string) string {
	return collection + "." + field
}

func copyFile(file *blurhasher.File) *blurhasher.File {
	fileCopy := *file
	if file.Width != nil {
		w := *file.Width
		fileCopy.Width = &w
	}
	if file.Height != nil {
		h := *file.Height
		fileCopy.Height = &h
	}
	return &fileCopy
}

func project(file *blurhasher.File, fields []string) *blurhasher.File {
	full := copyFile(file)
	if len(fields) == 0 {
		return full
	}

	out := &blurhasher.File{ID: full.ID}
	for _, field := range fields {
		switch field {
		case "type":
			out.Type = full.Type
		case "width":
			out.Width = full.Width
		case "height":
			out.Height = full.Height
		case "blurhash":
			out.Blurhash = full.Blurhash
		case "storage":
			out.Storage = full.Storage
		case "filename_disk":
			out.FilenameDisk = full.FilenameDisk
		}
	}
	return out
}

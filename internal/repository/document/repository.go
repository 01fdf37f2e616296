package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/clauselab/contraq/internal/db"
	"github.com/clauselab/contraq/internal/domain"
)

const (
	docKeyPrefix    = "contraq:doc:"
	fieldsKeyPrefix = "contraq:fields:"
)

// store is the consumer interface for document persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repository persists documents and their extracted fields as JSON values.
type Repository struct {
	store store
}

func New(s store) *Repository {
	return &Repository{store: s}
}

// SaveDocument stores a document, replacing any previous version.
func (r *Repository) SaveDocument(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	if err := r.store.Set(ctx, docKey(doc.ID), data); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument loads a document by id.
func (r *Repository) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	data, err := r.store.Get(ctx, docKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrDocumentNotFound
		}
		return domain.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return doc, nil
}

// DeleteDocument removes a document together with its cached fields.
func (r *Repository) DeleteDocument(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if err := r.store.Del(ctx, fieldsKey(id)); err != nil {
		return fmt.Errorf("delete fields %s: %w", id, err)
	}
	return nil
}

// ListDocumentIDs returns all stored document ids in lexicographic order.
// Ids embed the upload timestamp, so this is also chronological order.
func (r *Repository) ListDocumentIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, docKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, docKeyPrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveExtractedFields caches extracted fields for a document.
func (r *Repository) SaveExtractedFields(ctx context.Context, id string, fields domain.ExtractedFields) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields %s: %w", id, err)
	}
	if err := r.store.Set(ctx, fieldsKey(id), data); err != nil {
		return fmt.Errorf("save fields %s: %w", id, err)
	}
	return nil
}

// GetExtractedFields loads cached fields for a document.
func (r *Repository) GetExtractedFields(ctx context.Context, id string) (domain.ExtractedFields, error) {
	data, err := r.store.Get(ctx, fieldsKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ExtractedFields{}, domain.ErrFieldsNotFound
		}
		return domain.ExtractedFields{}, fmt.Errorf("get fields %s: %w", id, err)
	}

	var fields domain.ExtractedFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("unmarshal fields %s: %w", id, err)
	}
	return fields, nil
}

func docKey(id string) string    { return docKeyPrefix + id }
func fieldsKey(id string) string { return fieldsKeyPrefix + id }

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/document"
)

type documentRepository struct {
	db *documentTable
}

var _ document.Repository = (*documentRepository)(nil)

func NewDocumentRepository(db *DB) *documentRepository {
	return &documentRepository{db: db.document}
}

func (repo *documentRepository) CreateDocument(_ context.Context, doc document.Document, _ ...core.DBExecutor) (document.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	doc.ID = uuid.NewString()
	repo.db.table[doc.ID] = &doc
	return doc, nil
}

func (repo *documentRepository) GetDocument(_ context.Context, id, ownerID string, _ ...core.DBExecutor) (document.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if doc, ok := repo.db.table[id]; ok && doc.OwnerID == ownerID {
		return *doc, nil
	}
	return document.Document{}, document.ErrNotFound
}

func (repo *documentRepository) QueryDocumentsByOwner(
	_ context.Context, ownerID string, ordering []core.DBOrdering, _ ...core.DBExecutor,
) ([]document.Document, error) {
	repo.db.RLock()
	docs := make([]document.Document, 0, len(repo.db.table))
	for _, doc := range repo.db.table {
		if doc.OwnerID == ownerID {
			docs = append(docs, *doc)
		}
	}
	repo.db.RUnlock()

	sortDocuments(docs, ordering)
	return docs, nil
}

func sortDocuments(docs []document.Document, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	o := ordering[0]
	sort.SliceStable(docs, func(i, j int) bool {
		var less bool
		switch o.Field {
		case "title":
			less = docs[i].Title < docs[j].Title
		case "type":
			less = docs[i].Type < docs[j].Type
		default:
			less = docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		if o.Ascending {
			return less
		}
		return !less
	})
}

func (repo *documentRepository) UpdateDocument(_ context.Context, doc document.Document, _ ...core.DBExecutor) (document.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[doc.ID]
	if !ok || orig.OwnerID != doc.OwnerID {
		return document.Document{}, document.ErrNotFound
	}
	orig.Type = doc.Type
	orig.Title = doc.Title
	orig.Description = doc.Description
	orig.FilePath = doc.FilePath
	return *orig, nil
}

func (repo *documentRepository) DeleteDocument(_ context.Context, id, ownerID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if doc, ok := repo.db.table[id]; ok && doc.OwnerID == ownerID {
		delete(repo.db.table, id)
		return nil
	}
	return document.ErrNotFound
}

func (repo *documentRepository) DeleteDocumentsByOwner(_ context.Context, ownerID string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for id, doc := range repo.db.table {
		if doc.OwnerID == ownerID {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/profile"
)

var documentColumns = []string{
	"id", "owner_id", "kind", "type", "title", "description", "file_path", "created_at",
}

type dbDocument struct {
	ID          string       `db:"id"`
	OwnerID     string       `db:"owner_id"`
	Kind        profile.Kind `db:"kind"`
	Type        string       `db:"type"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	FilePath    string       `db:"file_path"`
	CreatedAt   time.Time    `db:"created_at"`
}

func (row dbDocument) toDocument() document.Document {
	return document.Document{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Kind:        row.Kind,
		Type:        row.Type,
		Title:       row.Title,
		Description: row.Description,
		FilePath:    row.FilePath,
		CreatedAt:   row.CreatedAt,
	}
}

type documentRepository struct {
	db core.DBExecutor
}

var _ document.Repository = (*documentRepository)(nil)

func NewDocumentRepository(db core.DBExecutor) *documentRepository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(ctx context.Context, doc document.Document, exec ...core.DBExecutor) (document.Document, error) {
	query, args, err := psql.Insert("document").
		Columns("owner_id", "kind", "type", "title", "description", "file_path", "created_at").
		Values(doc.OwnerID, doc.Kind, doc.Type, doc.Title, doc.Description, doc.FilePath, doc.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return document.Document{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &doc.ID, query, args...); err != nil {
		return document.Document{}, errors.Wrap(err, "creating document")
	}
	return doc, nil
}

func (repo *documentRepository) GetDocument(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (document.Document, error) {
	query, args, err := psql.Select(documentColumns...).
		From("document").
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return document.Document{}, errors.Wrap(err, "building query")
	}
	var row dbDocument
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		return document.Document{}, trapNoRowsErr(err, document.ErrNotFound)
	}
	return row.toDocument(), nil
}

func (repo *documentRepository) QueryDocumentsByOwner(
	ctx context.Context, ownerID string, ordering []core.DBOrdering, exec ...core.DBExecutor,
) ([]document.Document, error) {
	query, args, err := psql.Select(documentColumns...).
		From("document").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy(orderByClauses(ordering, "created_at DESC")...).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []dbDocument
	if err = sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}

	docs := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDocument())
	}
	return docs, nil
}

func (repo *documentRepository) UpdateDocument(ctx context.Context, doc document.Document, exec ...core.DBExecutor) (document.Document, error) {
	query, args, err := psql.Update("document").
		Set("type", doc.Type).
		Set("title", doc.Title).
		Set("description", doc.Description).
		Set("file_path", doc.FilePath).
		Where(sq.Eq{"id": doc.ID, "owner_id": doc.OwnerID}).
		Suffix("RETURNING " + columnList(documentColumns)).
		ToSql()
	if err != nil {
		return document.Document{}, errors.Wrap(err, "building query")
	}
	var row dbDocument
	if err = sqlx.GetContext(ctx, getExec(repo.db, exec), &row, query, args...); err != nil {
		return document.Document{}, trapNoRowsErr(err, document.ErrNotFound)
	}
	return row.toDocument(), nil
}

func (repo *documentRepository) DeleteDocument(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) error {
	query, args, err := psql.Delete("document").Where(sq.Eq{"id": id, "owner_id": ownerID}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deleting document")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (repo *documentRepository) DeleteDocumentsByOwner(ctx context.Context, ownerID string, exec ...core.DBExecutor) (int, error) {
	query, args, err := psql.Delete("document").Where(sq.Eq{"owner_id": ownerID}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := getExec(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting documents")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

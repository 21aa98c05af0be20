package document

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
)

type (
	ServiceInterface interface {
		Create(owner profile.Profile, nd NewDocument) (Document, error)
		Get(owner profile.Profile, id string) (Document, error)
		QueryByOwner(owner profile.Profile, ordering []core.DBOrdering) ([]Document, error)
		Update(owner profile.Profile, id string, ud UpdateDocument) (Document, error)
		Delete(owner profile.Profile, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(owner profile.Profile, nd NewDocument) (Document, error) {
	doc := Document{
		OwnerID:     owner.ID,
		Kind:        owner.Kind,
		Type:        nd.Type,
		Title:       nd.Title,
		Description: nd.Description,
		FilePath:    nd.FilePath,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateDocument(context.Background(), doc)
}

func (svc *service) Get(owner profile.Profile, id string) (Document, error) {
	return svc.repo.GetDocument(context.Background(), id, owner.ID)
}

func (svc *service) QueryByOwner(owner profile.Profile, ordering []core.DBOrdering) ([]Document, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryDocumentsByOwner(context.Background(), owner.ID, ordering)
}

func (svc *service) Update(owner profile.Profile, id string, ud UpdateDocument) (Document, error) {
	doc, err := svc.repo.GetDocument(context.Background(), id, owner.ID)
	if err != nil {
		return Document{}, err
	}
	doc.Type = ud.Type
	doc.Title = ud.Title
	doc.Description = ud.Description
	doc.FilePath = ud.FilePath
	return svc.repo.UpdateDocument(context.Background(), doc)
}

func (svc *service) Delete(owner profile.Profile, id string) error {
	return svc.repo.DeleteDocument(context.Background(), id, owner.ID)
}

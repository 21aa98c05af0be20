package document

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
)

// Document types
const (
	TypeNotes        = "notes"
	TypeAssignment   = "assignment"
	TypeQuestionBank = "question-bank"
	TypePresentation = "presentation"
	TypeProject      = "project"
	TypeOther        = "other"
)

var (
	// errors
	ErrNotFound = errors.New("document not found")
)

// Document is a file in a profile's locker. Only the owner ever sees it.
type Document struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"-"` // owning profile
	Kind        profile.Kind `json:"-"` // mirrors the owner's kind
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	FilePath    string       `json:"file_path"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
}

// NewDocument contains information needed to add a Document to a locker.
type NewDocument struct {
	Type        string `json:"type" validate:"required,doctype"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	FilePath    string `json:"file_path" validate:"required"`
}

func (nd *NewDocument) Validate(validate *validator.Validate) error {
	nd.Title = core.CleanString(nd.Title)
	nd.Description = core.CleanString(nd.Description)
	nd.Type = core.CleanString(nd.Type, true /* lower */)
	return validate.Struct(nd)
}

// UpdateDocument defines what may be modified on an existing Document.
type UpdateDocument struct {
	Type        string `json:"type" validate:"omitempty,doctype"`
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description"`
	FilePath    string `json:"file_path"`
}

func (ud *UpdateDocument) Validate(orig Document, validate *validator.Validate) error {
	title := core.CleanString(ud.Title)
	if title != "" {
		ud.Title = title
	} else {
		ud.Title = orig.Title
	}

	typ := core.CleanString(ud.Type, true /* lower */)
	if typ != "" {
		ud.Type = typ
	} else {
		ud.Type = orig.Type
	}

	if ud.FilePath == "" {
		ud.FilePath = orig.FilePath
	}
	return validate.Struct(ud)
}

type Repository interface {
	CreateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error)
	GetDocument(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (Document, error)
	// QueryDocumentsByOwner returns the owner's documents, newest first by default.
	QueryDocumentsByOwner(ctx context.Context, ownerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Document, error)
	UpdateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error)
	DeleteDocument(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) error
	// DeleteDocumentsByOwner removes every document in the owner's locker and
	// reports how many went.
	DeleteDocumentsByOwner(ctx context.Context, ownerID string, exec ...core.DBExecutor) (int, error)
}

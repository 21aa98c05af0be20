// Package inmemdb provides map-backed repositories for tests and local
// development. Writes go through a no-op transactor so code written
// against core.DB runs unchanged.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/setting"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		user     *userTable
		profile  *profileTable
		document *documentTable
		course   *courseTable
		setting  *settingTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	profileTable struct {
		sync.RWMutex
		table map[string]*profile.Profile
	}

	documentTable struct {
		sync.RWMutex
		table map[string]*document.Document
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	settingTable struct {
		sync.RWMutex
		table map[string]setting.Setting
	}
)

var _ core.DB = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		profile:  &profileTable{table: make(map[string]*profile.Profile)},
		document: &documentTable{table: make(map[string]*document.Document)},
		course:   &courseTable{table: make(map[string]*course.Course)},
		setting:  &settingTable{table: make(map[string]setting.Setting)},
	}
	return db, nil
}

func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (core.DBTransactor, error) {
	return memTx{}, nil
}

// memTx fakes a transaction. The embedded nil *sqlx.Tx provides the
// executor method set; the repositories here never call it.
type memTx struct {
	*sqlx.Tx
}

func (tx memTx) Commit() error   { return nil }
func (tx memTx) Rollback() error { return nil }

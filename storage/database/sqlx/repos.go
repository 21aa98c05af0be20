// Package sqlxrepos implements the core repositories on PostgreSQL
// with sqlx scanning and squirrel query building.
package sqlxrepos

import (
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// getExec returns the transaction executor when one is passed, the
// repository's own DB handle otherwise.
func getExec(db core.DBExecutor, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

// trapNoRowsErr converts sql.ErrNoRows into the domain's not-found error.
func trapNoRowsErr(err, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

// trapUniqueErr converts a unique constraint violation into the domain's
// already-exists error.
func trapUniqueErr(err, exists error) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return exists
	}
	return err
}

func columnList(columns []string) string {
	return strings.Join(columns, ", ")
}

func orderByClauses(ordering []core.DBOrdering, dflt string) []string {
	if len(ordering) == 0 {
		return []string{dflt}
	}
	clauses := make([]string, 0, len(ordering))
	for _, o := range ordering {
		clauses = append(clauses, o.String())
	}
	return clauses
}

package setting

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// Keys
const (
	// KeyResetCode holds the operator-distributed locker reset code.
	// One process-wide value; compared verbatim.
	KeyResetCode = "reset_code"
)

var (
	// errors
	ErrNotFound = errors.New("setting not found")
)

// Setting is a single key/value configuration row.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Repository interface {
	GetSetting(ctx context.Context, key string, exec ...core.DBExecutor) (Setting, error)
	UpsertSetting(ctx context.Context, st Setting, exec ...core.DBExecutor) (Setting, error)
}

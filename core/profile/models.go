package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Kind discriminates the two profile variants.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
)

var (
	// errors
	ErrNotFound = errors.New("profile not found")
)

// Profile is the per-user record owning the document locker credentials.
// Exactly one of a student or teacher profile exists per user.
// PinHash and RecoveryHash are always both set or both unset.
type Profile struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Kind         Kind      `json:"kind"`
	Phone        string    `json:"phone"`
	Department   string    `json:"department"`
	PinHash      []byte    `json:"-"`
	RecoveryHash []byte    `json:"-"`
	PinAttempts  int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (p *Profile) HasPin() bool {
	return len(p.PinHash) > 0
}

// SetPin hashes and stores the PIN and recovery password together,
// restoring the attempt counter to its ceiling.
func (p *Profile) SetPin(pin, recovery string, maxAttempts int) error {
	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	recHash, err := bcrypt.GenerateFromPassword([]byte(recovery), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PinHash = pinHash
	p.RecoveryHash = recHash
	p.PinAttempts = maxAttempts
	return nil
}

func (p *Profile) CheckPin(pin string) error {
	return bcrypt.CompareHashAndPassword(p.PinHash, []byte(pin))
}

func (p *Profile) CheckRecovery(recovery string) error {
	return bcrypt.CompareHashAndPassword(p.RecoveryHash, []byte(recovery))
}

// ClearPin wipes both credentials and restores the attempt counter.
func (p *Profile) ClearPin(maxAttempts int) {
	p.PinHash = nil
	p.RecoveryHash = nil
	p.PinAttempts = maxAttempts
}

type Repository interface {
	CreateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
	GetProfileByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Profile, error)
	// UpdateProfilePin persists the credential fields (pin_hash, recovery_hash,
	// pin_attempts) as a single write.
	UpdateProfilePin(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
	// DecrementPinAttempts atomically decrements the attempt counter with a
	// floor of 0 and returns the remaining count.
	DecrementPinAttempts(ctx context.Context, id string, exec ...core.DBExecutor) (int, error)
	DeleteProfilesByUserID(ctx context.Context, userIDs []string, exec ...core.DBExecutor) (int, error)
}

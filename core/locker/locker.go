package locker

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/setting"
)

// State of a profile's locker as seen from one session.
type State string

const (
	StateNoPinSet State = "NO_PIN_SET"
	StateLocked   State = "LOCKED"
	StateUnlocked State = "UNLOCKED"
)

var (
	// errors
	ErrPinNotSet              = errors.New("locker PIN not set")
	ErrLocked                 = errors.New("locker is locked")
	ErrIncorrectPin           = errors.New("incorrect PIN")
	ErrPinLockedOut           = errors.New("too many failed attempts; use recovery password")
	ErrIncorrectRecovery      = errors.New("incorrect recovery password")
	ErrIncorrectResetCode     = errors.New("incorrect reset code")
	ErrResetCodeNotConfigured = errors.New("reset code not configured")
)

// Status reports the locker state for the requesting session along with the
// remaining PIN attempts.
type Status struct {
	State        State `json:"state"`
	AttemptsLeft int   `json:"attempts_left"`
}

// SetPin contains information needed to configure a locker PIN.
// PIN and recovery password are always persisted together.
type SetPin struct {
	Pin              string `json:"pin" validate:"required,pin4"`
	ConfirmPin       string `json:"confirm_pin" validate:"required,eqfield=Pin"`
	RecoveryPassword string `json:"recovery_password" validate:"required,min=8,max=16"`
}

func (sp SetPin) Validate(validate *validator.Validate) error { return validate.Struct(sp) }

type VerifyPin struct {
	Pin string `json:"pin" validate:"required,max=4"`
}

func (vp VerifyPin) Validate(validate *validator.Validate) error { return validate.Struct(vp) }

type Recover struct {
	RecoveryPassword string `json:"recovery_password" validate:"required,max=16"`
}

func (r Recover) Validate(validate *validator.Validate) error { return validate.Struct(r) }

type ResetData struct {
	ResetCode string `json:"reset_code" validate:"required,max=50"`
}

func (rd ResetData) Validate(validate *validator.Validate) error { return validate.Struct(rd) }

type (
	ServiceInterface interface {
		// Resolve returns the requesting user's profile.
		Resolve(ctx context.Context, userID string) (profile.Profile, error)
		Status(ctx context.Context, userID, sid string) (Status, error)
		SetPin(ctx context.Context, userID, sid string, data SetPin) error
		VerifyPin(ctx context.Context, userID, sid string, data VerifyPin) (Status, error)
		Recover(ctx context.Context, userID, sid string, data Recover) error
		Reset(ctx context.Context, userID, sid string, data ResetData) error
		Lock(sid string)
		// Guard enforces the locker invariant: the profile's documents are
		// reachable iff a PIN is set and the session is unlocked.
		Guard(ctx context.Context, userID, sid string) (profile.Profile, error)
	}

	service struct {
		db          core.DB
		profileRepo profile.Repository
		docRepo     document.Repository
		settingRepo setting.Repository
		sessions    SessionStore
		conf        *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(
	db core.DB,
	profileRepo profile.Repository,
	docRepo document.Repository,
	settingRepo setting.Repository,
	sessions SessionStore,
	conf *core.Config,
) *service {
	return &service{
		db:          db,
		profileRepo: profileRepo,
		docRepo:     docRepo,
		settingRepo: settingRepo,
		sessions:    sessions,
		conf:        conf,
	}
}

func (svc *service) Resolve(ctx context.Context, userID string) (profile.Profile, error) {
	return svc.profileRepo.GetProfileByUserID(ctx, userID)
}

func (svc *service) state(prof profile.Profile, sid string) State {
	if !prof.HasPin() {
		return StateNoPinSet
	}
	if svc.sessions.IsUnlocked(sid) {
		return StateUnlocked
	}
	return StateLocked
}

func (svc *service) Status(ctx context.Context, userID, sid string) (Status, error) {
	prof, err := svc.Resolve(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{State: svc.state(prof, sid), AttemptsLeft: prof.PinAttempts}, nil
}

// SetPin stores the hashed PIN and recovery password and restores the attempt
// counter. Once a PIN exists it may only be replaced from an unlocked session;
// the session is never auto-unlocked by setting a PIN.
func (svc *service) SetPin(ctx context.Context, userID, sid string, data SetPin) error {
	prof, err := svc.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	if prof.HasPin() && !svc.sessions.IsUnlocked(sid) {
		return ErrLocked
	}

	if err = prof.SetPin(data.Pin, data.RecoveryPassword, svc.conf.Locker.MaxPinAttempts); err != nil {
		return errors.Wrap(err, "hashing PIN")
	}
	prof.UpdatedAt = time.Now().UTC()
	if _, err = svc.profileRepo.UpdateProfilePin(ctx, prof); err != nil {
		return errors.Wrap(err, "updating profile PIN")
	}

	// a fresh PIN starts the session locked
	svc.sessions.Lock(sid)
	return nil
}

func (svc *service) VerifyPin(ctx context.Context, userID, sid string, data VerifyPin) (Status, error) {
	prof, err := svc.Resolve(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if !prof.HasPin() {
		return Status{State: StateNoPinSet}, ErrPinNotSet
	}
	if prof.PinAttempts <= 0 {
		return Status{State: StateLocked}, ErrPinLockedOut
	}

	if err = prof.CheckPin(data.Pin); err != nil {
		remaining, derr := svc.profileRepo.DecrementPinAttempts(ctx, prof.ID)
		if derr != nil {
			return Status{}, errors.Wrap(derr, "decrementing PIN attempts")
		}
		status := Status{State: StateLocked, AttemptsLeft: remaining}
		if remaining <= 0 {
			return status, ErrPinLockedOut
		}
		return status, ErrIncorrectPin
	}

	svc.unlock(sid)
	return Status{State: StateUnlocked, AttemptsLeft: prof.PinAttempts}, nil
}

// Recover unlocks the session with the recovery password.
// The attempt counter is left as-is; only Set PIN and Reset restore it.
func (svc *service) Recover(ctx context.Context, userID, sid string, data Recover) error {
	prof, err := svc.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	if !prof.HasPin() {
		return ErrPinNotSet
	}
	if err = prof.CheckRecovery(data.RecoveryPassword); err != nil {
		return ErrIncorrectRecovery
	}
	svc.unlock(sid)
	return nil
}

// Reset wipes the principal's locker: all documents are deleted, both
// credentials cleared, the attempt counter restored and the session flushed.
// Destructive and irreversible; gated only by the operator reset code.
func (svc *service) Reset(ctx context.Context, userID, sid string, data ResetData) error {
	prof, err := svc.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	st, err := svc.settingRepo.GetSetting(ctx, setting.KeyResetCode)
	if err != nil {
		if errors.Cause(err) == setting.ErrNotFound {
			return ErrResetCodeNotConfigured
		}
		return errors.Wrap(err, "getting reset code")
	}
	if subtle.ConstantTimeCompare([]byte(data.ResetCode), []byte(st.Value)) == 0 {
		return ErrIncorrectResetCode
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if _, err = svc.docRepo.DeleteDocumentsByOwner(ctx, prof.ID, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting documents")
	}

	prof.ClearPin(svc.conf.Locker.MaxPinAttempts)
	prof.UpdatedAt = time.Now().UTC()
	if _, err = svc.profileRepo.UpdateProfilePin(ctx, prof, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "clearing profile PIN")
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	svc.sessions.Flush(sid)
	return nil
}

// Lock clears the session unlock flag; idempotent.
func (svc *service) Lock(sid string) {
	svc.sessions.Lock(sid)
}

func (svc *service) Guard(ctx context.Context, userID, sid string) (profile.Profile, error) {
	prof, err := svc.Resolve(ctx, userID)
	if err != nil {
		return profile.Profile{}, err
	}
	switch svc.state(prof, sid) {
	case StateNoPinSet:
		return profile.Profile{}, ErrPinNotSet
	case StateLocked:
		return profile.Profile{}, ErrLocked
	}
	return prof, nil
}

func (svc *service) unlock(sid string) {
	svc.sessions.Unlock(sid, time.Now().Add(svc.conf.Server.JWTExpirationDelta))
}

package locker

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/setting"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type testEnv struct {
	svc         *service
	profileRepo profile.Repository
	docRepo     document.Repository
	settingRepo setting.Repository
	prof        profile.Profile
	sid         string
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("opening DB: %v", err)
	}
	profileRepo := inmemdb.NewProfileRepository(db)
	docRepo := inmemdb.NewDocumentRepository(db)
	settingRepo := inmemdb.NewSettingRepository(db)

	conf := &core.Config{
		Server: core.ServerConfig{JWTExpirationDelta: time.Hour},
		Locker: core.LockerConfig{MaxPinAttempts: 5},
	}
	svc := NewService(db, profileRepo, docRepo, settingRepo, NewMemSessionStore(), conf)

	prof, err := profileRepo.CreateProfile(context.Background(), profile.Profile{
		UserID:      uuid.NewString(),
		Kind:        profile.KindStudent,
		PinAttempts: conf.Locker.MaxPinAttempts,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating profile: %v", err)
	}

	return &testEnv{
		svc:         svc,
		profileRepo: profileRepo,
		docRepo:     docRepo,
		settingRepo: settingRepo,
		prof:        prof,
		sid:         uuid.NewString(),
	}
}

func (env *testEnv) setPin(t *testing.T, pin, recovery string) {
	t.Helper()
	data := SetPin{Pin: pin, ConfirmPin: pin, RecoveryPassword: recovery}
	if err := env.svc.SetPin(context.Background(), env.prof.UserID, env.sid, data); err != nil {
		t.Fatalf("SetPin() unexpected error = %v", err)
	}
}

func (env *testEnv) checkStatus(t *testing.T, wantState State, wantAttempts int) {
	t.Helper()
	status, err := env.svc.Status(context.Background(), env.prof.UserID, env.sid)
	if err != nil {
		t.Fatalf("Status() unexpected error = %v", err)
	}
	if status.State != wantState {
		t.Errorf("Status().State = %s, want %s", status.State, wantState)
	}
	if status.AttemptsLeft != wantAttempts {
		t.Errorf("Status().AttemptsLeft = %d, want %d", status.AttemptsLeft, wantAttempts)
	}
}

func (env *testEnv) addDocument(t *testing.T, title string) document.Document {
	t.Helper()
	doc, err := env.docRepo.CreateDocument(context.Background(), document.Document{
		OwnerID:   env.prof.ID,
		Kind:      env.prof.Kind,
		Type:      document.TypeNotes,
		Title:     title,
		FilePath:  "/uploads/" + title + ".pdf",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	return doc
}

func Test_service_Status(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	t.Run("unknown user", func(t *testing.T) {
		if _, err := env.svc.Status(ctx, uuid.NewString(), env.sid); err != profile.ErrNotFound {
			t.Errorf("Status() error = %v, want %v", err, profile.ErrNotFound)
		}
	})

	t.Run("no PIN set", func(t *testing.T) {
		env.checkStatus(t, StateNoPinSet, 5)
	})

	t.Run("PIN set starts locked", func(t *testing.T) {
		env.setPin(t, "1234", "recoverMe12345")
		env.checkStatus(t, StateLocked, 5)
	})
}

func Test_service_SetPin(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes credentials", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		prof, err := env.profileRepo.GetProfileByUserID(ctx, env.prof.UserID)
		if err != nil {
			t.Fatalf("getting profile: %v", err)
		}
		if !prof.HasPin() {
			t.Fatal("PIN not persisted")
		}
		if bytes.Contains(prof.PinHash, []byte("1234")) {
			t.Error("PIN stored in clear")
		}
		if bytes.Contains(prof.RecoveryHash, []byte("recoverMe12345")) {
			t.Error("recovery password stored in clear")
		}
		if prof.PinAttempts != 5 {
			t.Errorf("PinAttempts = %d, want 5", prof.PinAttempts)
		}
	})

	t.Run("existing PIN requires unlocked session", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		data := SetPin{Pin: "5678", ConfirmPin: "5678", RecoveryPassword: "newRecovery99"}
		if err := env.svc.SetPin(ctx, env.prof.UserID, env.sid, data); err != ErrLocked {
			t.Errorf("SetPin() error = %v, want %v", err, ErrLocked)
		}
	})

	t.Run("replace PIN from unlocked session", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		if _, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"}); err != nil {
			t.Fatalf("VerifyPin() unexpected error = %v", err)
		}
		env.setPin(t, "5678", "newRecovery99")

		// replacement re-locks the session
		env.checkStatus(t, StateLocked, 5)

		prof, _ := env.profileRepo.GetProfileByUserID(ctx, env.prof.UserID)
		if err := prof.CheckPin("5678"); err != nil {
			t.Error("new PIN does not verify")
		}
		if err := prof.CheckPin("1234"); err == nil {
			t.Error("old PIN still verifies")
		}
	})
}

func Test_service_VerifyPin(t *testing.T) {
	ctx := context.Background()

	t.Run("no PIN set", func(t *testing.T) {
		env := setup(t)
		if _, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"}); err != ErrPinNotSet {
			t.Errorf("VerifyPin() error = %v, want %v", err, ErrPinNotSet)
		}
	})

	t.Run("wrong PIN decrements attempts", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		for i, want := range []int{4, 3, 2} {
			status, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})
			if err != ErrIncorrectPin {
				t.Fatalf("VerifyPin() #%d error = %v, want %v", i+1, err, ErrIncorrectPin)
			}
			if status.AttemptsLeft != want {
				t.Errorf("VerifyPin() #%d AttemptsLeft = %d, want %d", i+1, status.AttemptsLeft, want)
			}
		}
		env.checkStatus(t, StateLocked, 2)
	})

	t.Run("correct PIN unlocks without restoring attempts", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		_, _ = env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})
		_, _ = env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})

		status, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"})
		if err != nil {
			t.Fatalf("VerifyPin() unexpected error = %v", err)
		}
		if status.State != StateUnlocked {
			t.Errorf("VerifyPin().State = %s, want %s", status.State, StateUnlocked)
		}
		if status.AttemptsLeft != 3 {
			t.Errorf("VerifyPin().AttemptsLeft = %d, want 3", status.AttemptsLeft)
		}
	})

	t.Run("exhausting attempts locks out", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		var lastErr error
		for i := 0; i < 5; i++ {
			_, lastErr = env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})
		}
		if lastErr != ErrPinLockedOut {
			t.Errorf("VerifyPin() last error = %v, want %v", lastErr, ErrPinLockedOut)
		}

		// even the correct PIN is refused once locked out
		if _, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"}); err != ErrPinLockedOut {
			t.Errorf("VerifyPin() error = %v, want %v", err, ErrPinLockedOut)
		}
		env.checkStatus(t, StateLocked, 0)
	})

	t.Run("unlock is scoped to the session", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		if _, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"}); err != nil {
			t.Fatalf("VerifyPin() unexpected error = %v", err)
		}

		otherSid := uuid.NewString()
		status, err := env.svc.Status(ctx, env.prof.UserID, otherSid)
		if err != nil {
			t.Fatalf("Status() unexpected error = %v", err)
		}
		if status.State != StateLocked {
			t.Errorf("other session State = %s, want %s", status.State, StateLocked)
		}
	})
}

func Test_service_Recover(t *testing.T) {
	ctx := context.Background()

	t.Run("no PIN set", func(t *testing.T) {
		env := setup(t)
		if err := env.svc.Recover(ctx, env.prof.UserID, env.sid, Recover{RecoveryPassword: "recoverMe12345"}); err != ErrPinNotSet {
			t.Errorf("Recover() error = %v, want %v", err, ErrPinNotSet)
		}
	})

	t.Run("wrong recovery password", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		if err := env.svc.Recover(ctx, env.prof.UserID, env.sid, Recover{RecoveryPassword: "nope"}); err != ErrIncorrectRecovery {
			t.Errorf("Recover() error = %v, want %v", err, ErrIncorrectRecovery)
		}
		env.checkStatus(t, StateLocked, 5)
	})

	t.Run("unlocks after lockout, attempts stay exhausted", func(t *testing.T) {
		env := setup(t)
		env.setPin(t, "1234", "recoverMe12345")

		for i := 0; i < 5; i++ {
			_, _ = env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})
		}

		if err := env.svc.Recover(ctx, env.prof.UserID, env.sid, Recover{RecoveryPassword: "recoverMe12345"}); err != nil {
			t.Fatalf("Recover() unexpected error = %v", err)
		}
		env.checkStatus(t, StateUnlocked, 0)
	})
}

func Test_service_Reset(t *testing.T) {
	ctx := context.Background()
	const resetCode = "SCHOOL-RESET-2026"

	configureResetCode := func(t *testing.T, env *testEnv) {
		t.Helper()
		if _, err := env.settingRepo.UpsertSetting(ctx, setting.Setting{Key: setting.KeyResetCode, Value: resetCode}); err != nil {
			t.Fatalf("upserting reset code: %v", err)
		}
	}

	t.Run("reset code not configured", func(t *testing.T) {
		env := setup(t)
		if err := env.svc.Reset(ctx, env.prof.UserID, env.sid, ResetData{ResetCode: resetCode}); err != ErrResetCodeNotConfigured {
			t.Errorf("Reset() error = %v, want %v", err, ErrResetCodeNotConfigured)
		}
	})

	t.Run("wrong reset code leaves everything intact", func(t *testing.T) {
		env := setup(t)
		configureResetCode(t, env)
		env.setPin(t, "1234", "recoverMe12345")
		env.addDocument(t, "notes")

		if err := env.svc.Reset(ctx, env.prof.UserID, env.sid, ResetData{ResetCode: "WRONG"}); err != ErrIncorrectResetCode {
			t.Errorf("Reset() error = %v, want %v", err, ErrIncorrectResetCode)
		}

		docs, _ := env.docRepo.QueryDocumentsByOwner(ctx, env.prof.ID, nil)
		if len(docs) != 1 {
			t.Errorf("documents = %d, want 1", len(docs))
		}
		env.checkStatus(t, StateLocked, 5)
	})

	t.Run("wipes documents and credentials", func(t *testing.T) {
		env := setup(t)
		configureResetCode(t, env)
		env.setPin(t, "1234", "recoverMe12345")
		env.addDocument(t, "notes")
		env.addDocument(t, "assignment")

		// exhaust some attempts and unlock via recovery first
		_, _ = env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})
		if err := env.svc.Recover(ctx, env.prof.UserID, env.sid, Recover{RecoveryPassword: "recoverMe12345"}); err != nil {
			t.Fatalf("Recover() unexpected error = %v", err)
		}

		if err := env.svc.Reset(ctx, env.prof.UserID, env.sid, ResetData{ResetCode: resetCode}); err != nil {
			t.Fatalf("Reset() unexpected error = %v", err)
		}

		docs, _ := env.docRepo.QueryDocumentsByOwner(ctx, env.prof.ID, nil)
		if len(docs) != 0 {
			t.Errorf("documents = %d, want 0", len(docs))
		}
		prof, _ := env.profileRepo.GetProfileByUserID(ctx, env.prof.UserID)
		if prof.HasPin() {
			t.Error("PIN survived the reset")
		}
		if prof.RecoveryHash != nil {
			t.Error("recovery password survived the reset")
		}
		env.checkStatus(t, StateNoPinSet, 5)
	})
}

func Test_service_Guard(t *testing.T) {
	ctx := context.Background()
	env := setup(t)

	if _, err := env.svc.Guard(ctx, env.prof.UserID, env.sid); err != ErrPinNotSet {
		t.Errorf("Guard() error = %v, want %v", err, ErrPinNotSet)
	}

	env.setPin(t, "1234", "recoverMe12345")
	if _, err := env.svc.Guard(ctx, env.prof.UserID, env.sid); err != ErrLocked {
		t.Errorf("Guard() error = %v, want %v", err, ErrLocked)
	}

	if _, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"}); err != nil {
		t.Fatalf("VerifyPin() unexpected error = %v", err)
	}
	prof, err := env.svc.Guard(ctx, env.prof.UserID, env.sid)
	if err != nil {
		t.Fatalf("Guard() unexpected error = %v", err)
	}
	if prof.ID != env.prof.ID {
		t.Errorf("Guard() profile ID = %s, want %s", prof.ID, env.prof.ID)
	}

	env.svc.Lock(env.sid)
	if _, err = env.svc.Guard(ctx, env.prof.UserID, env.sid); err != ErrLocked {
		t.Errorf("Guard() after Lock() error = %v, want %v", err, ErrLocked)
	}
}

// Test_service_lifecycle runs a student's locker from first PIN to full reset.
func Test_service_lifecycle(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	if _, err := env.settingRepo.UpsertSetting(ctx, setting.Setting{Key: setting.KeyResetCode, Value: "RESET-42"}); err != nil {
		t.Fatalf("upserting reset code: %v", err)
	}

	env.setPin(t, "1234", "recoverMe12345")
	env.checkStatus(t, StateLocked, 5)
	env.addDocument(t, "physics-notes")

	for i, want := range []int{4, 3, 2} {
		status, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "0000"})
		if err != ErrIncorrectPin {
			t.Fatalf("VerifyPin() #%d error = %v, want %v", i+1, err, ErrIncorrectPin)
		}
		if status.AttemptsLeft != want {
			t.Fatalf("VerifyPin() #%d AttemptsLeft = %d, want %d", i+1, status.AttemptsLeft, want)
		}
	}

	status, err := env.svc.VerifyPin(ctx, env.prof.UserID, env.sid, VerifyPin{Pin: "1234"})
	if err != nil {
		t.Fatalf("VerifyPin() unexpected error = %v", err)
	}
	if status.State != StateUnlocked || status.AttemptsLeft != 2 {
		t.Fatalf("VerifyPin() = %+v, want UNLOCKED with 2 attempts", status)
	}

	if err = env.svc.Reset(ctx, env.prof.UserID, env.sid, ResetData{ResetCode: "nope"}); err != ErrIncorrectResetCode {
		t.Fatalf("Reset() error = %v, want %v", err, ErrIncorrectResetCode)
	}
	env.checkStatus(t, StateUnlocked, 2)

	if err = env.svc.Reset(ctx, env.prof.UserID, env.sid, ResetData{ResetCode: "RESET-42"}); err != nil {
		t.Fatalf("Reset() unexpected error = %v", err)
	}
	env.checkStatus(t, StateNoPinSet, 5)

	docs, _ := env.docRepo.QueryDocumentsByOwner(ctx, env.prof.ID, nil)
	if len(docs) != 0 {
		t.Errorf("documents = %d, want 0", len(docs))
	}
}

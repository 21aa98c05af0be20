package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/setting"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

// PrepareDB returns a fresh in-memory database.
func PrepareDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateProfile(
	t *testing.T,
	repo profile.Repository,
	usr user.User,
	kind profile.Kind,
	maxPinAttempts int,
) profile.Profile {
	t.Helper()
	now := time.Now().UTC()
	prof, err := repo.CreateProfile(context.Background(), profile.Profile{
		UserID:      usr.ID,
		Kind:        kind,
		PinAttempts: maxPinAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func CreateDocument(
	t *testing.T,
	repo document.Repository,
	owner profile.Profile,
	docType, title string,
	createdAt ...time.Time,
) document.Document {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	doc, err := repo.CreateDocument(context.Background(), document.Document{
		OwnerID:   owner.ID,
		Kind:      owner.Kind,
		Type:      docType,
		Title:     title,
		FilePath:  "/uploads/" + title,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}
	return doc
}

func SetSetting(t *testing.T, repo setting.Repository, key, value string) setting.Setting {
	t.Helper()
	st, err := repo.UpsertSetting(context.Background(), setting.Setting{Key: key, Value: value})
	if err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}
	return st
}

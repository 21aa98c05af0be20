package user

import (
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a ServiceInterface whose side effects (emails) run synchronously.
func NewServiceMock(db core.DB, repo Repository, profileRepo profile.Repository, mailSvc core.EmailService, conf *core.Config) ServiceInterface {
	svc := NewService(db, repo, profileRepo, mailSvc, conf)
	return &serviceMock{service: *svc}
}

func (svc *serviceMock) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

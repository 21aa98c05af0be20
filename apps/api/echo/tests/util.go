package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/locker"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/setting"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	testutil "github.com/trezcool/shule/tests"
)

var (
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
	initOnce   sync.Once

	usrRepo     user.Repository
	profileRepo profile.Repository
	docRepo     document.Repository
	courseRepo  course.Repository
	settingRepo setting.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) Server {
	t.Helper()

	initOnce.Do(func() {
		conf = core.NewConfig()
		conf.Debug = false
		conf.TestMode = true
		conf.Server.JWTExpirationDelta = time.Hour
		conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
		conf.Locker.MaxPinAttempts = 5

		_en := en.New()
		uni := ut.New(_en, _en)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New()
		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)
		document.InitValidators(validate, translator)
		locker.InitValidators(validate, translator)

		core.ParseEmailTemplates(conf, nopLogger{})
		user.LoadCommonPasswords(conf, nopLogger{})
	})

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = inmemdb.NewUserRepository(db)
	profileRepo = inmemdb.NewProfileRepository(db)
	docRepo = inmemdb.NewDocumentRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)
	settingRepo = inmemdb.NewSettingRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(db, usrRepo, profileRepo, mailSvc, conf)
	lockerSvc := locker.NewService(db, profileRepo, docRepo, settingRepo, locker.NewMemSessionStore(), conf)
	docSvc := document.NewService(docRepo)
	courseSvc := course.NewService(courseRepo)

	// set up server
	return NewServer(ServerDeps{
		Conf:       conf,
		Logger:     nopLogger{},
		UserSvc:    usrSvc,
		LockerSvc:  lockerSvc,
		DocSvc:     docSvc,
		CourseSvc:  courseSvc,
		Validate:   validate,
		Translator: translator,
	})
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

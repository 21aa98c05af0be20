package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/locker"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/setting"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func lockerStatus(t *testing.T, app echoapi.Server, token string) locker.Status {
	t.Helper()
	req, rec := newAuthRequest(http.MethodGet, "/v1/locker", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/locker failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var status locker.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	return status
}

func setLockerPin(t *testing.T, app echoapi.Server, token, pin, recovery string) *httptest.ResponseRecorder {
	t.Helper()
	body := marchallObj(t, locker.SetPin{Pin: pin, ConfirmPin: pin, RecoveryPassword: recovery})
	req, rec := newAuthRequest(http.MethodPost, "/v1/locker/pin", token, body)
	app.ServeHTTP(rec, req)
	return rec
}

func verifyLockerPin(t *testing.T, app echoapi.Server, token, pin string) (*httptest.ResponseRecorder, echoapi.VerifyPinResponse) {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/v1/locker/pin/verify", token, marchallObj(t, locker.VerifyPin{Pin: pin}))
	app.ServeHTTP(rec, req)
	var resp echoapi.VerifyPinResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	return rec, resp
}

func checkStatus(t *testing.T, status locker.Status, wantState locker.State, wantAttempts int) {
	t.Helper()
	if status.State != wantState {
		t.Errorf("failed! state = %v; want %v", status.State, wantState)
	}
	if status.AttemptsLeft != wantAttempts {
		t.Errorf("failed! attempts_left = %v; want %v", status.AttemptsLeft, wantAttempts)
	}
}

func Test_lockerApi_status(t *testing.T) {
	app := setup(t)

	noProf := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateProfile(t, profileRepo, student, profile.KindStudent, conf.Locker.MaxPinAttempts)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "No profile", token: getToken(t, noProf), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "no locker profile for this account"}),
		},
		{
			name: "Fresh profile", token: getToken(t, student), wantCode: http.StatusOK,
			wantData: marchallObj(t, locker.Status{State: locker.StateNoPinSet, AttemptsLeft: 5}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/locker"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_lockerApi_setPin(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateProfile(t, profileRepo, student, profile.KindStudent, conf.Locker.MaxPinAttempts)
	token := getToken(t, student)

	reqMsg := "this field is required"
	pinMsg := "PIN must be exactly 4 digits"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, locker.SetPin{Pin: reqMsg, ConfirmPin: reqMsg, RecoveryPassword: reqMsg}),
		},
		{
			name: "PIN must be 4 digits", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, locker.SetPin{Pin: "12a4", ConfirmPin: "12a4", RecoveryPassword: "recoverMe123"}),
			wantData: marchallObj(t, map[string]string{"pin": pinMsg}),
		},
		{
			name: "PIN too long", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, locker.SetPin{Pin: "12345", ConfirmPin: "12345", RecoveryPassword: "recoverMe123"}),
			wantData: marchallObj(t, map[string]string{"pin": pinMsg}),
		},
		{
			name: "ConfirmPin must = Pin", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, locker.SetPin{Pin: "1234", ConfirmPin: "4321", RecoveryPassword: "recoverMe123"}),
			wantData: marchallObj(t, map[string]string{"confirm_pin": "confirm_pin must be equal to Pin"}),
		},
		{
			name: "recovery password too short", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, locker.SetPin{Pin: "1234", ConfirmPin: "1234", RecoveryPassword: "short"}),
			wantData: marchallObj(t, map[string]string{"recovery_password": "recovery_password must be at least 8 characters in length"}),
		},
		{
			name: "PIN set", wantCode: http.StatusOK,
			body:     marchallObj(t, locker.SetPin{Pin: "1234", ConfirmPin: "1234", RecoveryPassword: "recoverMe123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "PIN set. Keep your recovery password safe; it is the only way back in after too many failed attempts."}),
		},
		{
			name: "cannot replace PIN while locked", wantCode: http.StatusForbidden,
			body:     marchallObj(t, locker.SetPin{Pin: "5678", ConfirmPin: "5678", RecoveryPassword: "recoverMe123"}),
			wantData: marchallObj(t, httpErr{Error: "locker is locked"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/locker/pin"
		tt.token = token

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// an unlocked session may replace the PIN; the replacement re-locks it
	if _, resp := verifyLockerPin(t, app, token, "1234"); resp.Status.State != locker.StateUnlocked {
		t.Fatalf("failed to unlock! status = %+v", resp.Status)
	}
	if rec := setLockerPin(t, app, token, "5678", "newRecovery12"); rec.Code != http.StatusOK {
		t.Fatalf("failed to replace PIN! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	checkStatus(t, lockerStatus(t, app, token), locker.StateLocked, 5)
	if rec, _ := verifyLockerPin(t, app, token, "1234"); rec.Code != http.StatusBadRequest {
		t.Errorf("old PIN still accepted! code = %v", rec.Code)
	}
	if rec, resp := verifyLockerPin(t, app, token, "5678"); rec.Code != http.StatusOK {
		t.Errorf("new PIN refused! code = %v; resp = %+v", rec.Code, resp)
	}
}

func Test_lockerApi_verifyPin(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateProfile(t, profileRepo, student, profile.KindStudent, conf.Locker.MaxPinAttempts)
	token := getToken(t, student)

	// no PIN yet
	rec, _ := verifyLockerPin(t, app, token, "1234")
	if rec.Code != http.StatusConflict {
		t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusConflict)
	}

	if rec = setLockerPin(t, app, token, "1234", "recoverMe123"); rec.Code != http.StatusOK {
		t.Fatalf("setting PIN failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}

	// each wrong attempt burns one try
	var resp echoapi.VerifyPinResponse
	for i, want := range []int{4, 3, 2} {
		rec, resp = verifyLockerPin(t, app, token, "0000")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: code = %v; want %v", i+1, rec.Code, http.StatusBadRequest)
		}
		if resp.Error != "incorrect PIN" {
			t.Errorf("attempt %d: error = %q; want %q", i+1, resp.Error, "incorrect PIN")
		}
		checkStatus(t, resp.Status, locker.StateLocked, want)
	}

	// the correct PIN unlocks without restoring attempts
	rec, resp = verifyLockerPin(t, app, token, "1234")
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	checkStatus(t, resp.Status, locker.StateUnlocked, 2)

	// the unlock is scoped to this session; a fresh token starts locked
	otherToken := getToken(t, student)
	checkStatus(t, lockerStatus(t, app, otherToken), locker.StateLocked, 2)
	checkStatus(t, lockerStatus(t, app, token), locker.StateUnlocked, 2)

	// burn the remaining attempts from the other session
	for _, want := range []int{1, 0} {
		_, resp = verifyLockerPin(t, app, otherToken, "0000")
		checkStatus(t, resp.Status, locker.StateLocked, want)
	}

	// locked out: even the correct PIN is refused
	rec, resp = verifyLockerPin(t, app, otherToken, "1234")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusForbidden)
	}
	if resp.Error != "too many failed attempts; use recovery password" {
		t.Errorf("failed! error = %q", resp.Error)
	}
}

func Test_lockerApi_recovery(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateProfile(t, profileRepo, student, profile.KindStudent, conf.Locker.MaxPinAttempts)
	token := getToken(t, student)

	// no PIN yet
	req, rec := newAuthRequest(http.MethodPost, "/v1/locker/recovery", token, marchallObj(t, locker.Recover{RecoveryPassword: "recoverMe123"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusConflict)
	}

	if rec = setLockerPin(t, app, token, "1234", "recoverMe123"); rec.Code != http.StatusOK {
		t.Fatalf("setting PIN failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}

	// lock the account out completely
	for i := 0; i < conf.Locker.MaxPinAttempts; i++ {
		verifyLockerPin(t, app, token, "0000")
	}
	checkStatus(t, lockerStatus(t, app, token), locker.StateLocked, 0)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, locker.Recover{RecoveryPassword: "this field is required"}),
		},
		{
			name: "wrong recovery password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, locker.Recover{RecoveryPassword: "notTheOne1"}),
			wantData: marchallObj(t, httpErr{Error: "incorrect recovery password"}),
		},
		{
			name: "recovered", wantCode: http.StatusOK,
			body:     marchallObj(t, locker.Recover{RecoveryPassword: "recoverMe123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Locker unlocked."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/locker/recovery"
		tt.token = token

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// recovery unlocks but does not restore the attempt counter
	checkStatus(t, lockerStatus(t, app, token), locker.StateUnlocked, 0)
}

func Test_lockerApi_reset(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	prof := testutil.CreateProfile(t, profileRepo, student, profile.KindStudent, conf.Locker.MaxPinAttempts)
	token := getToken(t, student)

	if rec := setLockerPin(t, app, token, "1234", "recoverMe123"); rec.Code != http.StatusOK {
		t.Fatalf("setting PIN failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	testutil.CreateDocument(t, docRepo, prof, document.TypeNotes, "biology-notes.pdf")
	testutil.CreateDocument(t, docRepo, prof, document.TypeAssignment, "essay.docx")

	resetBody := func(code string) []byte { return marchallObj(t, locker.ResetData{ResetCode: code}) }

	// no reset code configured yet
	req, rec := newAuthRequest(http.MethodPost, "/v1/locker/reset", token, resetBody("RESET-42"))
	app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "reset code not configured"})}
	checkCodeAndData(t, tt, rec)

	testutil.SetSetting(t, settingRepo, setting.KeyResetCode, "RESET-42")

	// wrong code leaves everything intact
	req, rec = newAuthRequest(http.MethodPost, "/v1/locker/reset", token, resetBody("RESET-41"))
	app.ServeHTTP(rec, req)
	tt = httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "incorrect reset code"})}
	checkCodeAndData(t, tt, rec)
	checkStatus(t, lockerStatus(t, app, token), locker.StateLocked, 5)

	// correct code wipes the locker
	req, rec = newAuthRequest(http.MethodPost, "/v1/locker/reset", token, resetBody("RESET-42"))
	app.ServeHTTP(rec, req)
	tt = httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Locker wiped: all documents deleted and PIN cleared."})}
	checkCodeAndData(t, tt, rec)
	checkStatus(t, lockerStatus(t, app, token), locker.StateNoPinSet, 5)

	// the documents are gone; a fresh PIN opens onto an empty locker
	if rec = setLockerPin(t, app, token, "9999", "newRecovery12"); rec.Code != http.StatusOK {
		t.Fatalf("setting PIN failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	if _, resp := verifyLockerPin(t, app, token, "9999"); resp.Status.State != locker.StateUnlocked {
		t.Fatalf("failed to unlock! status = %+v", resp.Status)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/locker/documents", token)
	app.ServeHTTP(rec, req)
	tt = httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}
	checkCodeAndData(t, tt, rec)
}

func Test_lockerApi_documents(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateProfile(t, profileRepo, student, profile.KindStudent, conf.Locker.MaxPinAttempts)
	token := getToken(t, student)

	get := func(path string) *httptest.ResponseRecorder {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		return rec
	}

	// unauthenticated
	req, rec := newRequest(http.MethodGet, "/v1/locker/documents")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	// no PIN set: the locker has no inside yet
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "locker PIN not set"})}, get("/v1/locker/documents"))

	if rec = setLockerPin(t, app, token, "1234", "recoverMe123"); rec.Code != http.StatusOK {
		t.Fatalf("setting PIN failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}

	// locked
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "locker is locked"})}, get("/v1/locker/documents"))

	if _, resp := verifyLockerPin(t, app, token, "1234"); resp.Status.State != locker.StateUnlocked {
		t.Fatalf("failed to unlock! status = %+v", resp.Status)
	}

	// empty locker
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}, get("/v1/locker/documents"))

	// create
	body := marchallObj(t, document.NewDocument{Type: document.TypeNotes, Title: "Biology notes", Description: "Chapter 3", FilePath: "/uploads/bio.pdf"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/locker/documents", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var doc document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if doc.ID == "" || doc.Title != "Biology notes" || doc.Type != document.TypeNotes {
		t.Errorf("failed! doc = %+v", doc)
	}

	// invalid type is rejected
	badBody := marchallObj(t, document.NewDocument{Type: "meme", Title: "Nope", FilePath: "/uploads/nope"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/locker/documents", token, badBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	// list & retrieve
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, doc)}, get("/v1/locker/documents"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, doc)}, get("/v1/locker/documents/"+doc.ID))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, get("/v1/locker/documents/nope"))

	// update
	upd := marchallObj(t, document.UpdateDocument{Title: "Biology notes v2"})
	req, rec = newAuthRequest(http.MethodPut, "/v1/locker/documents/"+doc.ID, token, upd)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var updated document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if updated.Title != "Biology notes v2" || updated.Type != doc.Type || updated.FilePath != doc.FilePath {
		t.Errorf("failed! updated = %+v", updated)
	}

	// locking shuts the door again
	req, rec = newAuthRequest(http.MethodPost, "/v1/locker/lock", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Locker locked."})}, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "locker is locked"})}, get("/v1/locker/documents"))

	// unlock and destroy
	if _, resp := verifyLockerPin(t, app, token, "1234"); resp.Status.State != locker.StateUnlocked {
		t.Fatalf("failed to unlock! status = %+v", resp.Status)
	}
	req, rec = newAuthRequest(http.MethodDelete, "/v1/locker/documents/"+doc.ID, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}, get("/v1/locker/documents"))
}

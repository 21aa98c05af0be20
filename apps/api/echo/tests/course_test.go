package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func createCourse(t *testing.T, title, description, category string, weeks int) course.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := courseRepo.CreateCourse(context.Background(), course.Course{
		Title:         title,
		Description:   description,
		Category:      category,
		DurationWeeks: weeks,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func Test_courseApi_courseQuery(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	bio := createCourse(t, "Biology 101", "Cells and organisms", "science", 12)
	chem := createCourse(t, "Chemistry 101", "Atoms and bonds", "science", 10)
	hist := createCourse(t, "World History", "From antiquity onwards", "humanities", 8)

	path := func(search, category string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if category != "" {
			v.Add("category", category)
		}
		return "/v1/courses?" + v.Encode()
	}
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get all", path: "/v1/courses", token: token, wantData: marchallList(t, bio, chem, hist)},
		{name: "search (unknown)", path: path("lol", ""), token: token, wantData: empty},
		{name: "search=101", path: path("101", ""), token: token, wantData: marchallList(t, bio, chem)},
		{name: "search matches description", path: path("antiquity", ""), token: token, wantData: marchallList(t, hist)},
		{name: "category=science", path: path("", "science"), token: token, wantData: marchallList(t, bio, chem)},
		{name: "category (unknown)", path: path("", "sports"), token: token, wantData: empty},
		{name: "search & category", path: path("bio", "science"), token: token, wantData: marchallList(t, bio)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// detail
	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+bio.ID, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, bio)}, rec)
	})
	t.Run("retrieve (not found)", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/nope", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
}

func Test_courseApi_courseCreate(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	createCourse(t, "Biology 101", "Cells and organisms", "science", 12)

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", token: getToken(t, student), wantCode: http.StatusForbidden,
			body:     marchallObj(t, course.NewCourse{Title: "Physics 101", Description: "Mechanics"}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": reqMsg, "description": reqMsg}),
		},
		{
			name: "duration must be positive", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.NewCourse{Title: "Physics 101", Description: "Mechanics", DurationWeeks: -1}),
			wantData: marchallObj(t, map[string]string{"duration_weeks": "duration_weeks must be 1 or greater"}),
		},
		{
			name: "duplicate title", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.NewCourse{Title: "Biology 101", Description: "Again"}),
			wantData: marchallObj(t, map[string]string{"title": "a course with this title already exists"}),
		},
		{name: "created by teacher", token: getToken(t, teacher), wantCode: http.StatusCreated, body: marchallObj(t, course.NewCourse{Title: "Physics 101", Description: "Mechanics", Category: "science", DurationWeeks: 10}), extra: teacher.ID},
		{name: "created by admin", token: getToken(t, admin), wantCode: http.StatusCreated, body: marchallObj(t, course.NewCourse{Title: "Algebra", Description: "Numbers and letters"}), extra: admin.ID},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
				}
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if crs.ID == "" {
					t.Error("failed! empty course ID")
				}
				if wantCreator, ok := tt.extra.(string); ok && crs.CreatedBy != wantCreator {
					t.Errorf("failed! created_by = %v; want %v", crs.CreatedBy, wantCreator)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseUpdateDestroy(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacherToken := getToken(t, teacher)

	bio := createCourse(t, "Biology 101", "Cells and organisms", "science", 12)

	// students cannot touch the catalog
	req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+bio.ID, getToken(t, student), marchallObj(t, course.UpdateCourse{Title: "Hacked"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	// partial update keeps the unset fields
	req, rec = newAuthRequest(http.MethodPut, "/v1/courses/"+bio.ID, teacherToken, marchallObj(t, course.UpdateCourse{Title: "Biology 102"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var updated course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if updated.Title != "Biology 102" || updated.Description != bio.Description || updated.DurationWeeks != bio.DurationWeeks {
		t.Errorf("failed! updated = %+v", updated)
	}

	// unknown course
	req, rec = newAuthRequest(http.MethodPut, "/v1/courses/nope", teacherToken, marchallObj(t, course.UpdateCourse{Title: "Nope"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

	// destroy
	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+bio.ID, teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+bio.ID, teacherToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}

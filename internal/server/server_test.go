package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talent-hunters/bookportal/config"
	"github.com/talent-hunters/bookportal/internal/storage"
	"github.com/talent-hunters/bookportal/internal/store/memstore"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

const tokenHeader = "auth-token"

type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   *memstore.Store
}

func testConfig() config.Config {
	return config.Config{
		StoreBackend: config.StoreBackendMemory,
		Auth: config.AuthConfig{
			JWTSecret:   "test-secret",
			TokenHeader: tokenHeader,
			BcryptCost:  4,
		},
		Ledger:  config.LedgerConfig{EventsChannel: "ledger-events"},
		Storage: config.StorageConfig{PublicBaseURL: "http://localhost:5000"},
	}
}

func newTestAPI(t *testing.T, mutate func(*config.Config), covers *storage.Storage) *testAPI {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s := memstore.New()
	deps := NewDeps(cfg, MemoryRepositories(s), covers, nil, zap.NewNop())
	return &testAPI{t: t, handler: NewRouter(deps), store: s}
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(email, accountType string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/createuser", registration(email, accountType), "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AuthToken string `json:"authtoken"`
	}
	decode(a.t, rec, &resp)
	require.NotEmpty(a.t, resp.AuthToken)
	return resp.AuthToken
}

func (a *testAPI) currentUser(token string) types.User {
	a.t.Helper()
	rec := a.do(http.MethodGet, "/api/auth/getuser", nil, token)
	require.Equal(a.t, http.StatusOK, rec.Code)
	var user types.User
	decode(a.t, rec, &user)
	return user
}

func registration(email, accountType string) map[string]string {
	return map[string]string{
		"username":    "Hamza",
		"fatherName":  "Tariq",
		"familyName":  "Malik",
		"address":     "12 Canal Road, Faisalabad",
		"phoneNumber": "03001234567",
		"email":       email,
		"password":    "pass1234",
		"accountType": accountType,
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestRegisterLoginScenario(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	api.register("hamza@example.com", "User")

	rec := api.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "hamza@example.com",
		"password": "pass1234",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Success   bool   `json:"success"`
		AuthToken string `json:"authtoken"`
	}
	decode(t, rec, &login)
	assert.True(t, login.Success)
	assert.NotEmpty(t, login.AuthToken)

	wrongPassword := api.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "hamza@example.com",
		"password": "nope12345",
	}, "")
	unknownEmail := api.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "pass1234",
	}, "")
	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	assert.JSONEq(t, `{"success":false,"error":"Please try to login with correct credentials"}`, wrongPassword.Body.String())
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	user := api.currentUser(login.AuthToken)
	assert.Equal(t, "hamza@example.com", user.Email)
	assert.NotContains(t, api.do(http.MethodPost, "/api/auth/getuser", nil, login.AuthToken).Body.String(), "password")
}

func TestCreateUserRejections(t *testing.T) {
	api := newTestAPI(t, nil, nil)

	bad := registration("not-an-email", "User")
	bad["username"] = "Al"
	rec := api.do(http.MethodPost, "/api/auth/createuser", bad, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Errors []struct {
			Param string `json:"param"`
			Msg   string `json:"msg"`
		} `json:"errors"`
	}
	decode(t, rec, &verr)
	params := make([]string, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		params = append(params, e.Param)
	}
	assert.ElementsMatch(t, []string{"username", "email"}, params)

	api.register("taken@example.com", "User")
	rec = api.do(http.MethodPost, "/api/auth/createuser", registration("Taken@Example.com", "User"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Sorry a user with this email already exists"}`, rec.Body.String())

	withExtra := registration("extra@example.com", "User")
	withExtra["isAdmin"] = "true"
	rec = api.do(http.MethodPost, "/api/auth/createuser", withExtra, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	token := api.register("owner@example.com", "User")
	user := api.currentUser(token)

	rec := api.do(http.MethodDelete, "/api/users/delete/"+user.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Please authenticate using a valid token"}`, rec.Body.String())

	rec = api.do(http.MethodDelete, "/api/users/delete/"+user.ID, nil, token+"x")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := api.store.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/getuser", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer := httptest.NewRecorder()
	api.handler.ServeHTTP(bearer, req)
	assert.Equal(t, http.StatusOK, bearer.Code)

	rec = api.do(http.MethodDelete, "/api/users/delete/"+user.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted struct {
		Success string     `json:"Success"`
		User    types.User `json:"user"`
	}
	decode(t, rec, &deleted)
	assert.Equal(t, "user has been deleted", deleted.Success)
	assert.Equal(t, user.ID, deleted.User.ID)
}

func TestOrderThenProfileScenario(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	token := api.register("reader@example.com", "User")
	user := api.currentUser(token)

	book, err := api.store.Books().Create(context.Background(), types.Book{
		Name: "Mathematics 7", Subject: "Maths", Status: types.StatusAvailable, Grade: "7", Count: 2,
	})
	require.NoError(t, err)

	rec := api.do(http.MethodPost, "/api/users/addbooks", map[string]string{"userid": user.ID, "bookid": book.ID}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var added struct {
		Message string     `json:"message"`
		User    types.User `json:"user"`
	}
	decode(t, rec, &added)
	assert.Equal(t, "Book added to user", added.Message)
	assert.Equal(t, []types.BookRef{{BookID: book.ID}}, added.User.Books)

	rec = api.do(http.MethodGet, "/api/users/"+user.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Obj struct {
			Username string `json:"username"`
			ID       string `json:"id"`
		} `json:"obj"`
		Books []*types.Book `json:"books"`
	}
	decode(t, rec, &profile)
	assert.Equal(t, user.ID, profile.Obj.ID)
	require.Len(t, profile.Books, 1)
	assert.Equal(t, "Mathematics 7", profile.Books[0].Name)

	rec = api.do(http.MethodGet, "/api/users/books/orders", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []types.BookTransfer
	decode(t, rec, &orders)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].User)
	assert.Equal(t, user.ID, orders[0].User.ID)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(http.MethodPost, "/api/users/addbooks", map[string]string{"userid": "ghost", "bookid": book.ID}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/users/addbooks", map[string]string{"userid": user.ID}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStrictOrdersRejectExhaustedStock(t *testing.T) {
	api := newTestAPI(t, func(cfg *config.Config) { cfg.Ledger.StrictOrders = true }, nil)
	token := api.register("strict@example.com", "User")
	user := api.currentUser(token)

	book, err := api.store.Books().Create(context.Background(), types.Book{
		Name: "Urdu 4", Status: types.StatusAvailable, Grade: "4", Count: 1,
	})
	require.NoError(t, err)

	order := map[string]string{"userid": user.ID, "bookid": book.ID}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/users/addbooks", order, token).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/users/addbooks", order, token).Code)

	missing := map[string]string{"userid": user.ID, "bookid": "no-such-book"}
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/users/addbooks", missing, token).Code)

	current := api.currentUser(token)
	assert.Len(t, current.Books, 1)
}

func TestAdminRolePolicy(t *testing.T) {
	api := newTestAPI(t, func(cfg *config.Config) { cfg.Auth.EnforceAdminRoles = true }, nil)
	userToken := api.register("member@example.com", "User")
	adminToken := api.register("admin@example.com", "Admin")

	book, err := api.store.Books().Create(context.Background(), types.Book{
		Name: "Science 5", Status: types.StatusAvailable, Grade: "5", Count: 1,
	})
	require.NoError(t, err)

	rec := api.do(http.MethodDelete, "/api/books/delete/"+book.ID, nil, userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodDelete, "/api/books/delete/"+book.ID, nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Success":"Book has been deleted"`)

	rec = api.do(http.MethodDelete, "/api/books/delete/"+book.ID, nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/books/fetchall", nil, userToken).Code)
}

func TestRolePolicyOffByDefault(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	token := api.register("anyone@example.com", "User")

	rec := api.do(http.MethodPut, "/api/users/deleteall", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"modified":0}`, rec.Body.String())
}

func TestBookQueries(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	token := api.register("browser@example.com", "User")
	ctx := context.Background()

	for _, b := range []types.Book{
		{Name: "Physics Part 1", Subject: "Physics", Status: types.StatusAvailable, Grade: "9", Count: 1, Author: "PTB"},
		{Name: "physics part 2", Subject: "Physics", Status: "reserved", Grade: "9", Count: 1},
		{Name: "Chemistry", Subject: "Chemistry", Status: types.StatusAvailable, Grade: "10", Count: 1, Author: "PTB"},
	} {
		_, err := api.store.Books().Create(ctx, b)
		require.NoError(t, err)
	}

	names := func(rec *httptest.ResponseRecorder) []string {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var books []types.Book
		decode(t, rec, &books)
		out := make([]string, 0, len(books))
		for _, b := range books {
			out = append(out, b.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Physics Part 1"}, names(api.do(http.MethodGet, "/api/books/queryall/?name=PHYSICS", nil, "")))
	assert.Equal(t, []string{"physics part 2"}, names(api.do(http.MethodGet, "/api/books/queryall/?name=physics&status=reserved", nil, "")))
	assert.Equal(t, []string{"Physics Part 1", "physics part 2"}, names(api.do(http.MethodGet, "/api/books/class/?grade=9", nil, "")))
	assert.Equal(t, []string{"Chemistry"}, names(api.do(http.MethodGet, "/api/books/subject/?name=Chemistry", nil, "")))
	assert.Equal(t, []string{"Chemistry"}, names(api.do(http.MethodGet, "/api/books/fetch/bookname?name=Chemistry", nil, token)))
	assert.Empty(t, names(api.do(http.MethodGet, "/api/books/fetch/bookname?name=chem", nil, token)))
	assert.Equal(t, []string{"Physics Part 1", "Chemistry"}, names(api.do(http.MethodGet, "/api/books/fetch/author?name=PTB", nil, token)))
	assert.Equal(t, []string{"Physics Part 1", "Chemistry"}, names(api.do(http.MethodGet, "/api/books/available/fetch", nil, token)))
	assert.Len(t, names(api.do(http.MethodGet, "/api/books/pagination?page=abc", nil, token)), 3)
	assert.Empty(t, names(api.do(http.MethodGet, "/api/books/pagination?page=2", nil, token)))

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/books/missing-id", nil, token).Code)
}

func TestWishRoutes(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	token := api.register("donor@example.com", "User")
	user := api.currentUser(token)

	wish := map[string]string{"userid": user.ID, "bookname": "English 6", "grade": "6", "subject": "English"}
	rec := api.do(http.MethodPost, "/api/books/donatebook/send", wish, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Req sent for soldoutbook","bookname":"English 6","grade":"6"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/books/reqbook/send", wish, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/api/books/soldout/add", map[string]string{"userid": user.ID, "bookid": "b1"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Req sent for soldoutbook"}`, rec.Body.String())

	for _, path := range []string{"/api/books/donatebook/fetch", "/api/books/reqbook/fetch", "/api/books/soldout/fetch"} {
		rec := api.do(http.MethodGet, path, nil, token)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var entries []map[string]any
		decode(t, rec, &entries)
		assert.Len(t, entries, 1, path)
	}

	rec = api.do(http.MethodPost, "/api/books/reqbook/send", map[string]string{"userid": user.ID}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type coverBucket struct {
	objects map[string][]byte
}

func (c *coverBucket) EnsureBucket(context.Context) error { return nil }

func (c *coverBucket) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.objects[key] = data
	return nil
}

func (c *coverBucket) Delete(_ context.Context, key string) error {
	delete(c.objects, key)
	return nil
}

func (c *coverBucket) Bucket() string { return "covers" }

func multipartBook(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="img"; filename="`+filename+`"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestAddBookWithCover(t *testing.T) {
	bucket := &coverBucket{objects: map[string][]byte{}}
	api := newTestAPI(t, nil, storage.New(bucket))
	token := api.register("librarian@example.com", "Admin")

	fields := map[string]string{"name": "Atlas", "status": "available", "grade": "8", "count": "3", "subject": "Geography"}
	body, contentType := multipartBook(t, fields, "atlas.png", []byte("\x89PNG"))
	req := httptest.NewRequest(http.MethodPost, "/api/books/add", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(tokenHeader, token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var book types.Book
	decode(t, rec, &book)
	assert.True(t, strings.HasPrefix(book.Img, "http://localhost:5000/images/"), book.Img)
	assert.True(t, strings.HasSuffix(book.Img, "-atlas.png"), book.Img)
	assert.Equal(t, 3, book.Count)
	assert.Equal(t, []byte("\x89PNG"), bucket.objects[strings.TrimPrefix(book.Img, "http://localhost:5000/")])

	body, contentType = multipartBook(t, map[string]string{"status": "reserved"}, "", nil)
	req = httptest.NewRequest(http.MethodPut, "/api/books/update/"+book.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(tokenHeader, token)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &book)
	assert.Equal(t, "reserved", book.Status)
	assert.Equal(t, "Atlas", book.Name)
	assert.Equal(t, 3, book.Count)
}

func TestAddBookCoverWithoutStorage(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	token := api.register("librarian@example.com", "Admin")

	fields := map[string]string{"name": "Atlas", "status": "available", "grade": "8", "count": "3"}
	body, contentType := multipartBook(t, fields, "atlas.png", []byte("\x89PNG"))
	req := httptest.NewRequest(http.MethodPost, "/api/books/add", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(tokenHeader, token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = api.do(http.MethodPost, "/api/books/add", map[string]any{
		"name": "Atlas", "status": "available", "grade": "8", "count": 3,
	}, token)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	ctx := context.Background()
	for _, c := range []types.Class{{Grade: "9", Category: "matric"}, {Grade: "10", Category: "matric"}, {Grade: "1"}} {
		_, err := api.store.Catalog().CreateClass(ctx, c)
		require.NoError(t, err)
	}
	for _, s := range []string{"Urdu", "English"} {
		_, err := api.store.Catalog().CreateSubject(ctx, types.Subject{Subject: s})
		require.NoError(t, err)
	}

	rec := api.do(http.MethodGet, "/api/classes/fetchall", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var classes []types.Class
	decode(t, rec, &classes)
	require.Len(t, classes, 3)
	assert.Equal(t, []string{"1", "10", "9"}, []string{classes[0].Grade, classes[1].Grade, classes[2].Grade})

	rec = api.do(http.MethodGet, "/api/classes/category?category=matric", nil, "")
	decode(t, rec, &classes)
	assert.Len(t, classes, 2)

	rec = api.do(http.MethodGet, "/api/classes/9/category?category=matric", nil, "")
	decode(t, rec, &classes)
	assert.Len(t, classes, 1)

	rec = api.do(http.MethodGet, "/api/subjects/fetchall", nil, "")
	var subjects []types.Subject
	decode(t, rec, &subjects)
	require.Len(t, subjects, 2)
	assert.Equal(t, "English", subjects[0].Subject)

	rec = api.do(http.MethodGet, "/api/subjects/Physics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestFallbackRoutes(t *testing.T) {
	api := newTestAPI(t, nil, nil)

	rec := api.do(http.MethodGet, "/api/nothing/here", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"API endpoint not found"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Book Portal")

	rec = api.do(http.MethodGet, "/healthz", nil, "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestOpenRepositories(t *testing.T) {
	ctx := context.Background()

	repos, err := OpenRepositories(ctx, config.Config{StoreBackend: config.StoreBackendMemory})
	require.NoError(t, err)
	assert.NotNil(t, repos.Users)
	assert.NotNil(t, repos.Catalog)
	assert.NoError(t, repos.Close(ctx))

	_, err = OpenRepositories(ctx, config.Config{StoreBackend: "sqlite"})
	assert.ErrorContains(t, err, `unknown store backend "sqlite"`)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "JWT_SECRET")
}

package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/ratelimit"
	"github.com/quillpost/quillpost-server/internal/search"
	"github.com/quillpost/quillpost-server/internal/service"
	"github.com/quillpost/quillpost-server/internal/storage"
	"github.com/quillpost/quillpost-server/internal/store/sqlite"
)

const (
	testUsername = "admin"
	testPassword = "secret-pass"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api        humatest.TestAPI
	store      *sqlite.Store
	publicRoot string
}

type serverOptions struct {
	username string
	password string
	limiter  *ratelimit.KeyedRateLimiter
}

// setupTestServer creates a server backed by a temporary SQLite database,
// an in-memory search index and local uploads.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWith(t, serverOptions{username: testUsername, password: testPassword})
}

func setupTestServerWith(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	tmpDir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	operator, err := auth.NewOperator(opts.username, opts.password)
	require.NoError(t, err)

	publicRoot := filepath.Join(tmpDir, "public")
	services := &Services{
		Store:   st,
		Auth:    service.NewAuthService(operator, auth.NewSessionCredential(testSecret), opts.limiter, nil),
		Article: service.NewArticleService(st, index, nil, nil, nil),
		Upload:  service.NewUploadService(storage.NewLocalStore(publicRoot, nil), nil, nil),
		Search:  index,
	}

	s := NewServer(services, Config{PublicRoot: publicRoot}, nil)

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.api),
		store:      st,
		publicRoot: publicRoot,
	}
}

// login authenticates as the operator and returns a Cookie header argument.
func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	resp := ts.api.Post("/api/auth/login", map[string]any{
		"username": testUsername,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.Code, "login failed: %s", resp.Body.String())

	for _, c := range resp.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return "Cookie: " + c.Name + "=" + c.Value
		}
	}
	t.Fatal("login did not set the session cookie")
	return ""
}

// sessionCookie extracts the raw cookie value from a Cookie header argument.
func sessionCookie(header string) *http.Cookie {
	value := header[len("Cookie: "+auth.SessionCookieName+"="):]
	return &http.Cookie{Name: auth.SessionCookieName, Value: value}
}

// serve runs req through the full router.
func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body.Bytes(), &v), "body: %s", body.String())
	return v
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func pngData(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := range 16 {
		for y := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

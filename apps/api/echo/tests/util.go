package tests

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/masomo-lab/apps/api/echo"
	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/storage/database/sqlboiler"
	"github.com/trezcool/masomo-lab/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type env struct {
	app    Server
	db     *sql.DB
	repo   progress.Repository
	conf   *core.Config
	logger *testutil.Logger
}

func newTestConfig() *core.Config {
	return &core.Config{
		AppName:   "Masomo Lab",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "sqlite", Name: ":memory:"},
	}
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := newTestConfig()
	logger := new(testutil.Logger)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	repo := boiledrepos.NewCheckpointRepository(db)

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	progress.InitValidators(validate, translator, conf.Components)
	svc := progress.NewService(db, repo, logger, conf)

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			ProgressSvc:    svc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	t.Cleanup(func() { _ = app.Close() })

	return &env{app: app, db: db, repo: repo, conf: conf, logger: logger}
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

func getToken(t *testing.T, conf *core.Config, subject string, roles ...string) string {
	token, err := GenerateToken(NewClaims(conf, subject, roles), conf.SecretKey)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// checkpointsBody decodes a checkpoints response.
type checkpointsBody struct {
	Checkpoints     map[string]progress.ComponentCheckpoint `json:"checkpoints"`
	OverallProgress float64                                 `json:"overall_progress"`
}

func decodeCheckpoints(t *testing.T, rec *httptest.ResponseRecorder) checkpointsBody {
	t.Helper()
	var body checkpointsBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding %q failed: %v", rec.Body.String(), err)
	}
	return body
}

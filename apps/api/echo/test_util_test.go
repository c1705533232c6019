package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
	dummydb "github.com/umoja/campus/storage/database/dummy"
)

var testConf = &core.Config{
	AppName:   "Campus",
	Env:       "test",
	TestMode:  true,
	SecretKey: []byte("secret"),
	Server: core.ServerConfig{
		JWTExpirationDelta: 10 * time.Minute,
	},
}

type httpErr struct {
	Error string `json:"error"`
}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (Server, *grade.Service, *dummydb.DB) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	svc := grade.NewService(
		dummydb.NewGradeRepository(db),
		dummydb.NewEnrollmentRepository(db),
		dummydb.NewAssignmentScoreRepository(db),
		dummydb.NewCourseRepository(db),
		dummydb.NewAuditSink(db),
		nil,
		testConf,
	)
	srv := NewServer(ServerDeps{
		Conf:           testConf,
		Logger:         nopLogger{},
		GradeSvc:       svc,
		DisableReqLogs: true,
	})
	return srv, svc, db
}

func getToken(t *testing.T, actor grade.Actor) string {
	token, err := GenerateToken(NewActorClaims(actor, testConf), testConf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
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

func marshal(t *testing.T, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal() failed: %v", err)
	}
	return data
}

func decodeRecord(t *testing.T, body []byte) grade.GradeRecord {
	var rec grade.GradeRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decodeRecord() failed: %v", err)
	}
	return rec
}

package constraint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"reminder/internal/apiserver/auth"
	"reminder/internal/apiserver/event"
	"reminder/internal/shared/model"
	"reminder/internal/shared/storage/memstore"
	"reminder/internal/shared/storage/repository"
)

var (
	alice = &model.User{ID: bson.NewObjectID(), Username: "alice"}
	bob   = &model.User{ID: bson.NewObjectID(), Username: "bob"}
)

type testEnv struct {
	svc  *event.Service
	mux  *http.ServeMux
	evID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := event.NewService(repository.NewEventRepository(memstore.New()), nil)
	mux := http.NewServeMux()
	NewHandler(svc).RegisterRoutes(mux)

	start := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	ev, err := svc.Create(context.Background(), alice, &model.EventInput{
		Name:         "dentist",
		TimeDetails:  model.EventTime{StartTime: start, EndTime: start.Add(time.Hour)},
		Presentation: model.Presentation{Color: "white"},
	})
	require.NoError(t, err)
	return &testEnv{svc: svc, mux: mux, evID: ev.ID.Hex()}
}

func (e *testEnv) do(user *model.User, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.WithAuthUser(req.Context(), user))
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) base() string {
	return "/events/" + e.evID + "/constraint"
}

func decodeRecord(t *testing.T, rr *httptest.ResponseRecorder) model.ConstraintRecord {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rec model.ConstraintRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	return rec
}

func TestAdd_DispatchByType(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		kind model.ConstraintType
	}{
		{"stage", `{"name":"after","constraint_type":"EventStageConstraint","event_id":"` + env.evID + `"}`, model.ConstraintTypeStage},
		{"color", `{"name":"red only","constraint_type":"EventColorConstraint","color":"#D60404"}`, model.ConstraintTypeColor},
		{"time", `{"name":"morning","constraint_type":"EventTimeConstraint","start_time":"2024-02-01T08:00:00Z","end_time":"2024-02-01T12:00:00Z"}`, model.ConstraintTypeTime},
		{"short alias", `{"name":"blue","constraint_type":"color","color":"blue"}`, model.ConstraintTypeColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := decodeRecord(t, env.do(alice, http.MethodPost, env.base(), tt.body))
			assert.Equal(t, tt.kind, rec.Type)
			assert.NotEmpty(t, rec.ID)
		})
	}

	rr := env.do(alice, http.MethodGet, env.base(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []model.ConstraintRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, len(tests))
}

func TestAdd_ShapeMismatch(t *testing.T) {
	env := newTestEnv(t)
	bodies := []string{
		`{"name":"x","constraint_type":"EventColorConstraint","event_id":"abc"}`,
		`{"name":"x","constraint_type":"EventStageConstraint","color":"red"}`,
		`{"name":"x","constraint_type":"EventTimeConstraint","start_time":"2024-02-01T08:00:00Z"}`,
		`{"name":"x","constraint_type":"EventWeatherConstraint"}`,
		`{"name":"x"}`,
		`{"name":"` + strings.Repeat("n", 26) + `","constraint_type":"color","color":"red"}`,
	}
	for _, body := range bodies {
		rr := env.do(alice, http.MethodPost, env.base(), body)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, body)
	}
}

func TestAddKind_ColorNormalized(t *testing.T) {
	env := newTestEnv(t)

	// 请求体中的类型被路径覆盖
	rec := decodeRecord(t, env.do(alice, http.MethodPost, env.base()+"/color",
		`{"name":"alarm","constraint_type":"EventStageConstraint","color":"#D60404"}`))
	assert.Equal(t, model.ConstraintTypeColor, rec.Type)
	assert.Equal(t, "#d60404", rec.Color)
	assert.Equal(t, "alarm", rec.Name)

	// 未提供名称时使用颜色名
	rec = decodeRecord(t, env.do(alice, http.MethodPost, env.base()+"/color", `{"color":"#FF0000"}`))
	assert.Equal(t, "red", rec.Name)
	assert.Equal(t, "#ff0000", rec.Color)

	rr := env.do(alice, http.MethodPost, env.base()+"/color", `{"color":"not a color"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestAddKind_StageDefaultsToPathEvent(t *testing.T) {
	env := newTestEnv(t)
	rec := decodeRecord(t, env.do(alice, http.MethodPost, env.base()+"/stage", `{"name":"self"}`))
	assert.Equal(t, model.ConstraintTypeStage, rec.Type)
	assert.Equal(t, env.evID, rec.EventID)

	rr := env.do(alice, http.MethodPost, env.base()+"/weather", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestAdd_Cap(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < model.MaxConstraints; i++ {
		decodeRecord(t, env.do(alice, http.MethodPost, env.base()+"/color", `{"color":"red"}`))
	}
	rr := env.do(alice, http.MethodPost, env.base()+"/color", `{"color":"red"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "too many constraints")
}

func TestForeignEvent(t *testing.T) {
	env := newTestEnv(t)

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, env.base(), ""},
		{http.MethodPost, env.base(), `{"name":"x","constraint_type":"color","color":"red"}`},
		{http.MethodPost, env.base() + "/color", `{"color":"red"}`},
		{http.MethodDelete, env.base() + "/" + bson.NewObjectID().Hex(), ""},
	}
	for _, req := range requests {
		rr := env.do(bob, req.method, req.path, req.body)
		assert.Equal(t, http.StatusNotFound, rr.Code, req.method+" "+req.path)
	}

	records, err := env.svc.Constraints(context.Background(), alice, env.evID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDelete_NotImplemented(t *testing.T) {
	env := newTestEnv(t)
	rec := decodeRecord(t, env.do(alice, http.MethodPost, env.base()+"/color", `{"color":"red"}`))

	rr := env.do(alice, http.MethodDelete, env.base()+"/"+rec.ID, "")
	require.Equal(t, http.StatusNotImplemented, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, env.evID, body["event_id"])
	assert.Equal(t, rec.ID, body["constraint_id"])

	records, err := env.svc.Constraints(context.Background(), alice, env.evID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	rr = env.do(alice, http.MethodDelete, "/events/nothex!/constraint/"+rec.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// deletingService DeleteConstraint 返回成功的服务
type deletingService struct {
	*event.Service
	deleted []string
}

func (s *deletingService) DeleteConstraint(ctx context.Context, user *model.User, eventID, constraintID string) error {
	s.deleted = append(s.deleted, constraintID)
	return nil
}

func TestDelete_Success(t *testing.T) {
	env := newTestEnv(t)
	svc := &deletingService{Service: env.svc}
	mux := http.NewServeMux()
	NewHandler(svc).RegisterRoutes(mux)

	constraintID := bson.NewObjectID().Hex()
	req := httptest.NewRequest(http.MethodDelete, env.base()+"/"+constraintID, nil)
	req = req.WithContext(auth.WithAuthUser(req.Context(), alice))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, []string{constraintID}, svc.deleted)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	auditdomain "github.com/smallbiznis/dormmenu/internal/audit/domain"
	auditrepository "github.com/smallbiznis/dormmenu/internal/audit/repository"
	auditservice "github.com/smallbiznis/dormmenu/internal/audit/service"
	"github.com/smallbiznis/dormmenu/internal/authorization"
	"github.com/smallbiznis/dormmenu/internal/clock"
	"github.com/smallbiznis/dormmenu/internal/config"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
	dishrepository "github.com/smallbiznis/dormmenu/internal/dish/repository"
	dishservice "github.com/smallbiznis/dormmenu/internal/dish/service"
	"github.com/smallbiznis/dormmenu/internal/identity"
	ingestdomain "github.com/smallbiznis/dormmenu/internal/ingest/domain"
	ingestservice "github.com/smallbiznis/dormmenu/internal/ingest/service"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
	menurepository "github.com/smallbiznis/dormmenu/internal/menu/repository"
	menuservice "github.com/smallbiznis/dormmenu/internal/menu/service"
	"github.com/smallbiznis/dormmenu/internal/observability"
	"github.com/smallbiznis/dormmenu/internal/providers/pdf"
	"github.com/smallbiznis/dormmenu/internal/ratelimit"
	"github.com/smallbiznis/dormmenu/internal/testutil"
	votedomain "github.com/smallbiznis/dormmenu/internal/vote/domain"
	voterepository "github.com/smallbiznis/dormmenu/internal/vote/repository"
	voteservice "github.com/smallbiznis/dormmenu/internal/vote/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// roleAuthorizer grants a fixed action set per role.
type roleAuthorizer struct {
	grants map[string]map[string]bool
}

func (a roleAuthorizer) Authorize(_ context.Context, _ string, role string, _ string, action string) error {
	if a.grants[role][action] {
		return nil
	}
	return authorization.ErrForbidden
}

func newRoleAuthorizer() roleAuthorizer {
	editor := map[string]bool{
		authorization.ActionMenuView:   true,
		authorization.ActionMenuCreate: true,
		authorization.ActionMenuUpdate: true,
		authorization.ActionMenuDelete: true,
	}
	admin := map[string]bool{
		authorization.ActionMenuPublish:  true,
		authorization.ActionMenuIngest:   true,
		authorization.ActionDishRecount:  true,
		authorization.ActionAuditLogView: true,
	}
	for action := range editor {
		admin[action] = true
	}
	return roleAuthorizer{grants: map[string]map[string]bool{
		string(identity.RoleEditor): editor,
		string(identity.RoleAdmin):  admin,
	}}
}

type harness struct {
	engine   *gin.Engine
	verifier *identity.JWTVerifier
}

func newHarness(t *testing.T, limiter *ratelimit.Limiter) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t,
		&dishdomain.Dish{},
		&votedomain.Vote{},
		&menudomain.Menu{},
		&auditdomain.AuditLog{},
	)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	verifier, err := identity.NewJWTVerifier(config.Config{AuthJWTSecret: "server-test"}, clk)
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
	})
	dishRepo := dishrepository.Provide()
	dishes := dishservice.New(dishservice.Params{
		DB: db, Log: log, GenID: node, Repo: dishRepo, Clock: clk,
	})
	votes := voteservice.New(voteservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: voterepository.Provide(), Dishes: dishes, DishRepo: dishRepo,
		AuditSvc: auditSvc,
	})
	menus := menuservice.New(menuservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:     menurepository.Provide(),
		Dishes:   dishes,
		Policy:   config.StaticMenuPolicy(config.DefaultMenuPolicy()),
		PDF:      pdf.New(),
		AuditSvc: auditSvc,
	})
	ingestSvc := ingestservice.New(ingestservice.Params{
		Log: log, Clock: clk, Dishes: dishes, Menus: menus, AuditSvc: auditSvc,
	})

	engine := NewEngine(observability.Config{}, nil)
	srv := NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{},
		Log:       log,
		Verifier:  verifier,
		DishSvc:   dishes,
		VoteSvc:   votes,
		MenuSvc:   menus,
		AuthzSvc:  newRoleAuthorizer(),
		AuditSvc:  auditSvc,
		IngestSvc: ingestSvc,
		Limiter:   limiter,
	})
	srv.RegisterPublicRoutes()
	srv.RegisterAdminRoutes()

	return harness{engine: engine, verifier: verifier}
}

func (h harness) token(t *testing.T, userID string, role identity.Role) string {
	t.Helper()
	token, err := h.verifier.Issue(identity.Identity{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (h harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Data
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVotes_RequireBearerToken(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/votes/like", "", voteRequest{Dish: "Tea"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = h.do(t, http.MethodPost, "/api/votes/like", "not-a-jwt", voteRequest{Dish: "Tea"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVotes_LikeThenStats(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.token(t, "alice", identity.RoleUser)
	bob := h.token(t, "bob", identity.RoleUser)

	rec := h.do(t, http.MethodPost, "/api/votes/like", alice, voteRequest{Dish: "Tea"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeData[votedomain.Result](t, rec)
	assert.Equal(t, int64(1), result.Likes)
	require.NotNil(t, result.UserVote)
	assert.Equal(t, votedomain.VoteLike, *result.UserVote)

	rec = h.do(t, http.MethodPost, "/api/votes/dislike", bob, voteRequest{Dish: "Tea"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/dishes/stats?names=Tea,Borscht&names=Tea", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeData[[]dishdomain.Stats](t, rec)
	require.Len(t, stats, 3)
	assert.Equal(t, dishdomain.Stats{Name: "Tea", Likes: 1, Dislikes: 1}, stats[0])
	assert.Equal(t, dishdomain.Stats{Name: "Borscht"}, stats[1])

	rec = h.do(t, http.MethodGet, "/api/votes?dish=Tea", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_vote":"like"`)

	rec = h.do(t, http.MethodGet, "/api/dishes/detail?name=Tea", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dish := decodeData[dishdomain.Response](t, rec)
	assert.Equal(t, "Tea", dish.Name)
	assert.Equal(t, int64(1), dish.Likes)

	rec = h.do(t, http.MethodGet, "/api/dishes/detail?name=Plov", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVotes_BlankDishIsValidationError(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.token(t, "alice", identity.RoleUser)

	rec := h.do(t, http.MethodPost, "/api/votes/like", alice, voteRequest{Dish: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "invalid_dish_name", payload.Code)
}

func TestVotes_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewWithClient(client, config.RateLimitConfig{
		VoteRate:             0.001,
		VoteBurst:            2,
		IngestLockTTLSeconds: 60,
	})
	require.NoError(t, err)

	h := newHarness(t, limiter)
	alice := h.token(t, "alice", identity.RoleUser)
	bob := h.token(t, "bob", identity.RoleUser)

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodPost, "/api/votes/like", alice, voteRequest{Dish: "Tea"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := h.do(t, http.MethodPost, "/api/votes/like", alice, voteRequest{Dish: "Tea"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, rateLimitReasonUserVote, rec.Header().Get("X-Rate-Limited-Reason"))

	rec = h.do(t, http.MethodPost, "/api/votes/like", bob, voteRequest{Dish: "Tea"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminMenus_Lifecycle(t *testing.T) {
	h := newHarness(t, nil)
	editor := h.token(t, "ed", identity.RoleEditor)
	admin := h.token(t, "root", identity.RoleAdmin)
	user := h.token(t, "alice", identity.RoleUser)

	create := menudomain.CreateRequest{
		City:     "Tashkent",
		Date:     "2025-03-03",
		MealSlot: menudomain.MealSlotBreakfast,
		Dishes:   []string{"Tea", "Bread"},
		Calories: 450,
	}

	rec := h.do(t, http.MethodPost, "/admin/menus", user, create)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/admin/menus", editor, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[menudomain.Response](t, rec)
	assert.Equal(t, menudomain.StatusDraft, created.Status)
	assert.Equal(t, "ed", created.AuthorID)

	rec = h.do(t, http.MethodPost, "/admin/menus", editor, create)
	require.Equal(t, http.StatusConflict, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "duplicate_menu", payload.Code)

	rec = h.do(t, http.MethodGet, "/api/menus?city=Tashkent&year=2025&month=3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]menudomain.Response](t, rec))

	path := "/admin/menus/" + created.ID
	rec = h.do(t, http.MethodPatch, path, editor, map[string]any{"calories": 500})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, decodeData[menudomain.Response](t, rec).Calories)

	rec = h.do(t, http.MethodPost, path+"/publish", editor, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, path+"/publish", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, menudomain.StatusPublished, decodeData[menudomain.Response](t, rec).Status)

	rec = h.do(t, http.MethodPost, path+"/publish", admin, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_published", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodPatch, path, editor, map[string]any{"calories": 1})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "menu_published", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodDelete, path, editor, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/menus/daily?city=Tashkent&date=2025-03-03", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decodeData[menudomain.DailyResponse](t, rec)
	require.NotNil(t, daily.Breakfast)
	assert.Nil(t, daily.Dinner)
	assert.Equal(t, []string{"Tea", "Bread"}, daily.Breakfast.Dishes)

	rec = h.do(t, http.MethodGet, "/api/menus/monthly.pdf?city=Tashkent&year=2025&month=3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdfContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestAdminMenus_ValidationAndNotFound(t *testing.T) {
	h := newHarness(t, nil)
	editor := h.token(t, "ed", identity.RoleEditor)

	rec := h.do(t, http.MethodPost, "/admin/menus", editor, menudomain.CreateRequest{
		City:     "Tashkent",
		Date:     "2025-02-30",
		MealSlot: menudomain.MealSlotDinner,
		Dishes:   []string{"Soup"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "invalid_date", payload.Code)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "date", payload.Errors[0].Field)

	rec = h.do(t, http.MethodPost, "/admin/menus", editor, `{"city":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Errors[0].Code)

	rec = h.do(t, http.MethodGet, "/admin/menus/123456789", editor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/admin/menus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminMenus_BulkAndMonthPublish(t *testing.T) {
	h := newHarness(t, nil)
	editor := h.token(t, "ed", identity.RoleEditor)
	admin := h.token(t, "root", identity.RoleAdmin)

	var ids []string
	for day := 3; day <= 4; day++ {
		rec := h.do(t, http.MethodPost, "/admin/menus", editor, menudomain.CreateRequest{
			City:     "Tashkent",
			Date:     fmt.Sprintf("2025-03-%02d", day),
			MealSlot: menudomain.MealSlotDinner,
			Dishes:   []string{"Soup"},
			Calories: 600,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeData[menudomain.Response](t, rec).ID)
	}

	rec := h.do(t, http.MethodPost, "/admin/menus/publish", admin, publishMenusRequest{IDs: []string{ids[0], "999", "junk"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"data":{"count":1,"ids":[%q]}}`, ids[0]), rec.Body.String())

	month := menudomain.MonthRequest{City: "Tashkent", Year: 2025, Month: 3}
	rec = h.do(t, http.MethodPost, "/admin/menus/publish-month", admin, month)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[menudomain.PublishMonthResult](t, rec)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, []string{ids[1]}, result.IDs)

	rec = h.do(t, http.MethodPost, "/admin/menus/publish-month", admin, month)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "nothing_to_publish", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodPost, "/admin/menus/publish", admin, publishMenusRequest{IDs: ids})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"count":0,"ids":[]}}`, rec.Body.String())
}

func TestAdminIngest_ReconcilesYAMLBatch(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.token(t, "root", identity.RoleAdmin)

	batch := `
city: Tashkent
year: 2025
month: 3
days:
  - day: 1
    breakfast: {dishes: [Tea, Bread], calories: 400}
  - day: 2
    dinner: {dishes: [Soup], calories: 600}
`
	rec := h.do(t, http.MethodPost, "/admin/menus/ingest", admin, batch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeData[ingestdomain.Report](t, rec)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Skipped)
	assert.ElementsMatch(t, []string{"Tea", "Bread", "Soup"}, report.NewFoods)

	rec = h.do(t, http.MethodPost, "/admin/menus/ingest", admin, batch)
	require.Equal(t, http.StatusOK, rec.Code)
	report = decodeData[ingestdomain.Report](t, rec)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, report.NewFoods)

	rec = h.do(t, http.MethodPost, "/admin/menus/ingest", admin, "city: [")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_batch", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodGet, "/admin/audit-logs?action=menu.ingested", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeData[[]auditdomain.AuditLog](t, rec)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, "root", *logs[0].ActorID)
}

func TestAdminRecount(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.token(t, "root", identity.RoleAdmin)
	alice := h.token(t, "alice", identity.RoleUser)

	rec := h.do(t, http.MethodPost, "/api/votes/like", alice, voteRequest{Dish: "Tea"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/admin/dishes/recount", admin, recountDishRequest{Name: "Tea"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[votedomain.RecountResult](t, rec)
	assert.False(t, result.Repaired)
	assert.Equal(t, int64(1), result.Likes)

	rec = h.do(t, http.MethodPost, "/admin/dishes/recount", admin, recountDishRequest{Name: "Plov"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/admin/audit-logs?target_type=dish", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeData[[]auditdomain.AuditLog](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, auditdomain.ActionDishRecounted, logs[0].Action)
	require.NotNil(t, logs[0].TargetID)
	assert.Equal(t, "Tea", *logs[0].TargetID)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
		code   string
	}{
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", ""},
		{fmt.Errorf("wrap: %w", menudomain.ErrNothingToPublish), http.StatusConflict, "conflict", "nothing_to_publish"},
		{fmt.Errorf("%w: bad yaml", ingestdomain.ErrInvalidBatch), http.StatusBadRequest, "validation_error", "invalid_batch"},
		{menudomain.ErrCityNotAllowed, http.StatusBadRequest, "validation_error", "city_not_allowed"},
		{ingestdomain.ErrIngestInProgress, http.StatusConflict, "conflict", "ingest_in_progress"},
		{identity.ErrInvalidToken, http.StatusUnauthorized, "unauthorized", ""},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{votedomain.ErrDishNotFound, http.StatusNotFound, "not_found", ""},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.typ, payload.Type, tc.err.Error())
		assert.Equal(t, tc.code, payload.Code, tc.err.Error())
	}

	typ, code := classifyErrorForLog(menudomain.ErrTooManyDishes)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "too_many_dishes", code)
}

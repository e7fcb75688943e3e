package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weather-insights-service/internal/auth"
	"github.com/kjstillabower/weather-insights-service/internal/cache"
	"github.com/kjstillabower/weather-insights-service/internal/client"
	"github.com/kjstillabower/weather-insights-service/internal/export"
	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/store"
)

type failingInsightsStore struct {
	*store.MemoryStore
	err error
}

func (f *failingInsightsStore) ReplaceInsights(ctx context.Context, s models.InsightsSummary) (models.InsightsSummary, error) {
	return models.InsightsSummary{}, f.err
}

func sampleLog(temp, humidity float64, ts time.Time) models.WeatherLog {
	return models.WeatherLog{
		City:         "Bogotá",
		TemperatureC: models.Float(temp),
		Humidity:     models.Float(humidity),
		WindSpeedMS:  models.Float(3),
		Timestamp:    ts,
	}
}

func newWeatherService(t *testing.T) (*WeatherService, *store.MemoryStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	st := store.NewMemoryStore()
	return NewWeatherService(st, st, "Bogotá", zap.New(core)), st, logs
}

// TestWeatherService_CreateLog_RecomputesInsights verifies that ingesting an
// observation refreshes the stored summary before returning.
func TestWeatherService_CreateLog_RecomputesInsights(t *testing.T) {
	svc, st, _ := newWeatherService(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	stored, err := svc.CreateLog(ctx, sampleLog(20, 60, base))
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	_, err = svc.CreateLog(ctx, sampleLog(24, 70, base.Add(time.Hour)))
	require.NoError(t, err)

	summary, found, err := st.GetInsights(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, summary.TotalRecords)
	assert.Equal(t, "Bogotá", summary.City)

	var data models.InsightsData
	require.NoError(t, json.Unmarshal(summary.Data, &data))
	require.NotNil(t, data.MeanTemperature)
	assert.InDelta(t, 22.0, *data.MeanTemperature, 0.001)
	assert.Equal(t, models.TrendStable, data.Trend)
}

// TestWeatherService_CreateLog_DefaultsTimestamp verifies that a zero timestamp is filled in.
func TestWeatherService_CreateLog_DefaultsTimestamp(t *testing.T) {
	svc, _, _ := newWeatherService(t)
	stored, err := svc.CreateLog(context.Background(), models.WeatherLog{TemperatureC: models.Float(10)})
	require.NoError(t, err)
	assert.False(t, stored.Timestamp.IsZero())
}

// TestWeatherService_CreateLog_RecomputeFailure verifies that a failed recompute is reported.
func TestWeatherService_CreateLog_RecomputeFailure(t *testing.T) {
	st := store.NewMemoryStore()
	boom := errors.New("write failed")
	svc := NewWeatherService(st, &failingInsightsStore{MemoryStore: st, err: boom}, "Bogotá", nil)

	_, err := svc.CreateLog(context.Background(), sampleLog(20, 50, time.Now()))
	assert.ErrorIs(t, err, boom)

	logs, err := st.ListLogs(context.Background(), store.Ascending)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

// TestWeatherService_CreateLog_RetryWithSameID verifies that an observation re-posted
// after a failed recompute is stored once and the retry still refreshes insights.
func TestWeatherService_CreateLog_RetryWithSameID(t *testing.T) {
	st := store.NewMemoryStore()
	failing := &failingInsightsStore{MemoryStore: st, err: errors.New("write failed")}
	ctx := context.Background()
	in := sampleLog(20, 50, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	in.ID = " obs-1 "

	_, err := NewWeatherService(st, failing, "Bogotá", nil).CreateLog(ctx, in)
	require.Error(t, err)

	stored, err := NewWeatherService(st, st, "Bogotá", nil).CreateLog(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "obs-1", stored.ID)

	logs, err := st.ListLogs(ctx, store.Ascending)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	summary, found, err := st.GetInsights(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, summary.TotalRecords)
}

// TestWeatherService_ListLogs_NewestFirst verifies descending timestamp order.
func TestWeatherService_ListLogs_NewestFirst(t *testing.T) {
	svc, _, _ := newWeatherService(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.CreateLog(ctx, sampleLog(float64(10+i), 50, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	logs, err := svc.ListLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].Timestamp.After(logs[1].Timestamp))
	assert.True(t, logs[1].Timestamp.After(logs[2].Timestamp))
}

// TestWeatherService_Recompute_EmptyStore verifies the placeholder summary and warning.
func TestWeatherService_Recompute_EmptyStore(t *testing.T) {
	svc, _, logs := newWeatherService(t)

	summary, err := svc.Recompute(context.Background(), observability.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalRecords)
	assert.JSONEq(t, `{"message":"No data available."}`, string(summary.Data))
	assert.Equal(t, 1, logs.FilterMessage("no observations to compute insights").Len())
}

// TestWeatherService_GetInsights_ComputesWhenMissing verifies the lazy compute on first read.
func TestWeatherService_GetInsights_ComputesWhenMissing(t *testing.T) {
	svc, st, _ := newWeatherService(t)
	ctx := context.Background()
	_, err := st.InsertLog(ctx, sampleLog(18, 40, time.Now()))
	require.NoError(t, err)

	summary, err := svc.GetInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRecords)

	_, found, err := st.GetInsights(ctx)
	require.NoError(t, err)
	assert.True(t, found)
}

// TestWeatherService_GetInsights_PatchesMissingCity verifies that a stored summary
// without a city gets only its label set.
func TestWeatherService_GetInsights_PatchesMissingCity(t *testing.T) {
	svc, st, logs := newWeatherService(t)
	ctx := context.Background()
	_, err := st.ReplaceInsights(ctx, models.InsightsSummary{TotalRecords: 7, Data: json.RawMessage(`{"trend":"stable"}`)})
	require.NoError(t, err)

	summary, err := svc.GetInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bogotá", summary.City)
	assert.Equal(t, 7, summary.TotalRecords)
	assert.JSONEq(t, `{"trend":"stable"}`, string(summary.Data))
	assert.Equal(t, 1, logs.FilterMessage("patched insights city").Len())
}

// TestWeatherService_GetInsights_ReturnsStored verifies that a complete summary is served as stored.
func TestWeatherService_GetInsights_ReturnsStored(t *testing.T) {
	svc, st, _ := newWeatherService(t)
	ctx := context.Background()
	_, err := st.ReplaceInsights(ctx, models.InsightsSummary{City: "Lima", TotalRecords: 3, Data: json.RawMessage(`{}`)})
	require.NoError(t, err)

	summary, err := svc.GetInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lima", summary.City)
	assert.Equal(t, 3, summary.TotalRecords)
}

// TestWeatherService_Exports verifies both export formats.
func TestWeatherService_Exports(t *testing.T) {
	svc, _, _ := newWeatherService(t)
	ctx := context.Background()

	empty, err := svc.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, export.NoData, string(empty))

	_, err = svc.CreateLog(ctx, sampleLog(21.5, 55, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)

	csvBytes, err := svc.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(csvBytes), "21.5")

	xlsx, err := svc.ExportXLSX(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(xlsx[:2]))
}

func newUserService(t *testing.T) (*UserService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewUserService(st, auth.NewHasher(bcrypt.MinCost), nil), st
}

// TestUserService_Create verifies hashing, email normalization and the default role.
func TestUserService_Create(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, NewUser{Name: " Ana ", Email: " Ana@Example.COM ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")))

	_, err = svc.Create(ctx, NewUser{Name: "Other", Email: "ANA@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailInUse)
}

// TestUserService_Update verifies partial updates and conflict handling.
func TestUserService_Update(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	ana, err := svc.Create(ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewUser{Name: "Bo", Email: "bo@example.com", Password: "pw"})
	require.NoError(t, err)

	name, role, password := "Ana Maria", "admin", "newpass"
	updated, err := svc.Update(ctx, ana.ID, models.UserUpdate{Name: &name, Role: &role, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "admin", updated.Role)
	assert.Equal(t, "ana@example.com", updated.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpass")))

	same := "ANA@example.com"
	_, err = svc.Update(ctx, ana.ID, models.UserUpdate{Email: &same})
	assert.NoError(t, err)

	taken := "bo@example.com"
	_, err = svc.Update(ctx, ana.ID, models.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = svc.Update(ctx, "missing", models.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// TestUserService_GetListDelete verifies lookup, listing and deletion.
func TestUserService_GetListDelete(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	u, err := svc.Create(ctx, NewUser{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, u.ID))
	_, err = svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, u.ID), ErrUserNotFound)
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	users, _ := newUserService(t)
	return NewAuthService(users, auth.NewTokens("test-secret", time.Hour), nil)
}

// TestAuthService_RegisterAndLogin verifies the register then login round trip.
func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	_, err = svc.Register(ctx, "Ana", "ana@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailInUse)

	res, err := svc.Login(ctx, "ANA@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, UserSummary{ID: u.ID, Name: "Ana", Email: "ana@example.com", Role: models.RoleUser}, res.User)

	id, err := svc.Authenticate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, models.RoleUser, id.Role)
}

// TestAuthService_Login_Rejects verifies that unknown emails and wrong passwords
// fail the same way.
func TestAuthService_Login_Rejects(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

type fakePokemonClient struct {
	listCalls   int32
	detailCalls int32
	lastLimit   int
	lastOffset  int
	list        []models.PokemonSummary
	detail      models.Pokemon
	err         error
}

func (f *fakePokemonClient) ListPokemon(ctx context.Context, limit, offset int) ([]models.PokemonSummary, error) {
	atomic.AddInt32(&f.listCalls, 1)
	f.lastLimit, f.lastOffset = limit, offset
	return f.list, f.err
}

func (f *fakePokemonClient) GetPokemon(ctx context.Context, idOrName string) (models.Pokemon, error) {
	atomic.AddInt32(&f.detailCalls, 1)
	if f.err != nil {
		return models.Pokemon{}, f.err
	}
	p := f.detail
	p.Name = idOrName
	return p, nil
}

func newPokemonService(c client.PokemonClient) *PokemonService {
	return NewPokemonService(c, cache.NewInMemoryCache(), PokemonConfig{PageSize: 20, TotalCount: 1302}, nil)
}

// TestPokemonService_ListPokemon verifies paging math and caching of pages.
func TestPokemonService_ListPokemon(t *testing.T) {
	fake := &fakePokemonClient{list: []models.PokemonSummary{{ID: "21", Name: "spearow"}}}
	svc := newPokemonService(fake)
	ctx := context.Background()

	page, err := svc.ListPokemon(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 66, page.TotalPages)
	assert.Equal(t, 20, fake.lastLimit)
	assert.Equal(t, 20, fake.lastOffset)
	assert.Equal(t, "spearow", page.Results[0].Name)

	_, err = svc.ListPokemon(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.listCalls))

	first, err := svc.ListPokemon(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 0, fake.lastOffset)
}

// TestPokemonService_GetPokemon verifies caching and error mapping of detail lookups.
func TestPokemonService_GetPokemon(t *testing.T) {
	fake := &fakePokemonClient{detail: models.Pokemon{ID: 25, Types: []string{"electric"}}}
	svc := newPokemonService(fake)
	ctx := context.Background()

	p, err := svc.GetPokemon(ctx, "Pikachu")
	require.NoError(t, err)
	assert.Equal(t, "pikachu", p.Name)
	assert.Equal(t, 25, p.ID)

	_, err = svc.GetPokemon(ctx, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.detailCalls))

	_, err = svc.GetPokemon(ctx, "bad name!")
	assert.ErrorIs(t, err, ErrPokemonNotFound)

	fake.err = client.ErrNotFound
	_, err = svc.GetPokemon(ctx, "missingno")
	assert.ErrorIs(t, err, ErrPokemonNotFound)

	fake.err = client.ErrUpstreamFailure
	_, err = svc.GetPokemon(ctx, "mew")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, client.ErrUpstreamFailure)
}

// TestPokemonService_Search verifies that every search failure reads as not found.
func TestPokemonService_Search(t *testing.T) {
	fake := &fakePokemonClient{detail: models.Pokemon{ID: 1}}
	svc := newPokemonService(fake)
	ctx := context.Background()

	p, err := svc.Search(ctx, "  Bulbasaur ")
	require.NoError(t, err)
	assert.Equal(t, "bulbasaur", p.Name)

	_, err = svc.Search(ctx, "")
	assert.ErrorIs(t, err, ErrPokemonNotFound)

	fake.err = client.ErrUpstreamFailure
	_, err = svc.Search(ctx, "ivysaur")
	assert.ErrorIs(t, err, ErrPokemonNotFound)
	assert.NotErrorIs(t, err, ErrUpstream)
}

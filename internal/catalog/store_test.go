// internal/catalog/store_test.go
package catalog

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

var placeColumns = []string{
	"place_id", "name", "type", "district", "indoor", "noise", "romantic",
	"budget_level", "walk_score", "alcohol_available", "extrovert_friendly", "tags",
}

// ==========================
// Postgres
// ==========================

func TestPostgresSource_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(placeColumns).
		AddRow("p001", "스타벅스 광화문점", "cafe", "종로구", true, 3, 2, 2, 1.0, false, "yes", "프랜차이즈 작업 실내").
		AddRow("p002", "어니언 안국", "cafe", "종로구", true, 2, 3, 3, 2.0, false, nil, "베이커리 감성 데이트")

	mock.ExpectQuery(`SELECT place_id, name, .* FROM "places" ORDER BY ordinal`).WillReturnRows(rows)

	src := NewPostgresSource(database.NewPostgresFromDB(db), "places")
	cat, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	places := cat.Places()
	assert.Equal(t, "p001", places[0].ID)
	assert.Equal(t, models.FlagYes, places[0].ExtrovertFriendly)
	assert.Equal(t, models.FlagUnknown, places[1].ExtrovertFriendly)
	assert.Equal(t, []string{"베이커리", "감성", "데이트"}, places[1].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM "places"`).WillReturnError(fmt.Errorf("relation does not exist"))

	_, err = NewPostgresSource(database.NewPostgresFromDB(db), "places").Load(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDataUnavailable))
}

func TestPostgresSource_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(placeColumns).
		AddRow("p001", "x", "cafe", "종로구", true, "loud", 2, 2, 1.0, false, "yes", "")
	mock.ExpectQuery(`SELECT .* FROM "places"`).WillReturnRows(rows)

	_, err = NewPostgresSource(database.NewPostgresFromDB(db), "places").Load(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDataUnavailable))
}

func TestPublishPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cat, err := New("test", samplePlaces())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "places"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "places"`).WillReturnResult(sqlmock.NewResult(0, 5))
	prep := mock.ExpectPrepare(`INSERT INTO "places"`)
	prep.ExpectExec().
		WithArgs(0, "p001", "스타벅스 광화문점", "cafe", "종로구", true, 3, 2, 2, 1.0, false,
			sql.NullString{String: "yes", Valid: true}, "프랜차이즈 작업 실내").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(1, "p002", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, PublishPostgres(context.Background(), database.NewPostgresFromDB(db), "places", cat))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishPostgres_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cat, err := New("test", samplePlaces())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(fmt.Errorf("permission denied"))
	mock.ExpectRollback()

	err = PublishPostgres(context.Background(), database.NewPostgresFromDB(db), "places", cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Redis
// ==========================

func TestRedis_PublishThenLoad(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	cat, err := New("csv:data/places.csv", samplePlaces())
	require.NoError(t, err)
	require.NoError(t, PublishRedis(context.Background(), client, "catalog:places", cat))

	assert.Zero(t, mr.TTL("catalog:places"), "snapshot must not expire")

	loaded, err := NewRedisSource(client, "catalog:places").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cat.Places(), loaded.Places())
	assert.Equal(t, "redis:catalog:places", loaded.Source())
}

func TestRedisSource_MissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	_, err := NewRedisSource(client, "catalog:places").Load(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDataUnavailable))
	assert.Contains(t, err.Error(), "not found")
}

func TestRedisSource_BadSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"not json", "{", "decode snapshot"},
		{"wrong version", `{"version":99,"places":[]}`, "unsupported snapshot version"},
		{"duplicate ids", `{"version":1,"places":[{"place_id":"a","name":"x"},{"place_id":"a","name":"y"}]}`, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb, mock := redismock.NewClientMock()
			mock.ExpectGet("catalog:places").SetVal(tt.payload)

			_, err := NewRedisSource(database.NewRedisFromClient(rdb), "catalog:places").Load(context.Background())
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrDataUnavailable))
			assert.Contains(t, err.Error(), tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisSource_ConnectionError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("catalog:places").SetErr(fmt.Errorf("connection refused"))

	_, err := NewRedisSource(database.NewRedisFromClient(rdb), "catalog:places").Load(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDataUnavailable))
}

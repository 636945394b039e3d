package database

import (
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

func TestConnectSQLiteMigratesAndTranslatesUniqueViolations(t *testing.T) {
	db, err := Connect("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	key := "signup:1"
	require.NoError(t, db.Create(&models.PointLedgerEntry{UserID: 1, ActionType: "signup", Points: 50, IdempotencyKey: &key}).Error)

	err = db.Create(&models.PointLedgerEntry{UserID: 1, ActionType: "signup", Points: 50, IdempotencyKey: &key}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn")
	require.Error(t, err)

	_, err = Connect("sqlite", "")
	require.Error(t, err)
}

func TestConnectRedisPingsServer(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err := ConnectRedis("redis://"+server.Addr()+"/0", "")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("", "gema")
	require.Error(t, err)

	_, err = ConnectRedis("not-a-redis-url", "gema")
	require.Error(t, err)
}

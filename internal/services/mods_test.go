package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func torchFix() *models.Mod {
	return &models.Mod{
		Name:     "Torch Fix",
		Category: "Utility",
		FilePath: "/uploads/torch-fix.jar",
		Versions: []string{"1.20.1", "1.21.0"},
	}
}

func TestUpload_AuthorComesFromSession(t *testing.T) {
	fx := newFixture(t, nil)
	alice, token := fx.aliceSession(t)
	ctx := context.Background()

	m := torchFix()
	m.Author = "mallory"
	m.AuthorID = 12345

	expectTx(fx.mock, 1)
	got, err := fx.mods.Upload(ctx, token, m)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.AuthorID)
	assert.Equal(t, "alice", got.Author)
	assert.ElementsMatch(t, []string{"1.20.1", "1.21.0"}, got.Versions)

	all, err := fx.mods.List(ctx, models.ModFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, got.ID, all[0].ID)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestUpload_InvalidSessionRollsBack(t *testing.T) {
	fx := newFixture(t, nil)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	_, err := fx.mods.Upload(context.Background(), "bogus", torchFix())
	assert.ErrorIs(t, err, common.ErrInvalidSession)
	assert.Empty(t, fx.store.mods)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestUpload_StoreFailureRollsBack(t *testing.T) {
	fx := newFixture(t, nil)
	_, token := fx.aliceSession(t)
	fx.store.modsErr = common.ErrStorageUnavailable

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	_, err := fx.mods.Upload(context.Background(), token, torchFix())
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestUpload_CommitFailureIsRetryable(t *testing.T) {
	fx := newFixture(t, nil)
	_, token := fx.aliceSession(t)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit().WillReturnError(errors.New("connection reset"))
	_, err := fx.mods.Upload(context.Background(), token, torchFix())
	assert.True(t, common.IsRetryable(err))
}

func TestVersions(t *testing.T) {
	fx := newFixture(t, nil)
	_, token := fx.aliceSession(t)
	ctx := context.Background()

	expectTx(fx.mock, 1)
	m, err := fx.mods.Upload(ctx, token, torchFix())
	require.NoError(t, err)

	expectTx(fx.mock, 1)
	v, err := fx.mods.Versions(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.20.1", "1.21.0"}, v)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	_, err = fx.mods.Versions(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestDownload(t *testing.T) {
	fx := newFixture(t, nil)
	_, token := fx.aliceSession(t)
	ctx := context.Background()

	expectTx(fx.mock, 1)
	m, err := fx.mods.Upload(ctx, token, torchFix())
	require.NoError(t, err)

	expectTx(fx.mock, 2)
	_, err = fx.mods.Download(ctx, token, m.ID)
	require.NoError(t, err)
	got, err := fx.mods.Download(ctx, token, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Downloads)
	assert.Equal(t, "/uploads/torch-fix.jar", got.FilePath)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	_, err = fx.mods.Download(ctx, token, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = fx.mods.Download(ctx, "", m.ID)
	assert.ErrorIs(t, err, common.ErrInvalidSession)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestRate(t *testing.T) {
	fx := newFixture(t, nil)
	_, token := fx.aliceSession(t)
	ctx := context.Background()

	expectTx(fx.mock, 1)
	m, err := fx.mods.Upload(ctx, token, torchFix())
	require.NoError(t, err)

	expectTx(fx.mock, 1)
	require.NoError(t, fx.mods.Rate(ctx, token, m.ID, 4.5))
	got, err := fx.mods.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Rating)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	assert.ErrorIs(t, fx.mods.Rate(ctx, token, 9999, 1), common.ErrNotFound)

	fx.clock.advance(2 * time.Hour)
	assert.ErrorIs(t, fx.mods.Rate(ctx, token, m.ID, 1), common.ErrInvalidSession)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestAddVersionAndDelete_OwnerOnly(t *testing.T) {
	fx := newFixture(t, nil)
	_, aliceToken := fx.aliceSession(t)
	ctx := context.Background()

	expectTx(fx.mock, 1)
	m, err := fx.mods.Upload(ctx, aliceToken, torchFix())
	require.NoError(t, err)

	expectTx(fx.mock, 1)
	_, err = fx.users.Register(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)
	res, err := fx.users.Login(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	assert.ErrorIs(t, fx.mods.AddVersion(ctx, res.Token, m.ID, "1.22"), common.ErrForbidden)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	assert.ErrorIs(t, fx.mods.Delete(ctx, res.Token, m.ID), common.ErrForbidden)

	expectTx(fx.mock, 1)
	require.NoError(t, fx.mods.AddVersion(ctx, aliceToken, m.ID, "1.22"))

	expectTx(fx.mock, 1)
	v, err := fx.mods.Versions(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.20.1", "1.21.0", "1.22"}, v)

	expectTx(fx.mock, 1)
	require.NoError(t, fx.mods.Delete(ctx, aliceToken, m.ID))

	_, err = fx.mods.Get(ctx, m.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	assert.ErrorIs(t, fx.mods.Delete(ctx, aliceToken, m.ID), common.ErrNotFound)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestList_Filters(t *testing.T) {
	fx := newFixture(t, nil)
	_, token := fx.aliceSession(t)
	ctx := context.Background()

	expectTx(fx.mock, 2)
	_, err := fx.mods.Upload(ctx, token, torchFix())
	require.NoError(t, err)
	_, err = fx.mods.Upload(ctx, token, &models.Mod{Name: "Sky Map", Category: "Maps", FilePath: "/m"})
	require.NoError(t, err)

	byCat, err := fx.mods.List(ctx, models.ModFilter{Category: "Maps"})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "Sky Map", byCat[0].Name)

	found, err := fx.mods.List(ctx, models.ModFilter{Query: "torch"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Torch Fix", found[0].Name)
}

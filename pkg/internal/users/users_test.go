package users_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/filecipher"
	"github.com/yeisme/storevault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/storevault/pkg/internal/users"
)

// TestCreateAndGet 测试创建用户时生成密钥，并可按编号与名称查询.
func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	dir := users.New(dbtest.Open(t).DB)

	u, err := dir.Create(ctx, "alice", users.WithID(7))
	require.NoError(t, err)
	assert.EqualValues(t, 7, u.ID)
	assert.Len(t, u.SecretKey, filecipher.SecretKeySize)

	got, err := dir.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, u.SecretKey, got.SecretKey)

	byName, err := dir.ByName(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 7, byName.ID)

	_, err = dir.Create(ctx, "alice")
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = dir.Create(ctx, "")
	require.ErrorIs(t, err, errs.ErrValidation)

	list, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].SecretKey)
}

// TestSecretKey 测试密钥解析与未知用户.
func TestSecretKey(t *testing.T) {
	ctx := context.Background()
	dir := users.New(dbtest.Open(t).DB)

	a, err := dir.Create(ctx, "a")
	require.NoError(t, err)
	b, err := dir.Create(ctx, "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.SecretKey, b.SecretKey)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			key, err := dir.SecretKey(ctx, a.ID)
			assert.NoError(t, err)
			assert.Equal(t, a.SecretKey, key)
		}()
	}

	wg.Wait()

	// 返回的是副本，修改不影响后续调用
	key, err := dir.SecretKey(ctx, b.ID)
	require.NoError(t, err)
	key[0] ^= 0xff

	again, err := dir.SecretKey(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.SecretKey, again)

	_, err = dir.SecretKey(ctx, 404)

	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, errs.KindUser, nf.Kind)
	assert.Equal(t, "404", nf.Key)
}

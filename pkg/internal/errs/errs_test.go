package errs_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/internal/errs"
)

// TestTypedErrorsMatchSentinels 测试类型化错误在包装后仍能匹配哨兵错误.
func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{errs.Invalid("name", "a/b", "contains separator"), errs.ErrValidation},
		{errs.NotFound(errs.KindBucket, "photos"), errs.ErrNotFound},
		{errs.AlreadyExists(errs.KindFile, "/a.png"), errs.ErrAlreadyExists},
		{&errs.StorageCreationError{Path: "/x", Err: io.ErrShortWrite}, errs.ErrStorageCreation},
		{&errs.DecryptionError{Err: io.ErrUnexpectedEOF}, errs.ErrDecryption},
		{&errs.NotEmptyError{Path: "/2024", Children: 2}, errs.ErrNotEmpty},
	}

	for _, c := range cases {
		wrapped := fmt.Errorf("op: %w", c.err)
		assert.ErrorIs(t, wrapped, c.sentinel, c.err.Error())
	}
}

// TestErrorDetails 测试 errors.As 可以取出诊断信息.
func TestErrorDetails(t *testing.T) {
	err := fmt.Errorf("load: %w", errs.NotFound(errs.KindFile, "/2024/a.png"))

	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, errs.KindFile, nf.Kind)
	assert.Equal(t, "/2024/a.png", nf.Key)

	cause := errors.New("disk full")
	sc := &errs.StorageCreationError{Path: "/root/p1", Err: cause}
	assert.ErrorIs(t, sc, cause)
	assert.Contains(t, sc.Error(), "/root/p1")
}

// TestIsExpected 测试预期错误分类.
func TestIsExpected(t *testing.T) {
	assert.True(t, errs.IsExpected(errs.AlreadyExists(errs.KindBucket, "b")))
	assert.True(t, errs.IsExpected(errs.Invalid("bucket", "", "empty")))
	assert.False(t, errs.IsExpected(&errs.DecryptionError{}))
	assert.False(t, errs.IsExpected(errors.New("boom")))

	missing := &errs.MissingBlobError{Path: "/a.png", StoredName: "s1-x", Err: errs.NotFound(errs.KindBlob, "/srv/s1-x")}
	assert.ErrorIs(t, missing, errs.ErrMissingBlob)
	assert.NotErrorIs(t, missing, errs.ErrNotFound)
	assert.False(t, errs.IsExpected(missing))
}

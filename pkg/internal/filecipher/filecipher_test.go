package filecipher_test

import (
	"bytes"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/filecipher"
)

var algorithms = []configs.CipherAlgorithm{configs.CipherAESGCM, configs.CipherXChaCha}

func newKey(t *testing.T) []byte {
	t.Helper()

	key, err := filecipher.GenerateSecretKey()
	require.NoError(t, err)
	require.Len(t, key, filecipher.SecretKeySize)

	return key
}

// TestRoundTrip 测试 decrypt(k, encrypt(k, p)) == p.
func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{{}, []byte("a"), bytes.Repeat([]byte("storevault"), 10000)}

	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	payloads = append(payloads, random)

	for _, alg := range algorithms {
		c, err := filecipher.New(alg)
		require.NoError(t, err)

		key := newKey(t)

		for _, p := range payloads {
			blob, err := c.Encrypt(key, p)
			require.NoError(t, err)
			assert.Len(t, blob, len(p)+c.Overhead(), alg)

			got, err := c.Decrypt(key, blob)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(p, got), alg)
		}
	}
}

// TestFreshNonce 测试每次加密使用新的 nonce.
func TestFreshNonce(t *testing.T) {
	for _, alg := range algorithms {
		c, err := filecipher.New(alg)
		require.NoError(t, err)

		key := newKey(t)

		b1, err := c.Encrypt(key, []byte("same"))
		require.NoError(t, err)
		b2, err := c.Encrypt(key, []byte("same"))
		require.NoError(t, err)

		assert.NotEqual(t, b1, b2, alg)
	}
}

// TestWrongKey 测试使用其它用户的密钥解密返回 DecryptionError.
func TestWrongKey(t *testing.T) {
	for _, alg := range algorithms {
		c, err := filecipher.New(alg)
		require.NoError(t, err)

		blob, err := c.Encrypt(newKey(t), []byte("secret photo"))
		require.NoError(t, err)

		got, err := c.Decrypt(newKey(t), blob)
		require.ErrorIs(t, err, errs.ErrDecryption, alg)
		assert.Nil(t, got)
	}
}

// TestTamperedAndTruncated 测试篡改与截断的密文.
func TestTamperedAndTruncated(t *testing.T) {
	c, err := filecipher.New(configs.CipherAESGCM)
	require.NoError(t, err)

	key := newKey(t)
	blob, err := c.Encrypt(key, []byte("payload"))
	require.NoError(t, err)

	tampered := bytes.Clone(blob)
	tampered[len(tampered)-1] ^= 0xff

	_, err = c.Decrypt(key, tampered)
	require.ErrorIs(t, err, errs.ErrDecryption)

	_, err = c.Decrypt(key, blob[:5])
	require.ErrorIs(t, err, errs.ErrDecryption)
	require.ErrorIs(t, err, filecipher.ErrTruncated)
}

// TestAlgorithmBinding 测试以一种算法加密的数据不能用另一种算法解密.
func TestAlgorithmBinding(t *testing.T) {
	gcm, err := filecipher.New(configs.CipherAESGCM)
	require.NoError(t, err)
	xc, err := filecipher.New(configs.CipherXChaCha)
	require.NoError(t, err)

	key := newKey(t)
	blob, err := gcm.Encrypt(key, bytes.Repeat([]byte("x"), 64))
	require.NoError(t, err)

	_, err = xc.Decrypt(key, blob)
	require.ErrorIs(t, err, errs.ErrDecryption)
}

// TestInvalidInputs 测试非法算法与过短密钥.
func TestInvalidInputs(t *testing.T) {
	_, err := filecipher.New("aes-128-cbc")
	require.ErrorIs(t, err, filecipher.ErrUnknownAlgorithm)

	c, err := filecipher.New(configs.CipherAESGCM)
	require.NoError(t, err)

	_, err = c.Encrypt([]byte("short"), []byte("x"))
	require.Error(t, err)

	_, err = c.Decrypt([]byte("short"), make([]byte, 64))
	require.ErrorIs(t, err, errs.ErrDecryption)
}

// TestConcurrentUse 测试并发加解密互不干扰.
func TestConcurrentUse(t *testing.T) {
	c, err := filecipher.New(configs.CipherXChaCha)
	require.NoError(t, err)

	key := newKey(t)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			p := bytes.Repeat([]byte{byte(i)}, 100+i)

			blob, err := c.Encrypt(key, p)
			if !assert.NoError(t, err) {
				return
			}

			got, err := c.Decrypt(key, blob)
			assert.NoError(t, err)
			assert.Equal(t, p, got)
		}()
	}

	wg.Wait()
}

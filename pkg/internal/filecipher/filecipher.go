// Package filecipher 在文件写入磁盘前加密、读取时解密.
//
// 落盘格式为 nonce‖ciphertext，nonce 即初始化向量，每次加密随机生成.
// 文件密钥由用户密钥经 HKDF-SHA256 派生，AEAD 上下文每次调用单独构造，不在并发调用间共享.
package filecipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/errs"
)

const (
	// SecretKeySize 用户密钥长度.
	SecretKeySize = 32
	// minSecretKeySize 可接受的最短用户密钥.
	minSecretKeySize = 16
)

var (
	// ErrTruncated 密文短于 nonce 与认证标签之和.
	ErrTruncated = errors.New("ciphertext truncated")
	// ErrUnknownAlgorithm 不支持的算法.
	ErrUnknownAlgorithm = errors.New("unknown cipher algorithm")

	hkdfInfo = []byte("storevault/file-key/v1")
)

// Cipher 绑定算法的加解密器，本身无可变状态，可并发使用.
type Cipher struct {
	alg configs.CipherAlgorithm
}

// New 创建加解密器.
func New(alg configs.CipherAlgorithm) (*Cipher, error) {
	switch alg {
	case configs.CipherAESGCM, configs.CipherXChaCha:
		return &Cipher{alg: alg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// Algorithm 返回算法名，随文件记录落库.
func (c *Cipher) Algorithm() configs.CipherAlgorithm { return c.alg }

// Encrypt 使用用户密钥加密，返回 nonce‖ciphertext.
func (c *Cipher) Encrypt(secret, plaintext []byte) ([]byte, error) {
	aead, err := c.newAEAD(secret)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nonceSize := aead.NonceSize()

	out := make([]byte, nonceSize, nonceSize+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(out, out[:nonceSize], plaintext, []byte(c.alg)), nil
}

// Decrypt 解密 nonce‖ciphertext，密钥错误或数据损坏时返回 errs.DecryptionError.
func (c *Cipher) Decrypt(secret, blob []byte) ([]byte, error) {
	aead, err := c.newAEAD(secret)
	if err != nil {
		return nil, &errs.DecryptionError{Err: err}
	}

	nonceSize := aead.NonceSize()
	if len(blob) < nonceSize+aead.Overhead() {
		return nil, &errs.DecryptionError{Err: ErrTruncated}
	}

	plaintext, err := aead.Open(nil, blob[:nonceSize], blob[nonceSize:], []byte(c.alg))
	if err != nil {
		return nil, &errs.DecryptionError{Err: err}
	}

	return plaintext, nil
}

// Overhead 返回密文相对明文增加的字节数.
func (c *Cipher) Overhead() int {
	switch c.alg {
	case configs.CipherXChaCha:
		return chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	default:
		const gcmNonce, gcmTag = 12, 16

		return gcmNonce + gcmTag
	}
}

// newAEAD 派生文件密钥并构造新的 AEAD 上下文，派生密钥用后清零.
func (c *Cipher) newAEAD(secret []byte) (cipher.AEAD, error) {
	if len(secret) < minSecretKeySize {
		return nil, fmt.Errorf("secret key too short: %d bytes", len(secret))
	}

	key := make([]byte, SecretKeySize)
	defer wipe(key)

	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive file key: %w", err)
	}

	switch c.alg {
	case configs.CipherXChaCha:
		return chacha20poly1305.NewX(key)
	case configs.CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}

		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, c.alg)
	}
}

// GenerateSecretKey 生成新的用户密钥.
func GenerateSecretKey() ([]byte, error) {
	key := make([]byte, SecretKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}

	return key, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

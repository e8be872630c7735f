// Package errs 定义存储核心的错误分类.
//
// 每个类型化错误都可以通过 errors.Is 匹配对应的哨兵错误，
// 并通过 errors.As 取出诊断信息（实体类型、路径、原因）.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 名称或路径格式非法，在任何 I/O 之前返回.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 用户、存储桶、目录或文件不存在.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists 创建时发生冲突，属于正常结果.
	ErrAlreadyExists = errors.New("already exists")
	// ErrStorageCreation 物理目录或文件无法创建.
	ErrStorageCreation = errors.New("storage creation failed")
	// ErrDecryption 密钥错误或密文损坏.
	ErrDecryption = errors.New("decryption failed")
	// ErrNotEmpty 非递归删除非空目录.
	ErrNotEmpty = errors.New("folder not empty")
	// ErrMissingBlob 元数据记录存在但物理数据缺失，属于完整性故障.
	ErrMissingBlob = errors.New("stored bytes missing")
)

// Kind 实体类型，用于诊断信息.
type Kind string

const (
	KindUser   Kind = "user"
	KindBucket Kind = "bucket"
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
	KindItem   Kind = "item"
	KindBlob   Kind = "blob"
	KindJob    Kind = "job"
)

// ValidationError 输入校验失败.
type ValidationError struct {
	Field  string
	Rule   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}

	return fmt.Sprintf("invalid %s %q: violates %s", e.Field, e.Value, e.Rule)
}

// Is 匹配 ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError 实体不存在.
type NotFoundError struct {
	Kind Kind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// Is 匹配 ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyExistsError 同一坐标上已存在实体.
type AlreadyExistsError struct {
	Kind Kind
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Key)
}

// Is 匹配 ErrAlreadyExists.
func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// StorageCreationError 物理存储创建失败.
type StorageCreationError struct {
	Path string
	Err  error
}

func (e *StorageCreationError) Error() string {
	return fmt.Sprintf("create storage %q: %v", e.Path, e.Err)
}

// Is 匹配 ErrStorageCreation.
func (e *StorageCreationError) Is(target error) bool { return target == ErrStorageCreation }

func (e *StorageCreationError) Unwrap() error { return e.Err }

// DecryptionError 解密失败.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	if e.Err == nil {
		return ErrDecryption.Error()
	}

	return fmt.Sprintf("%s: %v", ErrDecryption, e.Err)
}

// Is 匹配 ErrDecryption.
func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }

func (e *DecryptionError) Unwrap() error { return e.Err }

// MissingBlobError 文件记录指向的物理数据不存在.
// 不解包到底层的 NotFoundError，避免被当作预期错误.
type MissingBlobError struct {
	Path       string
	StoredName string
	Err        error
}

func (e *MissingBlobError) Error() string {
	return fmt.Sprintf("%s: file %q (stored as %s): %v", ErrMissingBlob, e.Path, e.StoredName, e.Err)
}

// Is 匹配 ErrMissingBlob.
func (e *MissingBlobError) Is(target error) bool { return target == ErrMissingBlob }

// NotEmptyError 目录非空.
type NotEmptyError struct {
	Path     string
	Children int64
}

func (e *NotEmptyError) Error() string {
	return fmt.Sprintf("folder %q has %d children", e.Path, e.Children)
}

// Is 匹配 ErrNotEmpty.
func (e *NotEmptyError) Is(target error) bool { return target == ErrNotEmpty }

// NotFound 构造 NotFoundError.
func NotFound(kind Kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// AlreadyExists 构造 AlreadyExistsError.
func AlreadyExists(kind Kind, key string) error {
	return &AlreadyExistsError{Kind: kind, Key: key}
}

// Invalid 构造带原因的 ValidationError.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// IsExpected 判断错误是否属于预期的控制流（校验失败、冲突），这类错误不按 error 级别记录.
func IsExpected(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotEmpty)
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/errs"
)

// tmpPrefix 写入中的临时文件前缀，孤儿回收会一并清理超期的临时文件.
const tmpPrefix = ".pending-"

func init() {
	RegisterFactory(configs.BlobLocal, func(_ context.Context, cfg *configs.AppConfig) (Store, error) {
		return NewLocal(cfg.Storage.Root, fs.FileMode(cfg.Storage.DirPerm), fs.FileMode(cfg.Storage.FilePerm))
	})
}

// LocalStore 本地文件系统后端.
type LocalStore struct {
	root     string
	dirPerm  fs.FileMode
	filePerm fs.FileMode
}

// NewLocal 创建本地后端，root 不存在时自动创建.
func NewLocal(root string, dirPerm, filePerm fs.FileMode) (*LocalStore, error) {
	if dirPerm == 0 {
		dirPerm = configs.DefaultStorageDirPerm
	}

	if filePerm == 0 {
		filePerm = configs.DefaultStorageFilePerm
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %q: %w", root, err)
	}

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, &errs.StorageCreationError{Path: abs, Err: err}
	}

	return &LocalStore{root: abs, dirPerm: dirPerm, filePerm: filePerm}, nil
}

// Backend 返回 local.
func (s *LocalStore) Backend() configs.BlobBackend { return configs.BlobLocal }

// Root 返回绝对根目录.
func (s *LocalStore) Root() string { return s.root }

// EnsureDir 创建目录，并发创建同一目录时 "已存在" 不视为错误.
func (s *LocalStore) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.within(dir); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}

		return &errs.StorageCreationError{Path: dir, Err: err}
	}

	return nil
}

// Write 先写临时文件再重命名，读者不会看到写了一半的文件.
func (s *LocalStore) Write(ctx context.Context, dir, name string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)
	if err := s.within(dst); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return &errs.StorageCreationError{Path: dst, Err: err}
	}

	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return &errs.StorageCreationError{Path: dst, Err: err}
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()

		return &errs.StorageCreationError{Path: dst, Err: err}
	}

	if err = tmp.Close(); err != nil {
		return &errs.StorageCreationError{Path: dst, Err: err}
	}

	if err = os.Chmod(tmpName, s.filePerm); err != nil {
		return &errs.StorageCreationError{Path: dst, Err: err}
	}

	if err = os.Rename(tmpName, dst); err != nil {
		return &errs.StorageCreationError{Path: dst, Err: err}
	}

	return nil
}

// Read 读取整个文件.
func (s *LocalStore) Read(ctx context.Context, dir, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := filepath.Join(dir, name)
	if err := s.within(p); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.NotFound(errs.KindBlob, p)
		}

		return nil, fmt.Errorf("read blob %s: %w", p, err)
	}

	return data, nil
}

// Remove 删除文件.
func (s *LocalStore) Remove(_ context.Context, dir, name string) error {
	p := filepath.Join(dir, name)
	if err := s.within(p); err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", p, err)
	}

	return nil
}

// Walk 遍历根目录下所有普通文件.
func (s *LocalStore) Walk(ctx context.Context, fn WalkFunc) error {
	return filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// 遍历期间被删除的目录直接跳过
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		return fn(Object{Dir: filepath.Dir(p), Name: d.Name(), Size: info.Size(), ModTime: info.ModTime()})
	})
}

// Capacity 查询根目录所在文件系统的容量.
func (s *LocalStore) Capacity(_ context.Context) (Capacity, error) {
	total, used, available, err := volumeStats(s.root)
	if err != nil {
		return Capacity{}, err
	}

	return Capacity{Total: total, Used: used, Available: available}, nil
}

// IsPending 判断文件是否为写入中的临时文件.
func IsPending(name string) bool {
	return strings.HasPrefix(name, tmpPrefix)
}

// within 拒绝根目录之外的路径.
func (s *LocalStore) within(p string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errs.Invalid("storage path", p, "outside storage root")
	}

	return nil
}

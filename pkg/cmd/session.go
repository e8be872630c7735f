package cmd

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage"
	"github.com/yeisme/storevault/pkg/internal/users"
)

// session 一次命令执行期间打开的存储资源.
type session struct {
	cfg   *configs.AppConfig
	mgr   *storage.Manager
	coord *service.Coordinator
	users *users.Directory
}

// openSession 按当前配置打开存储资源并创建协调器.
func openSession(ctx context.Context) (*session, error) {
	cfg := *configs.GetConfig()

	mgr, err := storage.New(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	coord, err := service.NewFromManager(mgr, &cfg)
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}

	return &session{cfg: &cfg, mgr: mgr, coord: coord, users: users.New(mgr.GetDBClient().DB)}, nil
}

func (s *session) Close() error { return s.mgr.Close() }

// runFunc 需要存储资源的命令实现.
type runFunc func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error

// withSession 打开存储资源后执行 fn，结束时关闭.
func withSession(fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}

		defer func() { err = errors.Join(err, s.Close()) }()

		return fn(ctx, cmd, args, s)
	}
}

// lookupUser 按编号或名称查找用户.
func (s *session) lookupUser(ctx context.Context, ref string) (*model.User, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return s.users.Get(ctx, id)
	}

	return s.users.ByName(ctx, ref)
}

// actingUser 解析 --user 指定的用户编号.
func (s *session) actingUser(ctx context.Context) (uint64, error) {
	if userFlag == "" {
		return 0, errors.New("--user is required")
	}

	u, err := s.lookupUser(ctx, userFlag)
	if err != nil {
		return 0, err
	}

	return u.ID, nil
}

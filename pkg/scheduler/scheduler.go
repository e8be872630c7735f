// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
//
// 每个任务以名称注册，调度器记录任务的运行状态，供运维接口与命令行查看.
// 同一任务不会重叠执行：上一次尚未结束时本次调度被跳过.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/storevault/pkg/log"
)

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 上一次运行出错
)

// JobFunc 任务函数，返回的错误记录到任务状态中.
type JobFunc func(ctx context.Context) error

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CronExpr    string        `json:"cron_expr"`
	NextRun     time.Time     `json:"next_run"`
	LastRun     time.Time     `json:"last_run"`
	LastSuccess time.Time     `json:"last_success,omitempty"`
	LastElapsed time.Duration `json:"last_elapsed"`
	Runs        int64         `json:"runs"`
	Status      JobStatus     `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    *zerolog.Logger
}

// NewScheduler 创建一个新的 Scheduler 实例.
func NewScheduler(opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    log.Component("scheduler"),
	}, nil
}

// AddCron 添加一个基于 cron 表达式的定时任务，ctx 在每次运行时传给 job.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.wrap(name, job), ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.jobInfos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: time.Now(),
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

// wrap 包装任务函数以记录执行状态并拦截 panic.
func (s *Scheduler) wrap(name string, job JobFunc) func(ctx context.Context) error {
	return func(ctx context.Context) (err error) {
		start := time.Now()
		s.update(name, func(info *JobInfo) {
			info.Status = StatusRunning
			info.LastRun = start
		})

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("Job panicked")
			}

			elapsed := time.Since(start)
			s.update(name, func(info *JobInfo) {
				info.Runs++
				info.LastElapsed = elapsed

				if err != nil {
					info.Status = StatusError
					info.Error = err.Error()

					return
				}

				info.Status = StatusScheduled
				info.Error = ""
				info.LastSuccess = time.Now()
			})

			ev := s.logger.Info()
			if err != nil {
				ev = s.logger.Error().Err(err)
			}

			ev.Str("job", name).Dur("elapsed", elapsed).Msg("Job finished")
		}()

		return job(ctx)
	}
}

func (s *Scheduler) update(name string, fn func(info *JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.jobInfos[name]; ok {
		fn(info)
	}
}

// RunNow 立即执行一次指定任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	return job.RunNow()
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.jobInfos, name)

	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// GetJobInfoByName 通过名称获取任务信息.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("job with name %s does not exist", name)
	}

	out := *info
	if next, err := s.jobs[name].NextRun(); err == nil {
		out.NextRun = next
	}

	return out, nil
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	names := make([]string, 0, len(s.jobInfos))

	for name := range s.jobInfos {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)

	out := make([]JobInfo, 0, len(names))

	for _, name := range names {
		if info, err := s.GetJobInfoByName(name); err == nil {
			out = append(out, info)
		}
	}

	return out
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("Starting scheduler")
	s.scheduler.Start()
}

// Shutdown 停止调度器并等待正在运行的任务结束.
func (s *Scheduler) Shutdown() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.scheduler.Shutdown()
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"meli_scrooper/config"
	"meli_scrooper/logging"
	"meli_scrooper/models"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Runner is the part of scraper.Orchestrator the scheduler drives.
type Runner interface {
	ScrapeAll(ctx context.Context, urls []string) error
	HandleCommand(ctx context.Context, cmd *models.Command) error
}

// CommandQueue is the commands table. storage.SQLiteStore satisfies it.
type CommandQueue interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
}

type Scheduler struct {
	cfg      config.SchedulerConfig
	runner   Runner
	commands CommandQueue
	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	log      *logrus.Entry

	recheckWorker Triggerable
}

func New(cfg config.SchedulerConfig, runner Runner, commands CommandQueue) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		runner:   runner,
		commands: commands,
		cron:     cron.New(),
		stopCh:   make(chan struct{}),
		log:      logging.Component("scheduler"),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(recheck Triggerable) {
	s.recheckWorker = recheck
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Cron != "" {
		s.log.WithField("cron", s.cfg.Cron).Info("Starting scheduler")
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.runWatched(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Interval > 0 {
		s.log.WithField("interval", s.cfg.Interval).Info("Starting scheduler")
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runWatched(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		s.log.Info("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cron.Stop()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}

func (s *Scheduler) runWatched(ctx context.Context) {
	if err := s.runner.ScrapeAll(ctx, nil); err != nil {
		s.log.WithError(err).Error("Scheduled run error")
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.drainCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drainCommands runs every pending command once. A command is marked
// processed even when it fails so a bad row cannot wedge the queue.
func (s *Scheduler) drainCommands(ctx context.Context) {
	cmds, err := s.commands.GetPendingCommands()
	if err != nil {
		s.log.WithError(err).Warn("Error getting commands")
		return
	}

	for i := range cmds {
		cmd := &cmds[i]
		entry := s.log.WithFields(logrus.Fields{"command": cmd.Command, "id": cmd.ID})
		entry.Info("Processing command")
		if err := s.handleCommand(ctx, cmd); err != nil {
			entry.WithError(err).Error("Command error")
		}
		if err := s.commands.MarkCommandProcessed(cmd.ID); err != nil {
			entry.WithError(err).Warn("Error marking command processed")
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdRecheck:
		if s.recheckWorker == nil {
			return fmt.Errorf("recheck worker not running")
		}
		s.recheckWorker.Trigger()
		return nil
	default:
		return s.runner.HandleCommand(ctx, cmd)
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.runner.ScrapeAll(ctx, nil)
}

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"workitem-system/internal/entities"
	"workitem-system/internal/repositories"
	"workitem-system/internal/sla"
	"workitem-system/pkg/config"
)

// StalenessScheduler periodically scans for breaching work items and alerts
// the managers. A breach is notified at most once per item: the persisted
// alerted_at stamp is claimed with a conditional write before dispatching,
// so a manual run overlapping a scheduled tick cannot double-send.
type StalenessScheduler struct {
	repo       repositories.WorkItemRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	dispatcher NotificationDispatcherInterface
	slaCfg     config.SLAConfig
	interval   time.Duration
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time

	// tickMu serializes scheduled runs; a tick is skipped while the
	// previous one is still scanning. RunNow deliberately bypasses it.
	tickMu sync.Mutex
}

func NewStalenessScheduler(
	repo repositories.WorkItemRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	dispatcher NotificationDispatcherInterface,
	slaCfg config.SLAConfig,
	schedCfg config.SchedulerConfig,
	logger *zap.Logger,
) *StalenessScheduler {
	return &StalenessScheduler{
		repo:       repo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		slaCfg:     slaCfg,
		interval:   schedCfg.Interval,
		timeout:    schedCfg.NotifyTimeout,
		logger:     logger,
		now:        time.Now,
	}
}

// Start runs the scan loop until ctx is cancelled.
func (s *StalenessScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.tickMu.TryLock() {
					s.logger.Warn("staleness scan still running, skipping tick")
					continue
				}
				notified, failed := s.scan(ctx)
				s.tickMu.Unlock()
				s.logger.Info("staleness scan finished",
					zap.Int("notified", notified),
					zap.Int("failed", failed),
				)
			}
		}
	}()
}

// RunNow executes one scan on demand, independent of the schedule.
func (s *StalenessScheduler) RunNow(ctx context.Context) (notified, failed int) {
	return s.scan(ctx)
}

func (s *StalenessScheduler) scan(ctx context.Context) (notified, failed int) {
	now := s.now()

	recipients, err := s.userRepo.ListManagerEmails(ctx)
	if err != nil {
		s.logger.Error("cannot resolve alert recipients", zap.Error(err))
		return 0, 0
	}
	if len(recipients) == 0 {
		s.logger.Warn("no managers to alert, skipping scan")
		return 0, 0
	}
	to := strings.Join(recipients, ",")

	stale, err := s.repo.ListStaleProposals(ctx, now.Add(-s.slaCfg.StaleAfter))
	if err != nil {
		s.logger.Error("stale proposal scan failed", zap.Error(err))
	} else {
		n, f := s.alertAll(ctx, stale, to, now, s.proposalMessage)
		notified += n
		failed += f
	}

	overdue, err := s.repo.ListOverdueRequests(ctx, now)
	if err != nil {
		s.logger.Error("overdue request scan failed", zap.Error(err))
	} else {
		n, f := s.alertAll(ctx, overdue, to, now, s.requestMessage)
		notified += n
		failed += f
	}
	return notified, failed
}

// alertAll processes breaching items one by one; a single item's failure
// never aborts the rest of the scan.
func (s *StalenessScheduler) alertAll(
	ctx context.Context,
	items []*entities.WorkItem,
	to string,
	now time.Time,
	message func(item *entities.WorkItem, now time.Time) (subject, text string),
) (notified, failed int) {
	for _, item := range items {
		won, err := s.repo.MarkAlertedIf(ctx, item.ID, now)
		if err != nil {
			s.logger.Error("marking breach failed",
				zap.String("code", item.Code), zap.Error(err))
			failed++
			continue
		}
		if !won {
			// Another run got here first.
			continue
		}

		subject, text := message(item, now)
		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		_, err = s.dispatcher.Send(sendCtx, to, subject, text, "<p>"+text+"</p>")
		cancel()
		if err != nil {
			s.logger.Error("staleness notification failed",
				zap.String("code", item.Code), zap.Error(err))
			failed++
			continue
		}
		notified++
	}
	return notified, failed
}

func (s *StalenessScheduler) proposalMessage(item *entities.WorkItem, now time.Time) (string, string) {
	age := sla.Age(item, now)
	hours := int(age.Hours())
	tier := "stale"
	if age >= s.slaCfg.DigestAfter {
		tier = "critical"
	}
	subject := fmt.Sprintf("[%s] Proposal %s unassigned for %dh", strings.ToUpper(tier), item.Code, hours)
	text := fmt.Sprintf("Proposal %s has been waiting for an analyst for %d hours.", item.Code, hours)
	return subject, text
}

func (s *StalenessScheduler) requestMessage(item *entities.WorkItem, now time.Time) (string, string) {
	overdueBy := now.Sub(item.SLADueDate.Time)
	subject := fmt.Sprintf("[SLA] Request %s overdue", item.Code)
	text := fmt.Sprintf("Request %s passed its SLA due date %s ago and is still %s.",
		item.Code, overdueBy.Round(time.Minute), item.Status)
	return subject, text
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"StakeVault/internal/model"
	"StakeVault/internal/notifier"
	"StakeVault/internal/recorder"
	"StakeVault/internal/staking"
)

const (
	// periodWarnWindow is how early a missing rate for the next period is reported.
	periodWarnWindow = 14 * 24 * time.Hour
	eventBatch       = 50
	eventsShown      = 10
)

// Loader returns the current engine, typically by re-reading the state file.
type Loader func() (*staking.Engine, error)

// Alerts queues outgoing messages.
type Alerts interface {
	Enqueue(text string) bool
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Load     Loader
	Alerts   Alerts
	Recorder recorder.Recorder
	Decimals int32
	Now      func() time.Time
	Ctx      context.Context

	mu           sync.Mutex
	cursorSet    bool
	lastSeq      int64
	warnedPeriod int
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, load Loader, alerts Alerts, rec recorder.Recorder, decimals int32) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Load:         load,
		Alerts:       alerts,
		Recorder:     rec,
		Decimals:     decimals,
		Now:          time.Now,
		Ctx:          ctx,
		warnedPeriod: -1,
	}
}

// RegisterAll registers the solvency, snapshot, period and event tasks.
func (s *Scheduler) RegisterAll(solvencyCron, snapshotCron, periodCron, eventsCron string) error {
	if _, err := s.Cron.AddFunc(solvencyCron, s.solvencyCheck); err != nil {
		return fmt.Errorf("register solvency task: %w", err)
	}
	if _, err := s.Cron.AddFunc(snapshotCron, s.poolSnapshot); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if _, err := s.Cron.AddFunc(periodCron, s.periodCheck); err != nil {
		return fmt.Errorf("register period task: %w", err)
	}
	if _, err := s.Cron.AddFunc(eventsCron, s.forwardEvents); err != nil {
		return fmt.Errorf("register events task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunAllNow executes every task once (RUN_ON_START).
func (s *Scheduler) RunAllNow() {
	s.solvencyCheck()
	s.poolSnapshot()
	s.periodCheck()
	s.forwardEvents()
}

func (s *Scheduler) engine() *staking.Engine {
	e, err := s.Load()
	if err != nil {
		log.Printf("[ERROR] load engine state: %v", err)
		return nil
	}
	return e
}

func (s *Scheduler) solvencyCheck() {
	e := s.engine()
	if e == nil {
		return
	}
	now := s.Now()
	pool := e.Pool()
	owed := e.Liabilities(now)
	log.Printf("[INFO] solvency: owed=%d available=%d", owed, pool.AvailableYield)
	if owed > pool.AvailableYield {
		log.Printf("[WARN] pool short by %d", owed-pool.AvailableYield)
		s.alert(notifier.FormatSolvencyAlert(pool, owed, s.Decimals))
	}
}

func (s *Scheduler) poolSnapshot() {
	e := s.engine()
	if e == nil {
		return
	}
	now := s.Now()
	idx, entry := e.CurrentPeriod(now)
	snap := &recorder.PoolSnapshot{
		Pool:        e.Pool(),
		Liabilities: e.Liabilities(now),
		Accounts:    len(e.Accounts()),
		PeriodIndex: idx,
		RateBps:     entry.AnnualRateBps,
	}
	if err := s.Recorder.RecordPoolSnapshot(snap); err != nil {
		log.Printf("[ERROR] record pool snapshot: %v", err)
	}
}

// periodCheck warns once per period when the upcoming period will silently
// inherit the last defined rate.
func (s *Scheduler) periodCheck() {
	e := s.engine()
	if e == nil {
		return
	}
	now := s.Now()
	rates := e.Rates()
	if len(rates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := periodAt(rates[0].StartTime, now) + 1
	nextStart := rates[0].StartTime + int64(next)*model.PeriodLength
	if next >= model.MaxPeriods || nextStart >= e.ProgramEnd().Unix() {
		return
	}
	if next < len(rates) {
		return
	}
	if time.Unix(nextStart, 0).Sub(now) > periodWarnWindow || s.warnedPeriod == next {
		return
	}
	s.warnedPeriod = next
	log.Printf("[WARN] period %d starts %s without a rate", next, time.Unix(nextStart, 0).UTC().Format(time.RFC3339))
	s.alert(notifier.FormatPeriodWarning(next, nextStart, rates[len(rates)-1].AnnualRateBps))
}

// forwardEvents relays events recorded since the previous run, in recording
// order. The first run only sets the cursor.
func (s *Scheduler) forwardEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cursorSet {
		seq, err := s.Recorder.LatestSeq()
		if err != nil {
			log.Printf("[ERROR] read latest event: %v", err)
			return
		}
		s.lastSeq = seq
		s.cursorSet = true
		return
	}
	evts, err := s.Recorder.EventsSince(s.lastSeq, eventBatch)
	if err != nil {
		log.Printf("[ERROR] read new events: %v", err)
		return
	}
	for _, evt := range evts {
		s.alert(notifier.FormatEvent(evt, s.Decimals))
		s.lastSeq = evt.Seq
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "/pool":
		e := s.engine()
		if e == nil {
			return "❌ state unavailable"
		}
		now := s.Now()
		idx, entry := e.CurrentPeriod(now)
		return notifier.FormatPoolStatus(notifier.PoolView{
			Pool:        e.Pool(),
			Liabilities: e.Liabilities(now),
			Accounts:    len(e.Accounts()),
			PeriodIndex: idx,
			Period:      entry,
			ProgramEnd:  e.ProgramEnd(),
		}, s.Decimals)
	case "/rates":
		e := s.engine()
		if e == nil {
			return "❌ state unavailable"
		}
		rates := e.Rates()
		current := 0
		if len(rates) > 0 {
			current = periodAt(rates[0].StartTime, s.Now())
		}
		return notifier.FormatRates(rates, current)
	case "/stake":
		if len(fields) < 2 {
			return "usage: /stake &lt;account&gt;"
		}
		e := s.engine()
		if e == nil {
			return "❌ state unavailable"
		}
		cooldown, _ := e.Params()
		return notifier.FormatStake(notifier.StakeView{
			Account:  fields[1],
			Stake:    e.Stake(fields[1]),
			Pending:  e.PendingYield(fields[1], s.Now()),
			Cooldown: cooldown,
		}, s.Decimals)
	case "/events":
		evts, err := s.Recorder.RecentEvents(eventsShown)
		if err != nil {
			log.Printf("[ERROR] read recent events: %v", err)
			return "❌ events unavailable"
		}
		return notifier.FormatEvents(evts, s.Decimals)
	default:
		return "Commands:\n• /pool\n• /rates\n• /stake &lt;account&gt;\n• /events"
	}
}

// periodAt is the calendar period index containing now, whether or not a rate
// was defined for it.
func periodAt(programStart int64, now time.Time) int {
	elapsed := now.Unix() - programStart
	if elapsed <= 0 {
		return 0
	}
	i := int(elapsed / model.PeriodLength)
	if i >= model.MaxPeriods {
		i = model.MaxPeriods - 1
	}
	return i
}

func (s *Scheduler) alert(text string) {
	if s.Alerts == nil {
		return
	}
	s.Alerts.Enqueue(text)
}

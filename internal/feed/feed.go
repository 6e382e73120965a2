package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// DefaultPollInterval is how often the forwarder checks for new activity.
const DefaultPollInterval = 15 * time.Second

// ForwarderOpts holds parameters for creating a Forwarder.
type ForwarderOpts struct {
	DB           *gorm.DB
	Adapters     []Adapter
	PollInterval time.Duration // defaults to DefaultPollInterval
	DigestCron   string        // optional 5-field cron expression
}

// Forwarder polls the activity table and fans new records out to the
// configured adapters. It only ever reads; audit rows remain the source of
// truth and a missed delivery is never retried.
type Forwarder struct {
	db           *gorm.DB
	adapters     []Adapter
	pollInterval time.Duration
	digestCron   string

	// lastSeen is the newest forwarded created_at; seenAtMark holds the IDs
	// already forwarded at exactly that timestamp, so rows committed in the
	// same instant as the watermark are neither dropped nor re-sent.
	lastSeen   time.Time
	seenAtMark map[string]bool
}

// NewForwarder creates a Forwarder.
func NewForwarder(opts ForwarderOpts) (*Forwarder, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("feed: db is required")
	}
	if len(opts.Adapters) == 0 {
		return nil, fmt.Errorf("feed: at least one adapter is required")
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if opts.DigestCron != "" {
		if nextCronDuration(opts.DigestCron) == 0 {
			return nil, fmt.Errorf("feed: digest cron %q is not a valid 5-field expression", opts.DigestCron)
		}
	}
	return &Forwarder{
		db:           opts.DB,
		adapters:     opts.Adapters,
		pollInterval: poll,
		digestCron:   opts.DigestCron,
		lastSeen:     time.Now(),
		seenAtMark:   make(map[string]bool),
	}, nil
}

// Run polls until ctx is cancelled, then closes the adapters. Only activity
// committed after Run starts is forwarded; history stays in the table.
func (f *Forwarder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	var digestCh <-chan time.Time
	var digestTimer *time.Timer
	if f.digestCron != "" {
		digestTimer = time.NewTimer(nextCronDuration(f.digestCron))
		digestCh = digestTimer.C
		defer digestTimer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			for _, a := range f.adapters {
				if err := a.Close(); err != nil {
					log.Printf("feed: close adapter: %v", err)
				}
			}
			return ctx.Err()
		case <-ticker.C:
			f.Poll(ctx)
		case <-digestCh:
			f.SendDigest(ctx)
			digestTimer.Reset(nextCronDuration(f.digestCron))
		}
	}
}

// Poll forwards activity committed since the last poll. The query includes
// rows at the watermark timestamp itself; the seen set filters out the ones
// a previous poll already forwarded.
func (f *Forwarder) Poll(ctx context.Context) {
	var activities []models.Activity
	err := f.db.Where("created_at >= ?", f.lastSeen).
		Order("created_at ASC, id ASC").
		Find(&activities).Error
	if err != nil {
		log.Printf("feed: poll activity: %v", err)
		return
	}

	for _, a := range activities {
		if f.seenAtMark[a.ID] {
			continue
		}
		if a.CreatedAt.After(f.lastSeen) {
			f.lastSeen = a.CreatedAt
			f.seenAtMark = make(map[string]bool)
		}
		f.seenAtMark[a.ID] = true
		f.send(ctx, FromActivity(a))
	}
}

// SendDigest builds the scheduled digest and delivers it. Quiet periods are
// suppressed entirely.
func (f *Forwarder) SendDigest(ctx context.Context) {
	event, err := BuildDigest(f.db, time.Now().Add(-24*time.Hour), time.Now())
	if err != nil {
		log.Printf("feed: build digest: %v", err)
		return
	}
	if event == nil {
		return
	}
	f.send(ctx, *event)
}

// send fans one event out to all adapters, best-effort.
func (f *Forwarder) send(ctx context.Context, e Event) {
	for _, a := range f.adapters {
		if err := a.Send(ctx, e); err != nil {
			log.Printf("feed: send %s on %s: %v", e.Action, e.TargetID, err)
		}
	}
}

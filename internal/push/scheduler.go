package push

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/store"
	"github.com/wayfarer-app/wayfarer/internal/trip"
)

// reminderLead is how far before departure the flight reminder fires.
const reminderLead = 2 * time.Hour

// Scheduler periodically checks the current trip for upcoming flights and
// sends departure reminders to every subscribed device.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	planner  *trip.Planner
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	// sent dedupes reminders per flight. Memory only; a restart inside the
	// lead window resends at most one reminder per flight.
	sent map[string]struct{}
}

// NewScheduler creates a flight reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, planner *trip.Planner) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		planner:  planner,
		interval: 60 * time.Second,
		sent:     make(map[string]struct{}),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	state, ok := s.planner.Current()
	if !ok {
		return
	}

	for _, day := range state.Days {
		flight := day.Flight
		if flight == nil || flight.StartTime == "" || day.FullDate == "" {
			continue
		}

		departure, err := time.ParseInLocation("2006-01-02 15:04", day.FullDate+" "+flight.StartTime, time.Local)
		if err != nil {
			continue
		}

		until := departure.Sub(now)
		if until <= 0 || until > reminderLead {
			continue
		}

		refID := fmt.Sprintf("flight-%s-%s-%s", state.Meta.ID, day.FullDate, flight.Number)
		s.mu.Lock()
		_, alreadySent := s.sent[refID]
		if !alreadySent {
			s.sent[refID] = struct{}{}
		}
		s.mu.Unlock()
		if alreadySent {
			continue
		}

		label := flight.Number
		if label == "" {
			label = "Your flight"
		}
		body := fmt.Sprintf("%s departs %s at %s", label, flight.StartAirport, flight.StartTime)
		if flight.StartAirport == "" {
			body = fmt.Sprintf("%s departs at %s", label, flight.StartTime)
		}

		s.notifyAll(Payload{
			Title: "Flight Reminder",
			Body:  body,
			URL:   "/",
			Tag:   refID,
		})
	}
}

func (s *Scheduler) notifyAll(payload Payload) {
	subs, err := s.push.List()
	if err != nil {
		log.Printf("push scheduler: list subscriptions: %v", err)
		return
	}

	for _, sub := range subs {
		if err := s.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				log.Printf("push scheduler: send flight reminder: %v", err)
			}
		}
	}
}

// Package sync keeps three state layers consistent: the in-memory trip
// state, its local snapshots, and the shared remote document. Local edits
// mirror to the local store immediately and reach the remote store through
// a debounced, coalesced merge-write; remote changes stream in over a live
// watch and overwrite local state field by field.
//
// Loop prevention uses an apply sequence counter instead of a timed
// suppression flag: remote-origin changes never arm the push debouncer,
// and an armed push is discarded if any remote apply landed after the edit
// that armed it. The remote document itself stays multi-writer
// last-write-wins per push; collaborators editing the same field inside
// one debounce window can still clobber each other.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/model"
	"github.com/wayfarer-app/wayfarer/internal/remote"
	"github.com/wayfarer-app/wayfarer/internal/trip"
)

// Status is the connection lifecycle state shown in the UI.
type Status string

const (
	StatusOffline    Status = "offline"
	StatusConnecting Status = "connecting"
	StatusSynced     Status = "synced"
	StatusError      Status = "error"
)

var (
	// ErrNotConnected is returned when an operation needs a live remote
	// connection and there is none.
	ErrNotConnected = errors.New("not connected to remote store")

	// ErrTripNotFound is returned by Join when the target document does
	// not exist remotely.
	ErrTripNotFound = errors.New("shared trip not found")
)

// DefaultDebounce is how long a watched value must be stable before a push.
const DefaultDebounce = time.Second

const pushTimeout = 15 * time.Second

// StoreFactory builds a remote store from parsed configuration.
type StoreFactory func(cfg remote.Config) remote.Store

// Session is the sync reconciler for the current trip.
type Session struct {
	logger   *slog.Logger
	planner  *trip.Planner
	factory  StoreFactory
	debounce time.Duration

	mu      sync.Mutex
	status  Status
	store   remote.Store
	actorID string

	// applySeq increments on every remote apply. pendingSeq/pendingTrip
	// capture the world as of the local edit that armed the timer; a flush
	// whose seq is stale has been superseded by a remote apply and is
	// dropped.
	applySeq    uint64
	pendingSeq  uint64
	pendingTrip string
	timer       *time.Timer

	watchCancel func()
	watchTrip   string

	ctx    context.Context
	cancel context.CancelFunc

	onStatus func(Status)
}

// NewSession creates a session and registers it as a change listener on the
// planner. It starts offline.
func NewSession(planner *trip.Planner, factory StoreFactory, debounce time.Duration, logger *slog.Logger) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		logger:   logger,
		planner:  planner,
		factory:  factory,
		debounce: debounce,
		status:   StatusOffline,
		ctx:      ctx,
		cancel:   cancel,
	}
	planner.OnChange(s.handleChange)
	return s
}

// OnStatusChange registers a callback invoked on every status transition.
func (s *Session) OnStatusChange(fn func(Status)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// Status returns the current connection state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ActorID returns the anonymous identity tagging this device's writes.
func (s *Session) ActorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actorID
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	fn := s.onStatus
	s.mu.Unlock()
	if changed && fn != nil {
		fn(status)
	}
}

// ConnectRaw parses user-supplied configuration text (strict JSON only) and
// connects. Unparsable configuration is a configuration error.
func (s *Session) ConnectRaw(ctx context.Context, rawConfig string) error {
	s.setStatus(StatusConnecting)
	cfg, err := remote.ParseConfig(rawConfig)
	if err != nil {
		s.setStatus(StatusError)
		return err
	}
	return s.connect(ctx, cfg)
}

// Connect establishes the remote connection with already-parsed
// configuration. A failure leaves local state untouched; the app stays
// usable offline.
func (s *Session) Connect(ctx context.Context, cfg remote.Config) error {
	s.setStatus(StatusConnecting)
	return s.connect(ctx, cfg)
}

func (s *Session) connect(ctx context.Context, cfg remote.Config) error {
	store := s.factory(cfg)

	actorID, err := store.SignIn(ctx)
	if err != nil {
		s.setStatus(StatusError)
		return err
	}

	s.mu.Lock()
	s.store = store
	s.actorID = actorID
	s.mu.Unlock()
	s.setStatus(StatusSynced)

	if id := s.planner.CurrentID(); id != "" {
		s.watch(id)
	}
	return nil
}

// Disconnect detaches the live watch and drops the remote connection.
// Pending pushes are cancelled; local state is untouched.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	cancel := s.watchCancel
	s.watchCancel = nil
	s.watchTrip = ""
	s.store = nil
	s.actorID = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.setStatus(StatusOffline)
}

// Close tears the session down entirely.
func (s *Session) Close() {
	s.Disconnect()
	s.cancel()
}

// Join fetches a shared trip by id and makes it current. It requires a live
// connection. A missing document reverts the connection state to its prior
// value, since the connection itself is still good.
func (s *Session) Join(ctx context.Context, tripID string) error {
	s.mu.Lock()
	if s.store == nil || s.status != StatusSynced {
		s.mu.Unlock()
		return ErrNotConnected
	}
	store := s.store
	prior := s.status
	s.mu.Unlock()

	s.setStatus(StatusConnecting)

	doc, err := store.Get(ctx, tripID)
	if errors.Is(err, remote.ErrNotFound) {
		s.setStatus(prior)
		return ErrTripNotFound
	}
	if err != nil {
		s.setStatus(StatusError)
		return err
	}

	// Seed state straight from the fetched document so there is no empty
	// flash before the first watch message arrives.
	if err := s.planner.AdoptRemote(tripID, doc); err != nil {
		s.setStatus(StatusError)
		return err
	}

	s.watch(tripID)
	s.setStatus(StatusSynced)
	return nil
}

// handleChange is the planner change listener. Only local-origin changes
// arm the push debouncer; remote applies must never bounce back out. A
// local switch to a different trip also re-points the live watch.
func (s *Session) handleChange(section string, origin trip.Origin) {
	if origin != trip.OriginLocal {
		return
	}

	id := s.planner.CurrentID()

	s.mu.Lock()
	s.pendingSeq = s.applySeq
	s.pendingTrip = id
	if id == "" {
		s.mu.Unlock()
		return
	}
	rewatch := s.store != nil && id != s.watchTrip
	if rewatch {
		s.watchTrip = id
	}
	if s.timer != nil {
		s.timer.Reset(s.debounce)
	} else {
		s.timer = time.AfterFunc(s.debounce, s.flush)
	}
	s.mu.Unlock()

	if rewatch {
		go s.watch(id)
	}
}

// flush runs once the debounce window has been quiet. It pushes the full
// current snapshot unless the push has been superseded, the connection is
// down, or the current trip changed since arming.
func (s *Session) flush() {
	s.mu.Lock()
	store := s.store
	status := s.status
	seq := s.pendingSeq
	tripID := s.pendingTrip
	actorID := s.actorID
	superseded := seq != s.applySeq
	s.mu.Unlock()

	if store == nil || status != StatusSynced {
		return
	}
	if superseded {
		s.logger.Debug("skipping push superseded by remote apply", "trip", tripID)
		return
	}
	if s.planner.CurrentID() != tripID {
		s.logger.Debug("skipping push for switched-away trip", "trip", tripID)
		return
	}

	doc, ok := s.planner.Document()
	if !ok {
		return
	}
	doc.LastUpdated = time.Now().UnixMilli()
	doc.UpdatedBy = actorID

	ctx, cancel := context.WithTimeout(s.ctx, pushTimeout)
	defer cancel()

	// Failures are logged only; the next debounced change retries.
	if err := store.Merge(ctx, tripID, doc); err != nil {
		s.logger.Warn("push failed", "trip", tripID, "error", err)
	}
}

// watch replaces the live subscription with one for the given trip.
func (s *Session) watch(tripID string) {
	s.mu.Lock()
	store := s.store
	prior := s.watchCancel
	s.watchCancel = nil
	s.watchTrip = tripID
	s.mu.Unlock()

	if prior != nil {
		prior()
	}
	if store == nil {
		return
	}

	ch, cancel, err := store.Subscribe(s.ctx, tripID)
	if err != nil {
		s.logger.Warn("subscribe failed", "trip", tripID, "error", err)
		s.setStatus(StatusError)
		return
	}

	s.mu.Lock()
	s.watchCancel = cancel
	s.mu.Unlock()

	go func() {
		for doc := range ch {
			s.applyRemote(tripID, doc)
		}
	}()
}

// applyRemote applies one watch message. Bumping applySeq first invalidates
// any push armed by an edit the incoming document has just overwritten.
func (s *Session) applyRemote(tripID string, doc *model.TripDocument) {
	s.mu.Lock()
	s.applySeq++
	s.mu.Unlock()

	if s.planner.CurrentID() != tripID {
		return
	}
	if err := s.planner.ApplyRemote(doc); err != nil {
		s.logger.Warn("apply remote update failed", "trip", tripID, "error", err)
	}
}

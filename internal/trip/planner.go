// Package trip holds the single current-trip state aggregate. Every
// mutation builds fresh slices, persists the touched snapshot sections
// synchronously, and then fires change listeners tagged with the origin of
// the mutation so the sync layer can tell local edits from remote applies.
package trip

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/model"
	"github.com/wayfarer-app/wayfarer/internal/shopping"
	"github.com/wayfarer-app/wayfarer/internal/store"
)

// Origin tags a state change with where it came from.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// ChangeListener observes committed state changes. section is one of the
// store.Section* constants.
type ChangeListener func(section string, origin Origin)

var (
	ErrNoCurrentTrip = errors.New("no current trip")
	ErrTripNotFound  = errors.New("trip not found")
	ErrIndexRange    = errors.New("index out of range")
)

const defaultParticipantsRaw = "Me, Travel Buddy"

// DefaultSetup returns the configuration pre-filled into the setup form.
func DefaultSetup() model.SetupConfig {
	return model.SetupConfig{
		Destination: "Seoul",
		StartDate:   time.Now().Format(isoDate),
		Days:        5,
		Rate:        0.022,
		Currency:    "KRW",
		LangCode:    "ko",
		LangName:    "Korean",
	}
}

// State is the full in-memory state of the current trip.
type State struct {
	Meta            model.TripMeta
	Setup           model.SetupConfig
	Days            []model.DayPlan
	Expenses        []model.Expense
	Shopping        []model.ShoppingItem
	Categories      []string
	ParticipantsRaw string
	Participants    []string
	Rate            float64
}

// Planner owns the current trip and its local persistence.
type Planner struct {
	mu        sync.Mutex
	trips     *store.TripStore
	logger    *slog.Logger
	current   *State
	listeners []ChangeListener
}

func NewPlanner(trips *store.TripStore, logger *slog.Logger) *Planner {
	return &Planner{trips: trips, logger: logger}
}

// OnChange registers a listener. Listeners are called after the mutation has
// been committed to the local store, outside the planner lock.
func (p *Planner) OnChange(fn ChangeListener) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *Planner) notify(origin Origin, sections ...string) {
	p.mu.Lock()
	listeners := make([]ChangeListener, len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		for _, section := range sections {
			fn(section, origin)
		}
	}
}

// CurrentID returns the current trip id, or "" when no trip is selected.
func (p *Planner) CurrentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.Meta.ID
}

// Current returns a deep-enough copy of the current state for read-only use.
func (p *Planner) Current() (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return State{}, false
	}
	return copyState(p.current), true
}

func copyState(s *State) State {
	out := *s
	out.Days = append([]model.DayPlan(nil), s.Days...)
	out.Expenses = append([]model.Expense(nil), s.Expenses...)
	out.Shopping = append([]model.ShoppingItem(nil), s.Shopping...)
	out.Categories = append([]string(nil), s.Categories...)
	out.Participants = append([]string(nil), s.Participants...)
	return out
}

// List returns the trip index, newest first.
func (p *Planner) List() ([]model.TripMeta, error) {
	return p.trips.List()
}

// Create sets up a new trip: one synthesized day per requested day, default
// participants and shopping categories, and an immediate local snapshot of
// every section. The new trip becomes current.
func (p *Planner) Create(setup model.SetupConfig) (model.TripMeta, error) {
	setup.Destination = strings.TrimSpace(setup.Destination)
	if setup.Destination == "" {
		return model.TripMeta{}, errors.New("destination is required")
	}
	if setup.Days < 1 {
		setup.Days = 1
	}

	meta := model.TripMeta{
		ID:          model.NewTripID(),
		Destination: setup.Destination,
		StartDate:   setup.StartDate,
		DaysCount:   setup.Days,
	}
	if err := p.trips.Create(meta); err != nil {
		return model.TripMeta{}, err
	}

	state := &State{
		Meta:            meta,
		Setup:           setup,
		Days:            synthesizeDays(setup.StartDate, setup.Days),
		Expenses:        []model.Expense{},
		Shopping:        []model.ShoppingItem{},
		Categories:      append([]string(nil), shopping.DefaultCategories...),
		ParticipantsRaw: defaultParticipantsRaw,
		Participants:    splitParticipants(defaultParticipantsRaw),
		Rate:            setup.Rate,
	}

	p.mu.Lock()
	p.current = state
	err := p.persistAllLocked()
	p.mu.Unlock()
	if err != nil {
		return model.TripMeta{}, err
	}

	p.notify(OriginLocal, allSections...)
	return meta, nil
}

// Switch makes the trip with the given id current, loading its snapshots
// with safe fallbacks for anything missing.
func (p *Planner) Switch(id string) error {
	meta, err := p.trips.Get(id)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrTripNotFound
	}

	sections, err := p.trips.LoadAll(id)
	if err != nil {
		return err
	}

	state := &State{Meta: *meta}

	state.Setup = model.SetupConfig{
		Destination: meta.Destination,
		StartDate:   meta.StartDate,
		Days:        meta.DaysCount,
	}
	if raw, ok := sections[store.SectionConfig]; ok {
		if err := json.Unmarshal([]byte(raw), &state.Setup); err != nil {
			p.logger.Warn("discarding unparsable trip config", "trip", id, "error", err)
		}
	}

	if raw, ok := sections[store.SectionDays]; ok {
		if err := json.Unmarshal([]byte(raw), &state.Days); err != nil {
			p.logger.Warn("discarding unparsable day snapshot", "trip", id, "error", err)
		}
	}
	if state.Days == nil {
		state.Days = []model.DayPlan{}
	}

	if raw, ok := sections[store.SectionExpenses]; ok {
		json.Unmarshal([]byte(raw), &state.Expenses)
	}
	if state.Expenses == nil {
		state.Expenses = []model.Expense{}
	}

	state.ParticipantsRaw = defaultParticipantsRaw
	if raw, ok := sections[store.SectionParticipants]; ok {
		state.ParticipantsRaw = raw
	}
	state.Participants = splitParticipants(state.ParticipantsRaw)

	if raw, ok := sections[store.SectionShopping]; ok {
		json.Unmarshal([]byte(raw), &state.Shopping)
	}
	state.Shopping = migrateShopping(state.Shopping, state.Participants)

	state.Categories = append([]string(nil), shopping.DefaultCategories...)
	if raw, ok := sections[store.SectionCategories]; ok {
		var cats []string
		if err := json.Unmarshal([]byte(raw), &cats); err == nil && len(cats) > 0 {
			state.Categories = cats
		}
	}

	state.Rate = state.Setup.Rate
	if raw, ok := sections[store.SectionRate]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			state.Rate = v
		}
	}

	p.mu.Lock()
	p.current = state
	p.mu.Unlock()

	p.notify(OriginLocal, allSections...)
	return nil
}

// migrateShopping fills defaults for items saved before categories and
// owners existed.
func migrateShopping(items []model.ShoppingItem, participants []string) []model.ShoppingItem {
	owner := "Me"
	if len(participants) > 0 {
		owner = participants[0]
	}
	out := make([]model.ShoppingItem, 0, len(items))
	for _, item := range items {
		if item.Category == "" {
			item.Category = shopping.Uncategorized
		}
		if item.Owner == "" {
			item.Owner = owner
		}
		out = append(out, item)
	}
	return out
}

// Delete removes a trip and all of its local snapshots. If it was current,
// the first remaining trip becomes current; with no trips left the planner
// reverts to the empty state. The remote copy is never deleted.
func (p *Planner) Delete(id string) error {
	meta, err := p.trips.Get(id)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrTripNotFound
	}
	if err := p.trips.Delete(id); err != nil {
		return err
	}

	p.mu.Lock()
	wasCurrent := p.current != nil && p.current.Meta.ID == id
	if wasCurrent {
		p.current = nil
	}
	p.mu.Unlock()

	if !wasCurrent {
		return nil
	}

	remaining, err := p.trips.List()
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return p.Switch(remaining[0].ID)
	}
	p.notify(OriginLocal, allSections...)
	return nil
}

var allSections = []string{
	store.SectionDays,
	store.SectionExpenses,
	store.SectionShopping,
	store.SectionCategories,
	store.SectionParticipants,
	store.SectionRate,
	store.SectionConfig,
}

// mutate runs fn against the current state under the lock, persists the
// given sections, and notifies listeners. fn must replace slices rather than
// edit them in place.
func (p *Planner) mutate(origin Origin, sections []string, fn func(*State) error) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return ErrNoCurrentTrip
	}
	if err := fn(p.current); err != nil {
		p.mu.Unlock()
		return err
	}
	err := p.persistLocked(sections...)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.notify(origin, sections...)
	return nil
}

func (p *Planner) persistAllLocked() error {
	return p.persistLocked(allSections...)
}

func (p *Planner) persistLocked(sections ...string) error {
	id := p.current.Meta.ID
	for _, section := range sections {
		value, err := p.encodeLocked(section)
		if err != nil {
			return err
		}
		if err := p.trips.SaveSection(id, section, value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) encodeLocked(section string) (string, error) {
	var v any
	switch section {
	case store.SectionDays:
		v = p.current.Days
	case store.SectionExpenses:
		v = p.current.Expenses
	case store.SectionShopping:
		v = p.current.Shopping
	case store.SectionCategories:
		v = p.current.Categories
	case store.SectionConfig:
		v = p.current.Setup
	case store.SectionParticipants:
		return p.current.ParticipantsRaw, nil
	case store.SectionRate:
		return strconv.FormatFloat(p.current.Rate, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown section %q", section)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode section %q: %w", section, err)
	}
	return string(data), nil
}

// --- Day operations ---

func (p *Planner) updateDay(idx int, fn func(*model.DayPlan) error) error {
	return p.mutate(OriginLocal, []string{store.SectionDays}, func(s *State) error {
		if idx < 0 || idx >= len(s.Days) {
			return ErrIndexRange
		}
		s.Days = append([]model.DayPlan(nil), s.Days...)
		return fn(&s.Days[idx])
	})
}

// SetDayDate sets a day's calendar date from an ISO date string and
// recomputes the display forms.
func (p *Planner) SetDayDate(idx int, fullDate string) error {
	t, err := time.Parse(isoDate, fullDate)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", fullDate, err)
	}
	return p.updateDay(idx, func(d *model.DayPlan) error {
		d.Date, d.ShortDate, d.FullDate = formatDay(t)
		return nil
	})
}

func (p *Planner) SetDayTitle(idx int, title string) error {
	return p.updateDay(idx, func(d *model.DayPlan) error {
		d.Title = title
		return nil
	})
}

// AddDay appends an empty placeholder day.
func (p *Planner) AddDay() error {
	return p.mutate(OriginLocal, []string{store.SectionDays}, func(s *State) error {
		s.Days = append(append([]model.DayPlan(nil), s.Days...), appendedDay(len(s.Days)+1))
		return nil
	})
}

// AddItem appends an empty timeline item to the given day.
func (p *Planner) AddItem(dayIdx int) error {
	return p.updateDay(dayIdx, func(d *model.DayPlan) error {
		items := append([]model.TripItem(nil), d.Items...)
		d.Items = append(items, model.TripItem{Type: model.ItemSpot})
		return nil
	})
}

func (p *Planner) UpdateItem(dayIdx, itemIdx int, item model.TripItem) error {
	if !item.Type.Valid() {
		return fmt.Errorf("invalid item type %q", item.Type)
	}
	return p.updateDay(dayIdx, func(d *model.DayPlan) error {
		if itemIdx < 0 || itemIdx >= len(d.Items) {
			return ErrIndexRange
		}
		items := append([]model.TripItem(nil), d.Items...)
		items[itemIdx] = item
		d.Items = items
		return nil
	})
}

func (p *Planner) RemoveItem(dayIdx, itemIdx int) error {
	return p.updateDay(dayIdx, func(d *model.DayPlan) error {
		if itemIdx < 0 || itemIdx >= len(d.Items) {
			return ErrIndexRange
		}
		items := append([]model.TripItem(nil), d.Items...)
		d.Items = append(items[:itemIdx], items[itemIdx+1:]...)
		return nil
	})
}

// SetFlight attaches or replaces the day's flight card; nil removes it.
func (p *Planner) SetFlight(dayIdx int, flight *model.FlightInfo) error {
	return p.updateDay(dayIdx, func(d *model.DayPlan) error {
		d.Flight = flight
		return nil
	})
}

// --- Expense operations ---

func (p *Planner) AddExpense(item string, amount float64, payer string) error {
	item = strings.TrimSpace(item)
	if item == "" {
		return errors.New("expense item is required")
	}
	return p.mutate(OriginLocal, []string{store.SectionExpenses}, func(s *State) error {
		e := model.Expense{Item: item, Amount: amount, Payer: payer}
		s.Expenses = append([]model.Expense{e}, s.Expenses...)
		return nil
	})
}

func (p *Planner) RemoveExpense(idx int) error {
	return p.mutate(OriginLocal, []string{store.SectionExpenses}, func(s *State) error {
		if idx < 0 || idx >= len(s.Expenses) {
			return ErrIndexRange
		}
		expenses := append([]model.Expense(nil), s.Expenses...)
		s.Expenses = append(expenses[:idx], expenses[idx+1:]...)
		return nil
	})
}

func (p *Planner) ToggleExpenseSettled(idx int) error {
	return p.mutate(OriginLocal, []string{store.SectionExpenses}, func(s *State) error {
		if idx < 0 || idx >= len(s.Expenses) {
			return ErrIndexRange
		}
		expenses := append([]model.Expense(nil), s.Expenses...)
		expenses[idx].IsSettled = !expenses[idx].IsSettled
		s.Expenses = expenses
		return nil
	})
}

// --- Shopping operations ---

// AddShoppingItem prepends a new checklist item. An empty category is
// auto-categorized from the item name; an empty owner defaults to the first
// participant.
func (p *Planner) AddShoppingItem(name, category, owner string) (model.ShoppingItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ShoppingItem{}, errors.New("item name is required")
	}

	var created model.ShoppingItem
	err := p.mutate(OriginLocal, []string{store.SectionShopping}, func(s *State) error {
		if category == "" {
			category = shopping.Categorize(name)
		}
		if owner == "" && len(s.Participants) > 0 {
			owner = s.Participants[0]
		}
		created = model.ShoppingItem{
			ID:       model.NewShoppingItemID(),
			Name:     name,
			Category: category,
			Owner:    owner,
		}
		s.Shopping = append([]model.ShoppingItem{created}, s.Shopping...)
		return nil
	})
	return created, err
}

func (p *Planner) ToggleShoppingItem(id string) error {
	return p.mutate(OriginLocal, []string{store.SectionShopping}, func(s *State) error {
		items := append([]model.ShoppingItem(nil), s.Shopping...)
		for i := range items {
			if items[i].ID == id {
				items[i].IsBought = !items[i].IsBought
				s.Shopping = items
				return nil
			}
		}
		return fmt.Errorf("shopping item %q not found", id)
	})
}

func (p *Planner) RemoveShoppingItem(id string) error {
	return p.mutate(OriginLocal, []string{store.SectionShopping}, func(s *State) error {
		items := make([]model.ShoppingItem, 0, len(s.Shopping))
		found := false
		for _, item := range s.Shopping {
			if item.ID == id {
				found = true
				continue
			}
			items = append(items, item)
		}
		if !found {
			return fmt.Errorf("shopping item %q not found", id)
		}
		s.Shopping = items
		return nil
	})
}

// AddCategory adds a shopping category if not already present.
func (p *Planner) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("category name is required")
	}
	return p.mutate(OriginLocal, []string{store.SectionCategories}, func(s *State) error {
		for _, c := range s.Categories {
			if c == name {
				return nil
			}
		}
		s.Categories = append(append([]string(nil), s.Categories...), name)
		return nil
	})
}

// --- Participants, rate, setup ---

func splitParticipants(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SetParticipants replaces the participant set from the raw comma-separated
// field.
func (p *Planner) SetParticipants(raw string) error {
	return p.mutate(OriginLocal, []string{store.SectionParticipants}, func(s *State) error {
		s.ParticipantsRaw = raw
		s.Participants = splitParticipants(raw)
		return nil
	})
}

func (p *Planner) SetRate(rate float64) error {
	return p.mutate(OriginLocal, []string{store.SectionRate}, func(s *State) error {
		s.Rate = rate
		return nil
	})
}

// SetSetup replaces the trip configuration (used by currency detection).
func (p *Planner) SetSetup(setup model.SetupConfig) error {
	return p.mutate(OriginLocal, []string{store.SectionConfig}, func(s *State) error {
		s.Setup = setup
		return nil
	})
}

// --- Remote document round-trip ---

// Document builds a full snapshot of the current trip for a remote push.
func (p *Planner) Document() (*model.TripDocument, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	s := copyState(p.current)
	return &model.TripDocument{
		Days:               &s.Days,
		Expenses:           &s.Expenses,
		ShoppingList:       &s.Shopping,
		Setup:              &s.Setup,
		Participants:       &s.Participants,
		ShoppingCategories: &s.Categories,
		ExchangeRate:       &s.Rate,
	}, true
}

// ApplyRemote overwrites every field present in the incoming document.
// Present fields replace the local value wholesale; absent fields are left
// untouched. The resulting state is persisted locally and announced with
// OriginRemote so the sync layer does not echo it back.
func (p *Planner) ApplyRemote(doc *model.TripDocument) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return ErrNoCurrentTrip
	}
	sections := applyDocument(p.current, doc)
	err := p.persistLocked(sections...)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.notify(OriginRemote, sections...)
	return nil
}

// AdoptRemote makes a fetched shared trip current: unknown ids get an index
// entry synthesized from the document's embedded setup with fallback
// defaults, and the state is seeded directly from the document so the UI
// never shows an empty trip while waiting for the live subscription.
func (p *Planner) AdoptRemote(id string, doc *model.TripDocument) error {
	meta, err := p.trips.Get(id)
	if err != nil {
		return err
	}
	if meta == nil {
		m := model.TripMeta{ID: id, Destination: "Shared trip", DaysCount: 1}
		if doc.Setup != nil {
			if doc.Setup.Destination != "" {
				m.Destination = doc.Setup.Destination
			}
			m.StartDate = doc.Setup.StartDate
			if doc.Setup.Days > 0 {
				m.DaysCount = doc.Setup.Days
			}
		}
		if err := p.trips.Create(m); err != nil {
			return err
		}
		meta = &m
	}

	state := &State{
		Meta: *meta,
		Setup: model.SetupConfig{
			Destination: meta.Destination,
			StartDate:   meta.StartDate,
			Days:        meta.DaysCount,
		},
		Days:            []model.DayPlan{},
		Expenses:        []model.Expense{},
		Shopping:        []model.ShoppingItem{},
		Categories:      append([]string(nil), shopping.DefaultCategories...),
		ParticipantsRaw: defaultParticipantsRaw,
		Participants:    splitParticipants(defaultParticipantsRaw),
	}
	applyDocument(state, doc)

	p.mu.Lock()
	p.current = state
	err = p.persistAllLocked()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.notify(OriginRemote, allSections...)
	return nil
}

// applyDocument copies present document fields into the state and returns
// the touched sections.
func applyDocument(s *State, doc *model.TripDocument) []string {
	var sections []string
	if doc.Days != nil {
		s.Days = append([]model.DayPlan(nil), *doc.Days...)
		sections = append(sections, store.SectionDays)
	}
	if doc.Expenses != nil {
		s.Expenses = append([]model.Expense(nil), *doc.Expenses...)
		sections = append(sections, store.SectionExpenses)
	}
	if doc.ShoppingList != nil {
		s.Shopping = append([]model.ShoppingItem(nil), *doc.ShoppingList...)
		sections = append(sections, store.SectionShopping)
	}
	if doc.Setup != nil {
		s.Setup = *doc.Setup
		sections = append(sections, store.SectionConfig)
	}
	if doc.Participants != nil {
		s.Participants = append([]string(nil), *doc.Participants...)
		s.ParticipantsRaw = strings.Join(s.Participants, ", ")
		sections = append(sections, store.SectionParticipants)
	}
	if doc.ShoppingCategories != nil {
		s.Categories = append([]string(nil), *doc.ShoppingCategories...)
		sections = append(sections, store.SectionCategories)
	}
	if doc.ExchangeRate != nil {
		s.Rate = *doc.ExchangeRate
		sections = append(sections, store.SectionRate)
	}
	return sections
}

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-events/internal/apperrors"
	eventdb "ms-events/internal/events/db"
	"ms-events/internal/events/pass"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const publishTimeout = 3 * time.Second

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, p eventdb.ListParams) ([]models.Event, int, error)
	SearchEvents(ctx context.Context, q models.SearchQuery) ([]models.Event, error)
	AddAttendee(ctx context.Context, eventID int64, email string, at time.Time) (bool, error)
	IsAttendee(ctx context.Context, eventID int64, email string) (bool, error)
	GetAttendees(ctx context.Context, eventID int64) ([]models.Attendee, error)
}

// Cache is a best-effort read-through cache for single events. Get reports
// a generation on a miss; Set drops the fill if an Invalidate happened since.
type Cache interface {
	Get(ctx context.Context, id int64) (*models.Event, int64, bool)
	Set(ctx context.Context, event *models.Event, gen int64)
	Invalidate(ctx context.Context, id int64)
}

type Publisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}

type PassGenerator interface {
	PNG(eventID int64, email string) ([]byte, error)
	Decrypt(token string) (*pass.Payload, error)
}

type Validator interface {
	Struct(s any) error
}

type EventService struct {
	DB        DBLayer
	Cache     Cache
	Publisher Publisher
	Passes    PassGenerator
	Validator Validator
	Logger    *logger.Logger
	now       func() time.Time
}

func NewEventService(db DBLayer, v Validator, l *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Cache:     nopCache{},
		Publisher: nopPublisher{},
		Validator: v,
		Logger:    l,
		now:       time.Now,
	}
}

func (s *EventService) WithCache(c Cache) *EventService {
	if c != nil {
		s.Cache = c
	}
	return s
}

func (s *EventService) WithPublisher(p Publisher) *EventService {
	if p != nil {
		s.Publisher = p
	}
	return s
}

func (s *EventService) WithPasses(p PassGenerator) *EventService {
	s.Passes = p
	return s
}

func notFound(id int64) error {
	return apperrors.NotFound(fmt.Sprintf("Event not found with id: %d", id))
}

func notOwner() error {
	return apperrors.Forbidden("You are not the owner of this event")
}

func requireUser(user *models.User) error {
	if user == nil {
		return apperrors.Unauthenticated("Authentication required")
	}
	return nil
}

// load fetches an event straight from the store, bypassing the cache, so
// ownership decisions never act on stale data.
func (s *EventService) load(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if errors.Is(err, eventdb.ErrEventNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load the event due to a database error.", err)
	}
	return event, nil
}

func (s *EventService) loadOwned(ctx context.Context, id int64, requester *models.User) (*models.Event, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOwnedBy(requester) {
		s.Logger.LogSecurity("OWNERSHIP", fmt.Sprintf("%s tried to modify event %d owned by %s", requester.Email, id, event.CreatorEmail))
		return nil, notOwner()
	}
	return event, nil
}

func (s *EventService) Create(ctx context.Context, fields models.EventFields, creator *models.User) (*models.Event, error) {
	if err := requireUser(creator); err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(fields); err != nil {
		return nil, err
	}

	event := &models.Event{
		CreatorEmail: creator.Email,
		CreatedAt:    s.now().UTC(),
	}
	fields.Apply(event)

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, apperrors.Internal("Failed to create the event due to a database error.", err)
	}

	s.Logger.LogEvent("CREATE", event.ID, fmt.Sprintf("created by %s", creator.Email))
	s.publish(ctx, models.EventCreated, event.ID, creator.Email, event)
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id int64, fields models.EventFields, requester *models.User) (*models.Event, error) {
	event, err := s.loadOwned(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(fields); err != nil {
		return nil, err
	}

	fields.Apply(event)
	event.UpdatedAt = s.now().UTC()

	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, eventdb.ErrEventNotFound) {
			return nil, notFound(id)
		}
		return nil, apperrors.Internal("Failed to update the event due to a database error.", err)
	}

	s.Cache.Invalidate(ctx, id)
	s.Logger.LogEvent("UPDATE", id, fmt.Sprintf("updated by %s", requester.Email))
	s.publish(ctx, models.EventUpdated, id, requester.Email, event)
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, id int64, requester *models.User) error {
	if _, err := s.loadOwned(ctx, id, requester); err != nil {
		return err
	}

	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, eventdb.ErrEventNotFound) {
			return notFound(id)
		}
		return apperrors.Internal("Failed to delete the event due to a database error.", err)
	}

	s.Cache.Invalidate(ctx, id)
	s.Logger.LogEvent("DELETE", id, fmt.Sprintf("deleted by %s", requester.Email))
	s.publish(ctx, models.EventDeleted, id, requester.Email, nil)
	return nil
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	event, gen, ok := s.Cache.Get(ctx, id)
	if ok {
		return event, nil
	}

	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, event, gen)
	return event, nil
}

// List returns one page of events. A page past the end is empty, not an error.
func (s *EventService) List(ctx context.Context, page, size int, sortBy string) (models.Page[models.Event], error) {
	fields := map[string]string{}
	if page < 0 {
		fields["page"] = "Page must be zero or greater"
	}
	if size < 1 || size > models.MaxPageSize {
		fields["size"] = fmt.Sprintf("Size must be between 1 and %d", models.MaxPageSize)
	}
	if _, ok := models.EventSortColumns[sortBy]; !ok {
		fields["sortBy"] = "SortBy must be one of id, name, date, time, location"
	}
	if len(fields) > 0 {
		return models.Page[models.Event]{}, apperrors.Validation(fields)
	}

	events, total, err := s.DB.ListEvents(ctx, eventdb.ListParams{Page: page, Size: size, SortBy: sortBy})
	if err != nil {
		return models.Page[models.Event]{}, apperrors.Internal("Failed to fetch events due to a database error.", err)
	}
	return models.NewPage(events, page, size, total), nil
}

func (s *EventService) Search(ctx context.Context, q models.SearchQuery) ([]models.Event, error) {
	if err := s.Validator.Struct(q); err != nil {
		return nil, err
	}

	events, err := s.DB.SearchEvents(ctx, q)
	if err != nil {
		return nil, apperrors.Internal("Failed to search events due to a database error.", err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (s *EventService) GetAttendees(ctx context.Context, id int64, requester *models.User) ([]models.Attendee, error) {
	if _, err := s.loadOwned(ctx, id, requester); err != nil {
		return nil, err
	}

	attendees, err := s.DB.GetAttendees(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch attendees due to a database error.", err)
	}
	return attendees, nil
}

// Register adds user to the event's attendee set. Registering twice is
// harmless and reported through AlreadyRegistered.
func (s *EventService) Register(ctx context.Context, id int64, user *models.User) (models.RegistrationResult, error) {
	result := models.RegistrationResult{EventID: id}
	if err := requireUser(user); err != nil {
		return result, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return result, err
	}

	added, err := s.DB.AddAttendee(ctx, id, user.Email, s.now().UTC())
	if err != nil {
		return result, apperrors.Internal("Failed to register for the event due to a database error.", err)
	}
	result.AlreadyRegistered = !added

	if added {
		s.Logger.LogEvent("REGISTER", id, fmt.Sprintf("%s registered", user.Email))
		s.publish(ctx, models.AttendeeRegistered, id, user.Email, nil)
	}
	return result, nil
}

// Pass renders the QR attendance pass for a registered attendee.
func (s *EventService) Pass(ctx context.Context, id int64, user *models.User) ([]byte, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if s.Passes == nil {
		return nil, apperrors.Internal("Attendance passes are not configured.", errors.New("nil pass generator"))
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	ok, err := s.DB.IsAttendee(ctx, id, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Failed to check registration due to a database error.", err)
	}
	if !ok {
		return nil, apperrors.Forbidden("You are not registered for this event")
	}

	png, err := s.Passes.PNG(id, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate the attendance pass.", err)
	}
	return png, nil
}

// CheckIn verifies a scanned pass at the door. Only the event's creator may
// check attendees in, and the holder must still be registered.
func (s *EventService) CheckIn(ctx context.Context, id int64, token string, requester *models.User) (*models.CheckIn, error) {
	if _, err := s.loadOwned(ctx, id, requester); err != nil {
		return nil, err
	}
	if s.Passes == nil {
		return nil, apperrors.Internal("Attendance passes are not configured.", errors.New("nil pass generator"))
	}
	if token == "" {
		return nil, apperrors.Validation(map[string]string{"pass": "Pass is required"})
	}

	payload, err := s.Passes.Decrypt(token)
	if err != nil {
		s.Logger.LogSecurity("CHECKIN", fmt.Sprintf("Rejected unreadable pass for event %d: %v", id, err))
		return nil, apperrors.Validation(map[string]string{"pass": "Pass is not valid"})
	}
	if payload.EventID != id {
		return nil, apperrors.Validation(map[string]string{"pass": "Pass was issued for another event"})
	}

	ok, err := s.DB.IsAttendee(ctx, id, payload.Email)
	if err != nil {
		return nil, apperrors.Internal("Failed to check registration due to a database error.", err)
	}
	if !ok {
		return nil, apperrors.Forbidden("Pass holder is not registered for this event")
	}

	s.Logger.LogEvent("CHECKIN", id, fmt.Sprintf("%s checked in by %s", payload.Email, requester.Email))
	return &models.CheckIn{EventID: id, Email: payload.Email, IssuedAt: payload.IssuedAt}, nil
}

// publish is best-effort: a broker outage is logged, never surfaced.
func (s *EventService) publish(ctx context.Context, kind string, eventID int64, actor string, snapshot *models.Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.Publisher.Publish(pubCtx, models.NewDomainEvent(kind, eventID, actor, snapshot)); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for event %d: %v", kind, eventID, err))
	}
}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) (*models.Event, int64, bool) { return nil, 0, false }
func (nopCache) Set(context.Context, *models.Event, int64)              {}
func (nopCache) Invalidate(context.Context, int64)                      {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.DomainEvent) error { return nil }

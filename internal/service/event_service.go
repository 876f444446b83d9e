package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

type eventRepo interface {
	Add(ctx context.Context, event models.Event) (bool, error)
	Get(ctx context.Context, date models.Date, eventType models.EventType) (*models.Event, error)
	Delete(ctx context.Context, date models.Date, eventType models.EventType) (bool, error)
	ListAll(ctx context.Context) ([]models.Event, error)
	UpdateDescription(ctx context.Context, event models.Event, description *string) error
	UpdateEventType(ctx context.Context, event models.Event, newType models.EventType) (int64, error)
	UpdateEventDate(ctx context.Context, event models.Event, newDate models.Date) error
	ScanForNewEvents(ctx context.Context, defaultType models.EventType) (int64, error)
}

// EventService is the maintenance surface for the event catalogue.
type EventService struct {
	repo   eventRepo
	logger *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(repo eventRepo, logger *zap.Logger) *EventService {
	return &EventService{repo: repo, logger: logger}
}

// Add registers an event, reporting whether it was new.
func (s *EventService) Add(ctx context.Context, event models.Event) (bool, error) {
	created, err := s.repo.Add(ctx, event)
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Sugar().Infow("event added", "event", event.Key())
	}
	return created, nil
}

// Get fetches one event by key, nil when absent.
func (s *EventService) Get(ctx context.Context, key string) (*models.Event, error) {
	date, eventType, err := models.ParseEventKey(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindValidation, "invalid event key")
	}
	return s.repo.Get(ctx, date, eventType)
}

// List returns all events, newest first per the repository ordering.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	return s.repo.ListAll(ctx)
}

// Delete removes an event row. An event with recorded check-ins cannot
// be deleted; remove or migrate the check-ins first.
func (s *EventService) Delete(ctx context.Context, key string) (bool, error) {
	date, eventType, err := models.ParseEventKey(key)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.KindValidation, "invalid event key")
	}
	deleted, err := s.repo.Delete(ctx, date, eventType)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Sugar().Infow("event deleted", "event", key)
	}
	return deleted, nil
}

// Describe sets or clears an event's description.
func (s *EventService) Describe(ctx context.Context, key string, description *string) error {
	event, err := s.requireEvent(ctx, key)
	if err != nil {
		return err
	}
	return s.repo.UpdateDescription(ctx, *event, description)
}

// Retype changes an event's type and migrates its check-ins. Returns
// the number of check-ins moved.
func (s *EventService) Retype(ctx context.Context, key string, newType models.EventType) (int64, error) {
	event, err := s.requireEvent(ctx, key)
	if err != nil {
		return 0, err
	}
	migrated, err := s.repo.UpdateEventType(ctx, *event, newType)
	if err != nil {
		return 0, err
	}
	s.logger.Sugar().Infow("event retyped", "event", key, "new_type", string(newType), "checkins_migrated", migrated)
	return migrated, nil
}

// Redate moves an event with no check-ins to a different date.
func (s *EventService) Redate(ctx context.Context, key string, newDate models.Date) error {
	event, err := s.requireEvent(ctx, key)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateEventDate(ctx, *event, newDate); err != nil {
		return err
	}
	s.logger.Sugar().Infow("event redated", "event", key, "new_date", newDate.String())
	return nil
}

// DiscoverFromCheckins registers an event for every (date, type) pair
// present in the check-in history but missing from the catalogue.
// Running it twice adds nothing the second time.
func (s *EventService) DiscoverFromCheckins(ctx context.Context, defaultType models.EventType) (int64, error) {
	added, err := s.repo.ScanForNewEvents(ctx, defaultType)
	if err != nil {
		return 0, err
	}
	s.logger.Sugar().Infow("event discovery finished", "events_added", added)
	return added, nil
}

func (s *EventService) requireEvent(ctx context.Context, key string) (*models.Event, error) {
	date, eventType, err := models.ParseEventKey(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindValidation, "invalid event key")
	}
	event, err := s.repo.Get(ctx, date, eventType)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return event, nil
}

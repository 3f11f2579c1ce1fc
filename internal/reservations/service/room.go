package service

import (
	"context"
	"errors"
	"sync"

	reservationserrors "roomly/internal/reservations/errors"
	"roomly/internal/reservations/repository"
	"roomly/pkg/cache"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

// RoomService serves the room read-models that sit in front of the cache.
// These are exactly the entries the CacheInvalidator expires after admission.
type RoomService interface {
	List(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error)
	GetByID(ctx context.Context, id string) (*model.Room, error)
}

type roomService struct {
	repo  repository.RoomRepository
	cache cache.Cache
	cfg   *config.Config
}

func NewRoomService(repo repository.RoomRepository, c cache.Cache, cfg *config.Config) RoomService {
	return &roomService{
		repo:  repo,
		cache: c,
		cfg:   cfg,
	}
}

type roomDirectory struct {
	Rooms []*model.Room
	Total int64
}

func (s *roomService) List(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error) {
	// Only the canonical first page is cached; deeper pages always hit the
	// store so one invalidation key covers the directory.
	cacheable := offset == 0
	if cacheable {
		if entry, found := s.cache.Get(roomDirectoryKey); found {
			if dir, ok := entry.(roomDirectory); ok {
				return clip(dir.Rooms, limit), dir.Total, nil
			}
		}
	}

	var total int64
	var rooms []*model.Room
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count rooms", "error", errCount)
			errCount = apperrors.Internal("Failed to count rooms", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		rooms, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list rooms", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve rooms", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	if cacheable {
		s.cache.Set(roomDirectoryKey, roomDirectory{Rooms: rooms, Total: total}, s.cfg.CacheTTL)
	}

	return rooms, total, nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	key := roomDetailKey(id)
	if entry, found := s.cache.Get(key); found {
		if room, ok := entry.(*model.Room); ok {
			return room, nil
		}
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrRoomNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}

	s.cache.Set(key, room, s.cfg.CacheTTL)
	return room, nil
}

func clip(rooms []*model.Room, limit int) []*model.Room {
	if limit > 0 && len(rooms) > limit {
		return rooms[:limit]
	}
	return rooms
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/config"
	"github.com/dmitrijs2005/nabzkeeper/internal/fields"
	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
	"github.com/dmitrijs2005/nabzkeeper/internal/observability"
	"github.com/dmitrijs2005/nabzkeeper/internal/partition"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/activities"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/nabzkeeper/internal/schema"
)

// DefaultListLimit is used when List is called with a zero limit.
const DefaultListLimit = 100

// Page is one List result.
type Page struct {
	Events []fields.Record `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// UpdateResult reports whether an update changed the stored row.
type UpdateResult struct {
	Changed bool `json:"changed"`
}

// Filter is the set of List filters, re-exported for callers of the service.
type Filter = activities.Filter

type ActivityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	resolver    *partition.Resolver
	store       *partition.Store
	schema      *schema.Manager
	mapper      *fields.Mapper
	log         logging.Logger
	now         func() time.Time
}

func NewActivityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *ActivityService {
	return &ActivityService{
		db:          db,
		repomanager: m,
		resolver:    partition.NewResolver(cfg.PartitionsDir, cfg.HashPartitionNames),
		store:       partition.NewStore(),
		schema:      schema.NewManager(log.With("component", "schema")),
		mapper:      fields.NewMapper(cfg.MaxTags),
		log:         log.With("component", "activities"),
		now:         time.Now,
	}
}

func (s *ActivityService) timestamp() string {
	return s.now().Format(common.TimestampLayout)
}

// withPartition resolves userID's partition, brings its schema to the
// current generation and runs fn against it.
func (s *ActivityService) withPartition(ctx context.Context, userID int64, fn func(repo activities.Repository, gen models.Generation) error) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: user %d", common.ErrNotFound, userID)
		}
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	loc, err := s.resolver.Resolve(user.UserName)
	if err != nil {
		return err
	}

	pdb, err := s.store.Open(ctx, loc)
	if err != nil {
		return err
	}
	defer pdb.Close()

	gen, err := s.schema.Ensure(ctx, pdb)
	if err != nil {
		return err
	}

	return fn(s.repomanager.Activities(pdb, gen), gen)
}

// Create stores rec as a new activity of userID and returns its id.
// createDate and updateDate default to now; id and user_id are assigned
// here, never taken from rec.
func (s *ActivityService) Create(ctx context.Context, userID int64, rec fields.Record) (id int64, err error) {
	defer func() { observability.RecordActivityOperation("create", err) }()

	rec = rec.Clone()
	delete(rec, models.AttrID)
	delete(rec, models.AttrUserID)

	now := s.timestamp()
	for _, attr := range []string{models.AttrCreateDate, models.AttrUpdateDate} {
		if text, ok := rec[attr].AsText(); !ok || text == "" {
			rec[attr] = fields.Text(now)
		}
	}

	err = s.withPartition(ctx, userID, func(repo activities.Repository, gen models.Generation) error {
		cols, vals, err := s.mapper.ToInternal(rec, gen)
		if err != nil {
			return err
		}
		id, err = repo.Insert(ctx, userID, cols, vals)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "create activity failed", "user_id", userID, "error", err)
		return 0, err
	}

	s.log.Debug(ctx, "activity created", "user_id", userID, "id", id)
	return id, nil
}

// List returns userID's activities matching f, newest first. A zero limit
// selects DefaultListLimit.
func (s *ActivityService) List(ctx context.Context, userID int64, f Filter, limit, offset int) (page *Page, err error) {
	defer func() { observability.RecordActivityOperation("list", err) }()

	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", common.ErrValidation)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	page = &Page{Events: []fields.Record{}, Limit: limit, Offset: offset}
	err = s.withPartition(ctx, userID, func(repo activities.Repository, gen models.Generation) error {
		rows, err := repo.Select(ctx, userID, f, limit, offset)
		if err != nil {
			return err
		}
		for _, row := range rows {
			rec, err := s.mapper.FromInternal(row.Columns, row.Values, gen)
			if err != nil {
				return err
			}
			page.Events = append(page.Events, rec)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "list activities failed", "user_id", userID, "error", err)
		return nil, err
	}

	page.Total = len(page.Events)
	return page, nil
}

// Get returns one activity owned by userID.
func (s *ActivityService) Get(ctx context.Context, userID, eventID int64) (rec fields.Record, err error) {
	defer func() { observability.RecordActivityOperation("get", err) }()

	err = s.withPartition(ctx, userID, func(repo activities.Repository, gen models.Generation) error {
		row, err := repo.GetByID(ctx, userID, eventID)
		if err != nil {
			return err
		}
		rec, err = s.mapper.FromInternal(row.Columns, row.Values, gen)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "get activity failed", "user_id", userID, "id", eventID, "error", err)
		return nil, err
	}
	return rec, nil
}

// Update writes the attributes present in rec to an activity owned by
// userID and refreshes its updateDate. Writing values equal to the stored
// ones is not an error; Changed is false when no row was modified.
func (s *ActivityService) Update(ctx context.Context, userID, eventID int64, rec fields.Record) (res *UpdateResult, err error) {
	defer func() { observability.RecordActivityOperation("update", err) }()

	rec = rec.Clone()
	rec[models.AttrUpdateDate] = fields.Text(s.timestamp())

	err = s.withPartition(ctx, userID, func(repo activities.Repository, gen models.Generation) error {
		ok, err := repo.Exists(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: activity %d", common.ErrNotFound, eventID)
		}

		cols, vals, err := s.mapper.ToInternalUpdate(rec, gen)
		if err != nil {
			return err
		}
		n, err := repo.Update(ctx, userID, eventID, cols, vals)
		if err != nil {
			return err
		}
		res = &UpdateResult{Changed: n > 0}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "update activity failed", "user_id", userID, "id", eventID, "error", err)
		return nil, err
	}

	if !res.Changed {
		s.log.Info(ctx, "activity update changed nothing", "user_id", userID, "id", eventID)
	}
	return res, nil
}

// Delete removes an activity owned by userID.
func (s *ActivityService) Delete(ctx context.Context, userID, eventID int64) (err error) {
	defer func() { observability.RecordActivityOperation("delete", err) }()

	err = s.withPartition(ctx, userID, func(repo activities.Repository, gen models.Generation) error {
		n, err := repo.Delete(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: activity %d", common.ErrNotFound, eventID)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "delete activity failed", "user_id", userID, "id", eventID, "error", err)
	}
	return err
}

// EnsurePartition creates username's partition if needed and brings it to
// the current generation.
func (s *ActivityService) EnsurePartition(ctx context.Context, username string) (models.Generation, error) {
	loc, err := s.resolver.Resolve(username)
	if err != nil {
		return models.GenerationAbsent, err
	}

	pdb, err := s.store.Open(ctx, loc)
	if err != nil {
		return models.GenerationAbsent, err
	}
	defer pdb.Close()

	return s.schema.Ensure(ctx, pdb)
}

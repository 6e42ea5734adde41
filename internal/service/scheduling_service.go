package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/opencampus/campus-api/internal/dto"
	"github.com/opencampus/campus-api/internal/models"
	"github.com/opencampus/campus-api/internal/scheduler"
	appErrors "github.com/opencampus/campus-api/pkg/errors"
	"github.com/opencampus/campus-api/pkg/jobs"
)

type sectionSource interface {
	ListBySemester(ctx context.Context, semester string) ([]models.CourseSection, error)
}

type classroomSource interface {
	ListActive(ctx context.Context) ([]models.Classroom, error)
}

type scheduleSink interface {
	ReplaceForSections(ctx context.Context, exec sqlx.ExtContext, rows []models.Schedule) error
	ListBySemester(ctx context.Context, semester string) ([]models.Schedule, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type proposalCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type solveObserver interface {
	ObserveSolve(outcome string, duration time.Duration, sections int)
}

// SchedulingConfig governs solver orchestration behaviour.
type SchedulingConfig struct {
	ProposalTTL  time.Duration
	SolveTimeout time.Duration
	// QueueWorkers > 0 runs solves on background workers; 0 solves inline
	// on the calling goroutine (used by tests and small deployments).
	QueueWorkers int
}

// SchedulingService builds semester timetables with the backtracking solver
// and persists accepted proposals. One solve owns its section/room snapshot
// end to end, so concurrent generations for different semesters are fully
// independent.
type SchedulingService struct {
	sections  sectionSource
	rooms     classroomSource
	schedules scheduleSink
	tx        txProvider
	cache     proposalCache
	solver    *scheduler.Solver
	metrics   solveObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SchedulingConfig

	store *proposalStore
	queue *jobs.Queue
}

// NewSchedulingService wires scheduler dependencies.
func NewSchedulingService(
	sections sectionSource,
	rooms classroomSource,
	schedules scheduleSink,
	tx txProvider,
	cache proposalCache,
	solver *scheduler.Solver,
	metrics solveObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SchedulingConfig,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = 2 * time.Minute
	}

	s := &SchedulingService{
		sections:  sections,
		rooms:     rooms,
		schedules: schedules,
		tx:        tx,
		cache:     cache,
		solver:    solver,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		store:     newProposalStore(cfg.ProposalTTL),
	}
	if cfg.QueueWorkers > 0 {
		// Solve outcomes, including failures, land on the proposal; the
		// handler only errors on malformed jobs.
		s.queue = jobs.NewQueue("schedule-solver", s.handleSolveJob, jobs.QueueConfig{
			Workers: cfg.QueueWorkers,
			Logger:  logger,
		})
	}
	return s
}

// Start launches the background solve workers, when configured.
func (s *SchedulingService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop drains the background workers.
func (s *SchedulingService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Generate snapshots the semester's sections and rooms, checks the
// preconditions, and hands the search to a worker. The expensive
// backtracking never runs while the caller is blocked unless the service
// was configured for inline solving.
func (s *SchedulingService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	sections, err := s.sections.ListBySemester(ctx, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course sections")
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoSections, fmt.Sprintf("no course sections to schedule for semester %s", req.Semester))
	}

	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoRooms, "")
	}

	proposal := scheduleProposal{
		ProposalID: uuid.NewString(),
		Semester:   req.Semester,
		Status:     dto.ProposalStatusPending,
		Sections: lo.Map(sections, func(section models.CourseSection, _ int) scheduler.Section {
			return scheduler.Section{
				ID:           section.ID,
				Capacity:     section.Quota,
				InstructorID: section.InstructorID,
			}
		}),
		Rooms: lo.Map(rooms, func(room models.Classroom, _ int) scheduler.Room {
			return scheduler.Room{ID: room.ID, Capacity: room.Capacity}
		}),
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{
			ID:      proposal.ProposalID,
			Type:    "solve-semester",
			Payload: proposal.ProposalID,
		})
		if err != nil {
			s.store.Delete(proposal.ProposalID)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue schedule generation")
		}
		return &dto.GenerateScheduleResponse{
			ProposalID: proposal.ProposalID,
			Semester:   proposal.Semester,
			Status:     dto.ProposalStatusPending,
		}, nil
	}

	s.solveProposal(ctx, proposal.ProposalID)
	solved, _ := s.store.Get(proposal.ProposalID)
	return &dto.GenerateScheduleResponse{
		ProposalID: proposal.ProposalID,
		Semester:   proposal.Semester,
		Status:     solved.Status,
	}, nil
}

// Proposal returns the current state of a proposal, falling back to the
// Redis cache when the in-memory entry has been evicted.
func (s *SchedulingService) Proposal(ctx context.Context, id string) (*dto.ProposalView, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposal id is required")
	}
	if proposal, ok := s.store.Get(id); ok {
		view := proposal.view()
		return &view, nil
	}
	if s.cache != nil {
		var view dto.ProposalView
		if err := s.cache.Get(ctx, proposalCacheKey(id), &view); err == nil {
			return &view, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
}

// Save persists a solved proposal's rows inside one transaction: either the
// full semester schedule lands or nothing does.
func (s *SchedulingService) Save(ctx context.Context, req dto.SaveScheduleRequest) (*dto.SaveScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	switch proposal.Status {
	case dto.ProposalStatusSolved:
	case dto.ProposalStatusPending:
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal is still being solved")
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal did not produce a schedule")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows := scheduleRows(proposal.Assignment)
	if err = s.schedules.ReplaceForSections(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule rows")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	s.store.Delete(req.ProposalID)
	if s.cache != nil {
		_ = s.cache.Delete(ctx, proposalCacheKey(req.ProposalID))
	}
	s.logger.Info("schedule saved",
		zap.String("semester", proposal.Semester),
		zap.Int("sections", len(rows)))

	return &dto.SaveScheduleResponse{
		Semester:       proposal.Semester,
		SectionsPlaced: len(rows),
	}, nil
}

// ListSchedule returns the persisted timetable for a semester.
func (s *SchedulingService) ListSchedule(ctx context.Context, semester string) ([]models.Schedule, error) {
	if semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}
	rows, err := s.schedules.ListBySemester(ctx, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return rows, nil
}

func (s *SchedulingService) handleSolveJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("solve job %s: payload is not a proposal id", job.ID)
	}
	s.solveProposal(ctx, id)
	return nil
}

// solveProposal runs the search under its deadline and records the outcome
// on the proposal. Every terminal state ends up in the store and, when
// available, the Redis cache.
func (s *SchedulingService) solveProposal(ctx context.Context, id string) {
	proposal, ok := s.store.Get(id)
	if !ok {
		s.logger.Warn("proposal vanished before solving", zap.String("proposal_id", id))
		return
	}

	solveCtx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()

	start := time.Now()
	assigned, err := s.solver.Solve(solveCtx, proposal.Sections, proposal.Rooms)
	proposal.Elapsed = time.Since(start)

	outcome := "solved"
	switch {
	case err == nil:
		proposal.Status = dto.ProposalStatusSolved
		proposal.Assignment = assigned
		proposal.Score = scheduler.Score(assigned)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		outcome = "timeout"
		proposal.Status = dto.ProposalStatusFailed
		proposal.FailureCode = appErrors.ErrSolveTimeout.Code
		proposal.FailureMessage = appErrors.ErrSolveTimeout.Message
	default:
		proposal.Status = dto.ProposalStatusFailed
		if solveErr, isSolve := scheduler.AsSolveError(err); isSolve {
			outcome = strings.ToLower(string(solveErr.Reason))
			proposal.FailureCode = string(solveErr.Reason)
			proposal.FailureMessage = solveErr.Error()
		} else {
			outcome = "invalid_input"
			proposal.FailureCode = appErrors.ErrValidation.Code
			proposal.FailureMessage = err.Error()
		}
	}

	s.store.Save(proposal)
	if s.metrics != nil {
		s.metrics.ObserveSolve(outcome, proposal.Elapsed, len(proposal.Sections))
	}
	if s.cache != nil {
		view := proposal.view()
		if cacheErr := s.cache.Set(ctx, proposalCacheKey(id), view, s.cfg.ProposalTTL); cacheErr != nil {
			s.logger.Warn("failed to cache proposal", zap.String("proposal_id", id), zap.Error(cacheErr))
		}
	}
	s.logger.Info("schedule solve finished",
		zap.String("proposal_id", id),
		zap.String("semester", proposal.Semester),
		zap.String("outcome", outcome),
		zap.Int("sections", len(proposal.Sections)),
		zap.Duration("elapsed", proposal.Elapsed))
}

func proposalCacheKey(id string) string {
	return "schedule:proposal:" + id
}

// scheduleRows flattens an assignment into persistable rows, ordered by
// section id so inserts are deterministic.
func scheduleRows(assigned scheduler.Assignment) []models.Schedule {
	rows := make([]models.Schedule, 0, len(assigned))
	for sectionID, slot := range assigned {
		rows = append(rows, models.Schedule{
			SectionID:   sectionID,
			ClassroomID: slot.RoomID,
			DayOfWeek:   slot.Day,
			StartTime:   slot.Start.String(),
			EndTime:     slot.End.String(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SectionID < rows[j].SectionID })
	return rows
}

// --- Proposal store ---

type scheduleProposal struct {
	ProposalID     string
	Semester       string
	Status         dto.ProposalStatus
	Sections       []scheduler.Section
	Rooms          []scheduler.Room
	Assignment     scheduler.Assignment
	Score          int
	FailureCode    string
	FailureMessage string
	RequestedAt    time.Time
	Elapsed        time.Duration
}

func (p scheduleProposal) view() dto.ProposalView {
	view := dto.ProposalView{
		ProposalID:     p.ProposalID,
		Semester:       p.Semester,
		Status:         p.Status,
		SectionCount:   len(p.Sections),
		FailureCode:    p.FailureCode,
		FailureMessage: p.FailureMessage,
		RequestedAt:    p.RequestedAt,
		ElapsedMillis:  p.Elapsed.Milliseconds(),
	}
	if p.Status == dto.ProposalStatusSolved {
		score := p.Score
		view.Score = &score
		view.Slots = make([]dto.ScheduleSlotView, 0, len(p.Assignment))
		for sectionID, slot := range p.Assignment {
			view.Slots = append(view.Slots, dto.ScheduleSlotView{
				SectionID:    sectionID,
				ClassroomID:  slot.RoomID,
				InstructorID: slot.InstructorID,
				DayOfWeek:    slot.Day,
				StartTime:    slot.Start.String(),
				EndTime:      slot.End.String(),
			})
		}
		sort.Slice(view.Slots, func(i, j int) bool {
			a, b := view.Slots[i], view.Slots[j]
			if a.DayOfWeek != b.DayOfWeek {
				return a.DayOfWeek < b.DayOfWeek
			}
			if a.StartTime != b.StartTime {
				return a.StartTime < b.StartTime
			}
			return a.SectionID < b.SectionID
		})
	}
	return view
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *proposalStore) Save(proposal scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (scheduleProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

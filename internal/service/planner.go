package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/models"
	"github.com/Dan9191/payoff-planner/internal/planner"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
)

// SkipLocked marks a run dropped because another run for the user holds the lock
const SkipLocked = "locked"

const plannerLockTTL = 30 * time.Second

// CreateGoal stores a new active purchase goal
func (s *Service) CreateGoal(ctx context.Context, userID string, req models.GoalRequest) (*planner.Goal, error) {
	g := &planner.Goal{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            req.Name,
		Cadence:         planner.Cadence(req.Cadence),
		Priority:        req.Priority,
		TargetAmount:    req.TargetAmount,
		MinContribution: req.MinContribution,
		MaxContribution: req.MaxContribution,
		FlexibleDate:    req.FlexibleDate,
		Status:          planner.StatusActive,
	}
	if req.TargetDate != nil {
		d := recurrence.Day(*req.TargetDate)
		g.TargetDate = &d
	}
	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "goal_id": g.ID}).Info("goal created")
	return g, nil
}

// ListGoals returns the user's goals
func (s *Service) ListGoals(ctx context.Context, userID string) ([]planner.Goal, error) {
	return s.repo.ListGoals(ctx, userID)
}

// SetGoalStatus pauses, resumes or cancels one of the user's goals.
// Cancelling releases the goal's reservation back to spendable cash.
func (s *Service) SetGoalStatus(ctx context.Context, userID, goalID string, status planner.GoalStatus) (*planner.Goal, error) {
	goals, err := s.repo.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		g := &goals[i]
		if g.ID != goalID {
			continue
		}
		if g.Status == planner.StatusCancelled && status != planner.StatusCancelled {
			return nil, apperrors.Invalid("status", "goal %s is cancelled", goalID)
		}
		if err := s.repo.UpdateGoalStatus(ctx, goalID, status); err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{"user_id": userID, "goal_id": goalID, "status": status}).Info("goal status changed")
		g.Status = status
		return g, nil
	}
	return nil, planner.ErrGoalNotFound
}

// CreateRecurringItem validates and stores a recurring definition
func (s *Service) CreateRecurringItem(ctx context.Context, userID string, def recurrence.Definition) (*recurrence.Definition, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRecurringItem(ctx, userID, def); err != nil {
		return nil, err
	}
	return &def, nil
}

// RunPlanner runs the goal planner for one user, serialised per user when
// Redis is configured. Funded goals and shock skips are emailed.
func (s *Service) RunPlanner(ctx context.Context, userID string, req models.PlannerRunRequest) (*planner.Result, error) {
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "cadence": req.Cadence})

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, fmt.Sprintf("planner:%s", userID), plannerLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			log.Warn("planner run already in progress; skipping")
			return &planner.Result{Allocations: []planner.Allocation{}, Skipped: SkipLocked}, nil
		}
		if err != nil {
			log.WithError(err).Warn("error obtaining redis lock; proceeding without redis lock")
		} else {
			defer func() {
				if releaseErr := lock.Release(context.Background()); releaseErr != nil {
					log.WithError(releaseErr).Warn("failed to release redis lock")
				}
			}()
		}
	}

	res, err := s.planner.Run(ctx, planner.Request{
		UserID:      userID,
		Cadence:     planner.Cadence(req.Cadence),
		HorizonDays: req.HorizonDays,
		DryRun:      req.DryRun,
	})
	if err != nil {
		return nil, err
	}
	if !req.DryRun {
		s.notify(ctx, userID, res, log)
	}
	return res, nil
}

func (s *Service) notify(ctx context.Context, userID string, res *planner.Result, log *logrus.Entry) {
	shockSkipped := res.Skipped == planner.SkipShock && res.ShockPolicy != nil
	if s.mail == nil || (len(res.Funded) == 0 && !shockSkipped) {
		return
	}
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("cannot notify user")
		return
	}

	if shockSkipped {
		if err := s.mail.SendPlannerSkipped(user.Email, user.Username, res.ShockPolicy.Reasons); err != nil {
			log.WithError(err).Warn("shock notification failed")
		}
	}
	if len(res.Funded) == 0 {
		return
	}
	goals, err := s.repo.ListGoals(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("cannot load funded goals")
		return
	}
	for _, id := range res.Funded {
		for _, g := range goals {
			if g.ID != id {
				continue
			}
			if err := s.mail.SendGoalFunded(user.Email, user.Username, g.Name, g.TargetAmount); err != nil {
				log.WithError(err).WithField("goal_id", id).Warn("funded notification failed")
			}
		}
	}
}

// PreviewGoal projects one goal over the next periods without writing
func (s *Service) PreviewGoal(ctx context.Context, userID, goalID string, periods int) (*planner.Preview, error) {
	return s.planner.Preview(ctx, userID, goalID, periods, time.Now())
}

// RunScheduledPlanners runs both cadences for every user with an active
// goal. One user's failure does not stop the others.
func (s *Service) RunScheduledPlanners(ctx context.Context) error {
	users, err := s.repo.ActiveUserIDs(ctx)
	if err != nil {
		return err
	}
	var failed int
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := s.RunPlanner(ctx, userID, models.PlannerRunRequest{Cadence: string(planner.Both)})
		if err != nil {
			failed++
			s.log.WithError(err).WithField("user_id", userID).Error("scheduled planner run failed")
			continue
		}
		s.log.WithFields(logrus.Fields{
			"user_id":     userID,
			"allocations": len(res.Allocations),
			"skipped":     res.Skipped,
		}).Info("scheduled planner run finished")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scheduled planner runs failed", failed, len(users))
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/models"
)

// RecordTransaction posts a debit or credit. Debits feed the shock detector.
func (s *Service) RecordTransaction(ctx context.Context, userID string, req models.TransactionRequest) (*models.Transaction, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	t := &models.Transaction{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		OccurredAt:  time.Now().UTC(),
	}
	if req.OccurredAt != nil {
		t.OccurredAt = req.OccurredAt.UTC()
	}
	if err := s.repo.CreateTransaction(ctx, uid, t); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "account_id": t.AccountID, "type": t.Type}).
		Debug("transaction recorded")
	return t, nil
}

// SetBudget creates or replaces a monthly category budget
func (s *Service) SetBudget(ctx context.Context, userID string, req models.BudgetRequest) (*models.Budget, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	b := &models.Budget{UserID: uid, Category: req.Category, MonthlyLimit: req.MonthlyLimit}
	if err := s.repo.UpsertBudget(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/payoff-planner/internal/config"
	"github.com/Dan9191/payoff-planner/internal/models"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/planner"
	"github.com/Dan9191/payoff-planner/internal/repository"
)

// ErrInvalidCredentials is returned by Login for an unknown email or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// KeyRateSource prices variable-rate debts
type KeyRateSource interface {
	GetKeyRate(ctx context.Context) (decimal.Decimal, error)
	VariableAPRBps(ctx context.Context, extraMarginBps int) (int, error)
}

// Notifier emails users about planner outcomes
type Notifier interface {
	SendGoalFunded(to, username, goalName string, target money.Cents) error
	SendPlannerSkipped(to, username string, reasons []string) error
}

// Service handles business logic
type Service struct {
	repo    *repository.Repository
	planner *planner.Planner
	rates   KeyRateSource
	mail    Notifier
	locker  *redislock.Client
	log     *logrus.Logger
	config  *config.Config
}

// NewService initializes a new service. locker may be nil when Redis is not configured.
func NewService(repo *repository.Repository, pl *planner.Planner, rates KeyRateSource, mail Notifier,
	locker *redislock.Client, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:    repo,
		planner: pl,
		rates:   rates,
		mail:    mail,
		locker:  locker,
		log:     log,
		config:  cfg,
	}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	tokenString, err := IssueToken(strconv.FormatInt(user.ID, 10), s.config.JWTSecret, time.Now())
	if err != nil {
		return "", err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// IssueToken signs an HS256 token for the user valid for 24 hours
func IssueToken(userID, secret string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// CreateAccount opens a cash account for the user
func (s *Service) CreateAccount(ctx context.Context, userID, currency string, opening money.Cents) (*models.Account, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	account := &models.Account{
		UserID:   uid,
		Balance:  opening,
		Currency: currency,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account created for user %d: %s", uid, account.Currency)
	return account, nil
}

// KeyRate returns the reference key rate in percent
func (s *Service) KeyRate(ctx context.Context) (decimal.Decimal, error) {
	if s.rates == nil {
		return decimal.Zero, fmt.Errorf("key rate source not configured")
	}
	return s.rates.GetKeyRate(ctx)
}

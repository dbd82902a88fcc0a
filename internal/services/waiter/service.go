package waiter

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/repository"
	"restaurant-system/internal/services/auth"
)

const (
	passwordLength   = 8
	passwordCharset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
	userNameSuffixes = 1000
	userNameAttempts = 10
)

var changedFamilies = []models.MetricFamily{models.FamilyWaiter, models.FamilyRealtime}

// Service manages waiter accounts. Credentials are generated on creation and
// the plaintext password is only ever returned from Create.
type Service struct {
	waiters  repository.WaiterRepository
	notifier events.Notifier
	logger   *logger.Logger

	randomInt func(n int64) (int64, error)
}

func NewService(waiters repository.WaiterRepository, notifier events.Notifier, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Service{waiters: waiters, notifier: notifier, logger: log, randomInt: cryptoInt}
}

func cryptoInt(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// Create registers a waiter with a generated user name and password
func (s *Service) Create(ctx context.Context, req *models.CreateWaiterRequest, requestID string) (*models.WaiterCredentials, error) {
	_, err := s.waiters.FindByIdentificationNumber(ctx, req.IdentificationNumber)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: waiter with identification number %s already exists", models.ErrConflict, req.IdentificationNumber)
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("find waiter: %w", err)
	}

	userName, err := s.uniqueUserName(ctx, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	password, err := s.password()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	waiter := &models.Waiter{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		IdentificationNumber: req.IdentificationNumber,
		PhoneNumber:          req.PhoneNumber,
		UserName:             userName,
		PasswordHash:         hash,
	}
	if err := s.waiters.Create(ctx, waiter); err != nil {
		return nil, fmt.Errorf("create waiter: %w", err)
	}

	s.logger.Info("waiter_created", "Waiter created", requestID, map[string]interface{}{
		"waiter_id": waiter.ID,
		"user_name": waiter.UserName,
	})
	s.emit(ctx, requestID, waiter.ID)

	return &models.WaiterCredentials{Waiter: waiter, UserName: userName, Password: password}, nil
}

// uniqueUserName builds first.last plus a random suffix below 1000, drawing
// again while the name is taken
func (s *Service) uniqueUserName(ctx context.Context, first, last string) (string, error) {
	base := userNamePart(first) + "." + userNamePart(last)
	for i := 0; i < userNameAttempts; i++ {
		suffix, err := s.randomInt(userNameSuffixes)
		if err != nil {
			return "", fmt.Errorf("generate user name: %w", err)
		}
		candidate := fmt.Sprintf("%s%d", base, suffix)

		_, err = s.waiters.FindByUserName(ctx, candidate)
		if errors.Is(err, models.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("find user name: %w", err)
		}
	}
	return "", fmt.Errorf("%w: no free user name for %s", models.ErrConflict, base)
}

func userNamePart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

func (s *Service) password() (string, error) {
	var b strings.Builder
	for i := 0; i < passwordLength; i++ {
		idx, err := s.randomInt(int64(len(passwordCharset)))
		if err != nil {
			return "", err
		}
		b.WriteByte(passwordCharset[idx])
	}
	return b.String(), nil
}

func (s *Service) List(ctx context.Context) ([]models.Waiter, error) {
	return s.waiters.FindAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Waiter, error) {
	return s.waiters.FindByID(ctx, id)
}

// Update changes contact details; credentials are never edited here
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateWaiterRequest, requestID string) (*models.Waiter, error) {
	waiter, err := s.waiters.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		waiter.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		waiter.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		waiter.PhoneNumber = *req.PhoneNumber
	}

	if err := s.waiters.Update(ctx, waiter); err != nil {
		return nil, fmt.Errorf("update waiter: %w", err)
	}

	s.logger.Info("waiter_updated", "Waiter updated", requestID, map[string]interface{}{
		"waiter_id": waiter.ID,
	})
	s.emit(ctx, requestID, waiter.ID)
	return waiter, nil
}

func (s *Service) Delete(ctx context.Context, id, requestID string) error {
	if err := s.waiters.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("waiter_deleted", "Waiter deleted", requestID, map[string]interface{}{
		"waiter_id": id,
	})
	s.emit(ctx, requestID, id)
	return nil
}

func (s *Service) emit(ctx context.Context, requestID, waiterID string) {
	event := models.NewEntityEvent(models.EventWaiterChanged, waiterID, changedFamilies...)
	event.RequestID = requestID
	event.Timestamp = time.Now().UTC()
	s.notifier.Notify(ctx, event)
}

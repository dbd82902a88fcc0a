package table

import (
	"context"
	"fmt"
	"time"

	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/repository"
)

var changedFamilies = []models.MetricFamily{models.FamilyTables, models.FamilyRealtime}

// Service manages dining tables. Occupancy normally follows the order
// lifecycle; UpdateStatus exists for manual correction.
type Service struct {
	tables   repository.TableRepository
	notifier events.Notifier
	logger   *logger.Logger
}

func NewService(tables repository.TableRepository, notifier events.Notifier, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Service{tables: tables, notifier: notifier, logger: log}
}

func (s *Service) Create(ctx context.Context, req *models.CreateTableRequest, requestID string) (*models.Table, error) {
	if req.Number < 1 {
		return nil, fmt.Errorf("%w: table number must be at least 1", models.ErrInvalidInput)
	}

	exists, err := s.tables.ExistsByNumber(ctx, req.Number)
	if err != nil {
		return nil, fmt.Errorf("check table number: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: table number %d already exists", models.ErrConflict, req.Number)
	}

	table := &models.Table{Number: req.Number, Status: models.TableFree, IsActive: true}
	if err := s.tables.Create(ctx, table); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	s.logger.Info("table_created", "Table created", requestID, map[string]interface{}{
		"table_id": table.ID,
		"number":   table.Number,
	})
	s.emit(ctx, requestID, table.ID)
	return table, nil
}

func (s *Service) List(ctx context.Context) ([]models.Table, error) {
	return s.tables.FindAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Table, error) {
	return s.tables.FindByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number int) (*models.Table, error) {
	return s.tables.FindByNumber(ctx, number)
}

func (s *Service) ListByStatus(ctx context.Context, status models.TableStatus) ([]models.Table, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be one of: free, occupied", models.ErrInvalidInput)
	}
	return s.tables.FindByStatus(ctx, status)
}

func (s *Service) ListAvailable(ctx context.Context) ([]models.Table, error) {
	return s.tables.FindByStatus(ctx, models.TableFree)
}

func (s *Service) ListOccupied(ctx context.Context) ([]models.Table, error) {
	return s.tables.FindByStatus(ctx, models.TableOccupied)
}

// Update applies the non-nil fields of req
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateTableRequest, requestID string) (*models.Table, error) {
	table, err := s.tables.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Number != nil && *req.Number != table.Number {
		if *req.Number < 1 {
			return nil, fmt.Errorf("%w: table number must be at least 1", models.ErrInvalidInput)
		}
		exists, err := s.tables.ExistsByNumber(ctx, *req.Number)
		if err != nil {
			return nil, fmt.Errorf("check table number: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: table number %d already exists", models.ErrConflict, *req.Number)
		}
		table.Number = *req.Number
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: status must be one of: free, occupied", models.ErrInvalidInput)
		}
		table.Status = *req.Status
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}

	if err := s.tables.Update(ctx, table); err != nil {
		return nil, fmt.Errorf("update table: %w", err)
	}

	s.logger.Info("table_updated", "Table updated", requestID, map[string]interface{}{
		"table_id": table.ID,
		"number":   table.Number,
		"status":   table.Status,
	})
	s.emit(ctx, requestID, table.ID)
	return table, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status models.TableStatus, requestID string) (*models.Table, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be one of: free, occupied", models.ErrInvalidInput)
	}
	table, err := s.tables.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("table_status_changed", "Table status changed", requestID, map[string]interface{}{
		"table_id": table.ID,
		"status":   table.Status,
	})
	s.emit(ctx, requestID, table.ID)
	return table, nil
}

// Delete removes a table that is not serving an order
func (s *Service) Delete(ctx context.Context, id, requestID string) error {
	table, err := s.tables.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if table.Status != models.TableFree {
		return fmt.Errorf("%w: table %d is occupied", models.ErrConflict, table.Number)
	}
	if err := s.tables.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete table: %w", err)
	}

	s.logger.Info("table_deleted", "Table deleted", requestID, map[string]interface{}{
		"table_id": id,
		"number":   table.Number,
	})
	s.emit(ctx, requestID, id)
	return nil
}

func (s *Service) emit(ctx context.Context, requestID, tableID string) {
	event := models.NewEntityEvent(models.EventTableChanged, tableID, changedFamilies...)
	event.RequestID = requestID
	event.Timestamp = time.Now().UTC()
	s.notifier.Notify(ctx, event)
}

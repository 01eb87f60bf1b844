package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

type TicketRepository interface {
	// CreateAll persists every zone ticket of one order; the caller wraps it
	// in a transaction so partial kitchen visibility cannot happen.
	CreateAll(ctx context.Context, tx *gorm.DB, tickets []*model.PrintTicket) error
	FindByID(ctx context.Context, ticketID string) (*model.PrintTicket, error)
	ByOrder(ctx context.Context, orderID string) ([]*model.PrintTicket, error)
	Pending(ctx context.Context) ([]*model.PrintTicket, error)
	// MarkPrinted transitions PENDING -> PRINTED. Re-marking an already
	// printed ticket affects zero rows and is not an error.
	MarkPrinted(ctx context.Context, tx *gorm.DB, ticketID string) error
	CountPending(ctx context.Context, tx *gorm.DB, orderID string) (int64, error)
}

type ticketRepoImpl struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepoImpl{db: db}
}

func (r *ticketRepoImpl) CreateAll(ctx context.Context, tx *gorm.DB, tickets []*model.PrintTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Omit(clause.Associations).Create(&tickets).Error
}

func (r *ticketRepoImpl) FindByID(ctx context.Context, ticketID string) (*model.PrintTicket, error) {
	var ticket model.PrintTicket
	err := r.db.WithContext(ctx).
		Preload("PrinterZone").
		Where("id = ?", ticketID).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepoImpl) ByOrder(ctx context.Context, orderID string) ([]*model.PrintTicket, error) {
	var tickets []*model.PrintTicket
	err := r.db.WithContext(ctx).
		Preload("PrinterZone").
		Where("order_id = ?", orderID).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepoImpl) Pending(ctx context.Context) ([]*model.PrintTicket, error) {
	var tickets []*model.PrintTicket
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("PrinterZone").
		Where("status = ?", model.PrintPending).
		Order("created_at").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepoImpl) MarkPrinted(ctx context.Context, tx *gorm.DB, ticketID string) error {
	now := time.Now()
	return tx.WithContext(ctx).Model(&model.PrintTicket{}).
		Where("id = ? AND status = ?", ticketID, model.PrintPending).
		Updates(map[string]interface{}{
			"status":     model.PrintPrinted,
			"printed_at": now,
			"updated_at": now,
		}).Error
}

func (r *ticketRepoImpl) CountPending(ctx context.Context, tx *gorm.DB, orderID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.PrintTicket{}).
		Where("order_id = ? AND status = ?", orderID, model.PrintPending).
		Count(&count).Error
	return count, err
}

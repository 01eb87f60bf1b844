package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
)

type ContactRepository interface {
	ByPhone(ctx context.Context, tenantID, phoneNumber string) (*model.Contact, error)
	// ClearFirstBuy revokes the one-shot promotion inside the caller's
	// transaction so a crash cannot leave it claimable twice.
	ClearFirstBuy(ctx context.Context, tx *gorm.DB, contactID string) error
}

type contactRepoImpl struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepoImpl{db: db}
}

func (r *contactRepoImpl) ByPhone(ctx context.Context, tenantID, phoneNumber string) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone_number = ?", tenantID, phoneNumber).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepoImpl) ClearFirstBuy(ctx context.Context, tx *gorm.DB, contactID string) error {
	return tx.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ?", contactID).
		Updates(map[string]interface{}{"first_buy": false, "updated_at": time.Now()}).Error
}

type SessionRepository interface {
	Close(ctx context.Context, tx *gorm.DB, sessionID string) error
}

type sessionRepoImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepoImpl{db: db}
}

// Close marks the chat session inactive and stamps the end time. Closing an
// unknown or already closed session is a no-op.
func (r *sessionRepoImpl) Close(ctx context.Context, tx *gorm.DB, sessionID string) error {
	now := time.Now()
	return tx.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]interface{}{"is_active": false, "end_time": now}).Error
}

type VIPRepository interface {
	HasPermission(ctx context.Context, tenantID, phoneNumber string, permission model.VIPPermission) (bool, error)
}

type vipRepoImpl struct {
	db *gorm.DB
}

func NewVIPRepository(db *gorm.DB) VIPRepository {
	return &vipRepoImpl{db: db}
}

func (r *vipRepoImpl) HasPermission(ctx context.Context, tenantID, phoneNumber string, permission model.VIPPermission) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.VIPAccess{}).
		Where("tenant_id = ? AND phone_number = ? AND permission = ?", tenantID, phoneNumber, permission).
		Count(&count).Error
	return count > 0, err
}

type TenantRepository interface {
	ByID(ctx context.Context, tenantID string) (*model.Tenant, error)
}

type tenantRepoImpl struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepoImpl{db: db}
}

func (r *tenantRepoImpl) ByID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", tenantID).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

type NotificationRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, n *model.GatewayNotification) error
}

type notificationRepoImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepoImpl{db: db}
}

func (r *notificationRepoImpl) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.GatewayNotification{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *notificationRepoImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, n *model.GatewayNotification) error {
	n.ProcessedAt = time.Now()
	err := tx.WithContext(ctx).Create(n).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

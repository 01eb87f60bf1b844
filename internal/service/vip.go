package service

import (
	"context"

	"github.com/electrosolucion2025/Whats2Want/internal/model"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
)

// VIPPolicy decides whether a customer settles without touching the
// payment gateway. Consulted by the materializer before any payment row
// is created.
type VIPPolicy interface {
	FeeFreeSettlement(ctx context.Context, tenantID, phoneNumber string) (bool, error)
}

type vipPolicyImpl struct {
	vipRepo repository.VIPRepository
}

func NewVIPPolicy(vipRepo repository.VIPRepository) VIPPolicy {
	return &vipPolicyImpl{vipRepo: vipRepo}
}

func (p *vipPolicyImpl) FeeFreeSettlement(ctx context.Context, tenantID, phoneNumber string) (bool, error) {
	return p.vipRepo.HasPermission(ctx, tenantID, phoneNumber, model.VIPNoPayment)
}

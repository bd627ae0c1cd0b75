// Package kyc is the narrow identity collaborator consumed before
// wallet creation. Document upload and review live outside this service.
package kyc

import (
	"context"
	"fmt"

	"topvend/internal/models"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// IsWalletCreationAllowed reports whether the user has passed KYC.
func (s *Service) IsWalletCreationAllowed(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	return user.KYCStatus == models.KYCStatusApproved, nil
}

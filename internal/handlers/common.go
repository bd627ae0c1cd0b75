package handlers

import (
	"errors"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// extractUserClaims is a helper to pull the validated claims off the
// request context.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

// respondError maps domain errors to HTTP statuses. Validation-class
// "no" decisions are 4xx; provider unavailability is 502.
func respondError(c *fiber.Ctx, err error) error {
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) {
		return utils.InternalError(c, "something went wrong")
	}

	status := fiber.StatusBadRequest
	switch derr {
	case apperrors.ErrWalletNotFound, apperrors.ErrStockNotFound:
		status = fiber.StatusNotFound
	case apperrors.ErrDuplicateReference, apperrors.ErrAlreadyProcessed:
		status = fiber.StatusConflict
	case apperrors.ErrInsufficientFunds, apperrors.ErrInsufficientStock,
		apperrors.ErrWalletFrozen, apperrors.ErrWalletInactive,
		apperrors.ErrDailyLimitExceeded:
		status = fiber.StatusUnprocessableEntity
	case apperrors.ErrProviderUnavailable:
		status = fiber.StatusBadGateway
	case apperrors.ErrProviderRejected:
		status = fiber.StatusUnprocessableEntity
	case apperrors.ErrKYCRequired:
		status = fiber.StatusForbidden
	}
	return utils.ErrorWithCode(c, status, derr.Code, derr.Message)
}

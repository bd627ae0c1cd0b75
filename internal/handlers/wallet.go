package handlers

import (
	"topvend/internal/services/wallet"
	"topvend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.CreateWallet(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Created(c, fiber.Map{"wallet": w})
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"wallet": w})
}

func (h *WalletHandler) GetTransactionHistory(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	history, err := h.walletService.GetTransactionHistory(c.Context(), w.ID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "failed to get transaction history")
	}
	return utils.Success(c, fiber.Map{
		"transactions": history,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *WalletHandler) FreezeWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		return utils.BadRequest(c, "reason is required")
	}

	if err := h.walletService.Freeze(c.Context(), uint(walletID), input.Reason, claims.UserID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "wallet frozen"})
}

func (h *WalletHandler) UnfreezeWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	if err := h.walletService.Unfreeze(c.Context(), uint(walletID), claims.UserID); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "wallet unfrozen"})
}

package handlers

import (
	"topvend/internal/services/settlement"
	"topvend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AdjustmentHandler struct {
	orchestrator *settlement.Orchestrator
}

func NewAdjustmentHandler(orchestrator *settlement.Orchestrator) *AdjustmentHandler {
	return &AdjustmentHandler{orchestrator: orchestrator}
}

func (h *AdjustmentHandler) Create(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		WalletID  uint            `json:"wallet_id"`
		Direction string          `json:"direction"`
		Amount    decimal.Decimal `json:"amount"`
		Reason    string          `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		return utils.BadRequest(c, "reason is required")
	}

	adj, otp, err := h.orchestrator.AdjustBalance(c.Context(), settlement.AdjustmentRequest{
		WalletID:  input.WalletID,
		Direction: input.Direction,
		Amount:    input.Amount,
		Reason:    input.Reason,
		AdminID:   claims.UserID,
	})
	if err != nil {
		return respondError(c, err)
	}

	// The OTP is returned once to the initiating admin; delivery to a
	// second approver happens out of band.
	return utils.Created(c, fiber.Map{
		"adjustment": adj,
		"otp":        otp,
	})
}

func (h *AdjustmentHandler) Verify(c *fiber.Ctx) error {
	if _, err := extractUserClaims(c); err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	adjustmentID, err := c.ParamsInt("id")
	if err != nil || adjustmentID <= 0 {
		return utils.BadRequest(c, "invalid adjustment id")
	}

	var input struct {
		Otp string `json:"otp"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	adj, err := h.orchestrator.VerifyAdjustment(c.Context(), uint(adjustmentID), input.Otp)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"adjustment": adj})
}

package handlers

import (
	"topvend/internal/services/settlement"
	"topvend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type FundingHandler struct {
	orchestrator *settlement.Orchestrator
}

func NewFundingHandler(orchestrator *settlement.Orchestrator) *FundingHandler {
	return &FundingHandler{orchestrator: orchestrator}
}

// RequestFunding opens a pending bank-transfer claim and returns the
// settlement account the customer should pay into.
func (h *FundingHandler) RequestFunding(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	request, account, err := h.orchestrator.CreateFundingRequest(c.Context(), claims.UserID, input.Amount)
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{"funding_request": request}
	if account != nil {
		resp["pay_to"] = fiber.Map{
			"bank_name":      account.BankName,
			"account_name":   account.AccountName,
			"account_number": account.AccountNumber,
		}
	}
	return utils.Created(c, resp)
}

// ConfirmFunding is the landing point for bank webhook matches and admin
// confirmations. Idempotent: re-confirming returns a conflict.
func (h *FundingHandler) ConfirmFunding(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return utils.BadRequest(c, "invalid funding request id")
	}

	var input struct {
		AmountPaid decimal.Decimal `json:"amount_paid"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	entry, err := h.orchestrator.ConfirmFunding(c.Context(), uint(requestID), input.AmountPaid, claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": entry})
}

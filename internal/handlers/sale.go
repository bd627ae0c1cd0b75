package handlers

import (
	"topvend/internal/services/settlement"
	"topvend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SaleHandler struct {
	orchestrator *settlement.Orchestrator
}

func NewSaleHandler(orchestrator *settlement.Orchestrator) *SaleHandler {
	return &SaleHandler{orchestrator: orchestrator}
}

func (h *SaleHandler) Sell(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Network     string          `json:"network"`
		ProductType string          `json:"product_type"`
		Phone       string          `json:"phone"`
		Amount      decimal.Decimal `json:"amount"`
		PlanCode    string          `json:"plan_code"`
		Reference   string          `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Network == "" || input.ProductType == "" || input.Phone == "" {
		return utils.BadRequest(c, "network, product_type and phone are required")
	}

	sale, err := h.orchestrator.SellProduct(c.Context(), settlement.SellRequest{
		UserID:      claims.UserID,
		Network:     input.Network,
		ProductType: input.ProductType,
		Phone:       input.Phone,
		Amount:      input.Amount,
		PlanCode:    input.PlanCode,
		Reference:   input.Reference,
	})
	if err != nil {
		// A failed sale still produced a record with the failure reason.
		if sale != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"sale":  sale,
				"error": sale.FailureReason,
			})
		}
		return respondError(c, err)
	}
	return utils.Created(c, fiber.Map{"sale": sale})
}

func (h *SaleHandler) Refund(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	saleID, err := c.ParamsInt("id")
	if err != nil || saleID <= 0 {
		return utils.BadRequest(c, "invalid sale id")
	}

	sale, err := h.orchestrator.RefundSale(c.Context(), uint(saleID), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"sale": sale})
}

package handlers

import (
	"topvend/internal/services/settlement"
	"topvend/internal/services/stock"
	"topvend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StockHandler struct {
	orchestrator *settlement.Orchestrator
	stockEngine  stock.Engine
}

func NewStockHandler(orchestrator *settlement.Orchestrator, stockEngine stock.Engine) *StockHandler {
	return &StockHandler{
		orchestrator: orchestrator,
		stockEngine:  stockEngine,
	}
}

func (h *StockHandler) BuyStock(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Network         string          `json:"network"`
		ProductType     string          `json:"product_type"`
		Amount          decimal.Decimal `json:"amount"`
		DiscountPercent decimal.Decimal `json:"discount_percent"`
		Reference       string          `json:"reference"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Network == "" || input.ProductType == "" {
		return utils.BadRequest(c, "network and product_type are required")
	}

	purchase, err := h.orchestrator.BuyStock(c.Context(), stock.PurchaseRequest{
		UserID:          claims.UserID,
		Network:         input.Network,
		ProductType:     input.ProductType,
		Amount:          input.Amount,
		DiscountPercent: input.DiscountPercent,
		Reference:       input.Reference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return utils.Created(c, fiber.Map{"purchase": purchase})
}

func (h *StockHandler) ListPools(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	pools, err := h.stockEngine.ListPools(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to list stock pools")
	}
	return utils.Success(c, fiber.Map{"pools": pools})
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-qr/middlewares"
	"github.com/yeremiapane/restaurant-qr/models"
	"github.com/yeremiapane/restaurant-qr/utils"
)

type OrderController struct {
	DB *gorm.DB
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db}
}

// CreateOrder -> buat order untuk meja dari sesi QR
// table_id always comes from the session, never from the body.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	table, ok := middlewares.TableFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no table session"))
		return
	}

	type ItemReq struct {
		MenuID   uint   `json:"menu_id" binding:"required"`
		Quantity int    `json:"quantity" binding:"required,min=1"`
		Notes    string `json:"notes"`
	}
	var body struct {
		Items []ItemReq `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order := models.Order{
		TableID: table.TableID,
		Status:  "pending",
	}
	for _, item := range body.Items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			MenuID:   item.MenuID,
			Quantity: item.Quantity,
			Notes:    item.Notes,
			Status:   "pending",
		})
	}

	// Order dan item dibuat dalam satu transaksi
	if err := oc.DB.WithContext(c.Request.Context()).Create(&order).Error; err != nil {
		utils.ErrorLogger.WithError(err).WithField("table_id", table.TableID).Error("create order")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to create order"))
		return
	}

	utils.InfoLogger.Printf("Order %d created for table %s", order.ID, table.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrdersByTable -> orders of the session's own table, behind EnsureSameTable
func (oc *OrderController) GetOrdersByTable(c *gin.Context) {
	table, ok := middlewares.TableFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no table session"))
		return
	}

	var orders []models.Order
	if err := oc.DB.WithContext(c.Request.Context()).
		Preload("OrderItems").
		Where("table_id = ?", table.TableID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		utils.ErrorLogger.WithError(err).WithField("table_id", table.TableID).Error("list orders")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to list orders"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

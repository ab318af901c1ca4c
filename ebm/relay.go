package ebm

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"bitbucket.org/medilink/pharmacy_backend/models"
	"bitbucket.org/medilink/pharmacy_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindInput binds and validates the request body, writing the error response
// itself. Returns false when the request was rejected.
func bindInput(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

// loadMapperContext assembles the company, branch and acting user for a
// document mapping. Branch and user come from the request context when set.
func loadMapperContext(ctx context.Context, companyId string) (MapperContext, error) {
	db := config.GetDB()

	company, err := models.GetCompany(ctx, db, companyId)
	if err != nil {
		return MapperContext{}, err
	}
	mc := MapperContext{Company: company}

	if branchId, ok := utils.GetBranchIdFromContext(ctx); ok && branchId > 0 {
		if err := utils.ValidateResourceId[models.Branch](ctx, companyId, branchId); err != nil {
			return MapperContext{}, err
		}
		branch, err := models.GetBranch(ctx, db, companyId, branchId)
		if err != nil {
			return MapperContext{}, err
		}
		mc.Branch = branch
	}

	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId > 0 {
		user, err := models.GetUser(ctx, db, companyId, userId)
		if err != nil {
			return MapperContext{}, err
		}
		if user != nil {
			mc.User = *user
		}
	}
	return mc, nil
}

// relayDocument runs bind -> map -> send for one document endpoint and
// relays the authority envelope to the caller as-is.
func relayDocument[T any](gateway Gateway, path string, build func(MapperContext, T) any) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var input T
		if !bindInput(c, &input) {
			return
		}

		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)
		mc, err := loadMapperContext(ctx, companyId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "branch not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := gateway.Send(ctx, path, build(mc, input))
		c.JSON(http.StatusOK, resp)
	}
}

// RegisterItemHandler registers one item master record with the authority.
func RegisterItemHandler(gateway Gateway) gin.HandlerFunc {
	return relayDocument(gateway, EndpointSaveItems, func(mc MapperContext, input ItemInput) any {
		return BuildItemPayload(mc, input)
	})
}

// RegisterProductHandler registers a stored product by id, mapping the
// product record onto the item payload.
func RegisterProductHandler(gateway Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		productId, err := strconv.Atoi(c.Param("id"))
		if err != nil || productId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)

		product, err := models.GetProduct(ctx, config.GetDB(), companyId, productId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if product == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		mc, err := loadMapperContext(ctx, companyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := gateway.Send(ctx, EndpointSaveItems, BuildItemPayload(mc, itemInputFromProduct(product)))
		c.JSON(http.StatusOK, resp)
	}
}

func itemInputFromProduct(product *models.Product) ItemInput {
	input := ItemInput{
		ItemId:      strconv.Itoa(product.ID),
		Name:        product.Name,
		Code:        product.Code,
		TaxTypeCode: product.TaxTypeCode,
		UnitCode:    product.UnitCode,
		PackageCode: product.PackageCode,
	}
	if product.Barcode != "" {
		barcode := product.Barcode
		input.Barcode = &barcode
	}
	if product.InsurancePrice != nil {
		price := *product.InsurancePrice
		input.InsurancePrice = &price
	}
	return input
}

// SaveStockHandler reports one stock receipt to the authority.
func SaveStockHandler(gateway Gateway) gin.HandlerFunc {
	return relayDocument(gateway, EndpointSaveStock, func(mc MapperContext, input StockReceiptInput) any {
		return BuildStockPayload(mc, input)
	})
}

// SavePurchaseHandler registers one purchase order with the authority.
func SavePurchaseHandler(gateway Gateway) gin.HandlerFunc {
	return relayDocument(gateway, EndpointSavePurchases, func(mc MapperContext, input PurchaseOrderInput) any {
		return BuildPurchasePayload(mc, input)
	})
}

// SaveSaleHandler fiscalizes one completed sale.
func SaveSaleHandler(gateway Gateway) gin.HandlerFunc {
	return relayDocument(gateway, EndpointSaveSales, func(mc MapperContext, input SaleInput) any {
		return BuildSalesPayload(mc, input)
	})
}

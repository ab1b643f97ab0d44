package cartControllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.RentalRate{},
		&models.Cart{}, &models.CartItem{},
	))
	require.NoError(t, db.Create(&models.User{ID: "u1", Email: "u1@example.com"}).Error)
	return db
}

func newRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "u1") })
	r.POST("/cart", AddCartItem(db))
	r.PATCH("/cart", UpdateCartItemQuantity(db))
	r.DELETE("/cart/:product_id", DeleteCartItem(db))
	r.DELETE("/cart", ClearUserCart(db))
	r.PUT("/cart", ReplaceCart(db))
	r.GET("/cart", GetUserCart(db))
	return r
}

func seedProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	p := &models.Product{
		Title: "Recliner",
		Size:  models.SizeMedium,
		Stock: 5,
		RentalRates: []models.RentalRate{
			{Months: 3, Rate: 150000},
			{Months: 6, Rate: 270000},
		},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cartItems(t *testing.T, db *gorm.DB, userID string) []models.CartItem {
	t.Helper()
	var cart models.Cart
	err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return cart.Items
}

func TestAddCartItemMergesDuplicate(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	w := do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items := cartItems(t, db, "u1")
	require.Len(t, items, 1, "same product must stay a single line")
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "Recliner", items[0].Title)
}

func TestAddCartItemRejectsTermChange(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	w := do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Same product, different term: quantities never merge across terms
	w = do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 6, "quantity": 2})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "different rental term")

	items := cartItems(t, db, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].RentMonths, "existing line untouched")
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddCartItemRejectsUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(db)

	w := do(r, http.MethodPost, "/cart", gin.H{"product_id": 999, "rent_months": 3, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, cartItems(t, db, "u1"))
}

func TestAddCartItemRejectsUnconfiguredTerm(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	w := do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 9, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, cartItems(t, db, "u1"))
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 2})

	w := do(r, http.MethodPatch, "/cart", gin.H{"product_id": p.ID, "quantity": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, cartItems(t, db, "u1"))
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 2})

	w := do(r, http.MethodPatch, "/cart", gin.H{"product_id": p.ID, "quantity": 5})
	require.Equal(t, http.StatusOK, w.Code)

	items := cartItems(t, db, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity, "set, not added")
}

func TestDeleteAbsentItemIsNoOp(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(db)

	w := do(r, http.MethodDelete, "/cart/42", nil)
	assert.Equal(t, http.StatusOK, w.Code, "removing a missing line is not an error")
}

func TestClearCartIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 1})

	w := do(r, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cartItems(t, db, "u1"))

	// Clearing again still succeeds
	w = do(r, http.MethodDelete, "/cart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReplaceCartOverwrites(t *testing.T) {
	db := newTestDB(t)
	p1 := seedProduct(t, db)
	p2 := &models.Product{
		Title:       "Study Desk",
		Size:        models.SizeLarge,
		Stock:       2,
		RentalRates: []models.RentalRate{{Months: 6, Rate: 200000}},
	}
	require.NoError(t, db.Create(p2).Error)
	r := newRouter(db)

	do(r, http.MethodPost, "/cart", gin.H{"product_id": p1.ID, "rent_months": 3, "quantity": 1})

	w := do(r, http.MethodPut, "/cart", gin.H{"items": []gin.H{
		{"product_id": p2.ID, "rent_months": 6, "quantity": 2},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items := cartItems(t, db, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, p2.ID, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestGetUserCartReturnsEmptyShape(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(db)

	w := do(r, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cart models.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestClearCartForUserUsableInTransaction(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db)
	r := newRouter(db)

	do(r, http.MethodPost, "/cart", gin.H{"product_id": p.ID, "rent_months": 3, "quantity": 1})

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ClearCartForUser(tx, "u1")
	}))
	assert.Empty(t, cartItems(t, db, "u1"))

	// Missing cart is fine
	require.NoError(t, ClearCartForUser(db, "nobody"))
}

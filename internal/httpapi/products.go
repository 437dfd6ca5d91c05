package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/pkg/cache"
)

// productListKey derives the cache key from every query-affecting
// parameter. Optional filters that were absent are omitted so the key is
// deterministic across equivalent requests.
func productListKey(f store.ProductFilter) *cache.Key {
	k := cache.NewKey("products", "getAll")
	if f.ProductTypeID != nil {
		k.WithInt64("productTypeId", *f.ProductTypeID)
	}
	k.WithInt("limit", f.Limit).
		WithInt("page", f.Page).
		WithOpt("search", f.Search, f.HasSearch).
		WithOpt("sortOrder", f.SortOrder, f.SortOrder != "")
	return k
}

func (s *Server) handleProductList(c *gin.Context) {
	var f store.ProductFilter
	if v := c.Query("productTypeId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "productTypeId must be an integer")
			return
		}
		f.ProductTypeID = &id
	}
	f.Page = intQuery(c, "page", 1)
	f.Limit = intQuery(c, "limit", store.DefaultProductLimit)
	f.Search, f.HasSearch = c.GetQuery("search")
	f.SortOrder = c.Query("sortOrder")
	f.Normalize()

	key := productListKey(f)

	var cached store.ProductPage
	if s.cache.Lookup(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	page, err := s.products.List(c.Request.Context(), f)
	if err != nil {
		s.logger.Error().Err(err).Msg("Product listing failed")
		internalError(c)
		return
	}

	s.cache.Store(c.Request.Context(), key, listTTL, page)
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleProductGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	key := cache.NewKey("products", "getById").WithInt64("id", id)

	var cached store.Product
	if s.cache.Lookup(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	product, err := s.products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("Product lookup failed")
		internalError(c)
		return
	}
	if product == nil {
		notFound(c, "Product not found")
		return
	}

	s.cache.Store(c.Request.Context(), key, productDetailTTL, product)
	c.JSON(http.StatusOK, product)
}

type productInput struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" binding:"required"`
	InStock       *bool   `json:"inStock"`
	Img           string  `json:"img"`
	ProductTypeID int64   `json:"productTypeId"`
}

func (s *Server) handleProductCreate(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	product := &store.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		InStock:       in.InStock == nil || *in.InStock,
		Img:           in.Img,
		ProductTypeID: in.ProductTypeID,
	}
	if err := s.products.Create(c.Request.Context(), product); err != nil {
		s.logger.Error().Err(err).Msg("Product creation failed")
		internalError(c)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "products")
	c.JSON(http.StatusCreated, product)
}

func (s *Server) handleProductUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	existing, err := s.products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("Product lookup failed")
		internalError(c)
		return
	}
	if existing == nil {
		notFound(c, "Product not found")
		return
	}

	existing.Name = in.Name
	existing.Description = in.Description
	existing.Price = in.Price
	if in.InStock != nil {
		existing.InStock = *in.InStock
	}
	if in.Img != "" {
		existing.Img = in.Img
	}
	existing.ProductTypeID = in.ProductTypeID

	if err := s.products.Update(c.Request.Context(), existing); err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("Product update failed")
		internalError(c)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "products")
	c.JSON(http.StatusOK, gin.H{"message": "Product updated"})
}

func (s *Server) handleProductDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.products.Delete(c.Request.Context(), id); err != nil {
		if isNoRows(err) {
			notFound(c, "Product not found")
			return
		}
		s.logger.Error().Err(err).Int64("product_id", id).Msg("Product deletion failed")
		internalError(c)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "products")
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

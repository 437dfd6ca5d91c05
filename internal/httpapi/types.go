package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/pkg/cache"
)

func typeListKey(f store.TypeFilter) *cache.Key {
	return cache.NewKey("types", "getAll").
		WithOpt("limit", strconv.Itoa(f.Limit), f.Limit > 0).
		WithOpt("page", strconv.Itoa(f.Page), f.Limit > 0).
		WithOpt("search", f.Search, f.HasSearch)
}

func (s *Server) handleTypeList(c *gin.Context) {
	var f store.TypeFilter
	f.Limit = intQuery(c, "limit", 0)
	f.Page = intQuery(c, "page", 1)
	f.Search, f.HasSearch = c.GetQuery("search")

	key := typeListKey(f)

	var cached store.TypePage
	if s.cache.Lookup(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	page, err := s.types.List(c.Request.Context(), f)
	if err != nil {
		s.logger.Error().Err(err).Msg("Type listing failed")
		internalError(c)
		return
	}

	s.cache.Store(c.Request.Context(), key, listTTL, page)
	c.JSON(http.StatusOK, page)
}

type typeInput struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleTypeCreate(c *gin.Context) {
	var in typeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	typ := &store.ProductType{Name: in.Name}
	if err := s.types.Create(c.Request.Context(), typ); err != nil {
		s.logger.Error().Err(err).Msg("Type creation failed")
		internalError(c)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "types")
	c.JSON(http.StatusCreated, typ)
}

func (s *Server) handleTypeUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in typeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.types.Update(c.Request.Context(), &store.ProductType{ID: id, Name: in.Name}); err != nil {
		if isNoRows(err) {
			notFound(c, "Product type not found")
			return
		}
		s.logger.Error().Err(err).Int64("type_id", id).Msg("Type update failed")
		internalError(c)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "types")
	c.JSON(http.StatusOK, gin.H{"message": "Product type updated"})
}

func (s *Server) handleTypeDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.types.Delete(c.Request.Context(), id); err != nil {
		if isNoRows(err) {
			notFound(c, "Product type not found")
			return
		}
		s.logger.Error().Err(err).Int64("type_id", id).Msg("Type deletion failed")
		internalError(c)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "types")
	c.JSON(http.StatusOK, gin.H{"message": "Product type deleted"})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dishdomain "github.com/smallbiznis/dormmenu/internal/dish/domain"
)

type listDishesQuery struct {
	Query  string `form:"q"`
	SortBy string `form:"sort"`
	Limit  int    `form:"limit"`
}

func (s *Server) ListDishes(c *gin.Context) {
	var query listDishesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.dishSvc.List(c.Request.Context(), dishdomain.ListRequest{
		Query:  query.Query,
		SortBy: query.SortBy,
		Limit:  query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// DishStats accepts names either repeated (?names=a&names=b) or comma separated.
func (s *Server) DishStats(c *gin.Context) {
	names := splitNames(c.QueryArray("names"))

	stats, err := s.voteSvc.BulkStats(c.Request.Context(), names)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) GetDish(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		AbortWithError(c, newValidationError("name", "invalid_name", "name is required"))
		return
	}
	c.Set("dish_name", name)

	dish, err := s.dishSvc.FindByName(c.Request.Context(), name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dish})
}

type recountDishRequest struct {
	Name string `json:"name"`
}

func (s *Server) RecountDish(c *gin.Context) {
	var req recountDishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set("dish_name", strings.TrimSpace(req.Name))

	result, err := s.voteSvc.Recount(c.Request.Context(), req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func splitNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

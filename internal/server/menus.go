package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	menudomain "github.com/smallbiznis/dormmenu/internal/menu/domain"
)

const pdfContentType = "application/pdf"

// ListPublishedMenus is the public calendar view. Drafts are never returned here.
func (s *Server) ListPublishedMenus(c *gin.Context) {
	var req menudomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Status = menudomain.StatusPublished

	items, err := s.menuSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) DailyMenu(c *gin.Context) {
	daily, err := s.menuSvc.Daily(c.Request.Context(), c.Query("city"), c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": daily})
}

func (s *Server) MonthlyMenuPDF(c *gin.Context) {
	var req menudomain.MonthRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.menuSvc.MonthlyPDF(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("menu-%s-%04d-%02d.pdf", strings.ToLower(strings.TrimSpace(req.City)), req.Year, req.Month)
	c.DataFromReader(http.StatusOK, -1, pdfContentType, doc, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", filename),
	})
}

func (s *Server) ListMenus(c *gin.Context) {
	var req menudomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.menuSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateMenu(c *gin.Context) {
	var req menudomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if id, ok := identityFrom(c); ok {
		req.AuthorID = id.UserID
	}

	resp, err := s.menuSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetMenu(c *gin.Context) {
	resp, err := s.menuSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMenu(c *gin.Context) {
	var req menudomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	resp, err := s.menuSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteMenu(c *gin.Context) {
	if err := s.menuSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) PublishMenu(c *gin.Context) {
	resp, err := s.menuSvc.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type publishMenusRequest struct {
	IDs []string `json:"ids"`
}

// PublishMenus publishes whichever of the given drafts exist; the rest are silently skipped.
func (s *Server) PublishMenus(c *gin.Context) {
	var req publishMenusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ids, err := s.menuSvc.PublishBulk(c.Request.Context(), req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"count": len(ids), "ids": ids}})
}

func (s *Server) PublishMonth(c *gin.Context) {
	var req menudomain.MonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.menuSvc.PublishMonth(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

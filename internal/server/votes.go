package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	votedomain "github.com/smallbiznis/dormmenu/internal/vote/domain"
)

type voteRequest struct {
	Dish string `json:"dish"`
}

func (s *Server) Like(c *gin.Context) {
	s.vote(c, votedomain.VoteLike)
}

func (s *Server) Dislike(c *gin.Context) {
	s.vote(c, votedomain.VoteDislike)
}

func (s *Server) vote(c *gin.Context, requested votedomain.VoteType) {
	id, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set("dish_name", strings.TrimSpace(req.Dish))

	var (
		result *votedomain.Result
		err    error
	)
	switch requested {
	case votedomain.VoteLike:
		result, err = s.voteSvc.ApplyLike(c.Request.Context(), id.UserID, req.Dish)
	default:
		result, err = s.voteSvc.ApplyDislike(c.Request.Context(), id.UserID, req.Dish)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetUserVote(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	dish := strings.TrimSpace(c.Query("dish"))
	c.Set("dish_name", dish)

	vote, err := s.voteSvc.GetUserVote(c.Request.Context(), id.UserID, dish)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"dish": dish, "user_vote": vote}})
}

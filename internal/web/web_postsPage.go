package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugblog/internal/database"
	"github.com/go-while/go-pugblog/internal/models"
)

// postsPage lists every post with a summary
func (s *WebServer) postsPage(c *gin.Context) {
	posts, err := s.Store.FindAll(c.Request.Context())
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Error fetching posts: ", err, "list")
		return
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, models.NewPostView(p, s.basePath(), models.SummaryLength))
	}

	data := PostsPageData{
		TemplateData: s.getBaseTemplateData(c, "Posts"),
		Posts:        views,
	}
	s.renderTemplate(c, http.StatusOK, ViewIndex, data)
}

// postPage shows a single post
func (s *WebServer) postPage(c *gin.Context) {
	p, err := s.Store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			s.renderNotFound(c)
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Error fetching post: ", err, "get")
		return
	}

	data := PostPageData{
		TemplateData: s.getBaseTemplateData(c, p.Title),
		Post:         models.NewPostDetailView(p, s.basePath()),
	}
	s.renderTemplate(c, http.StatusOK, ViewDetail, data)
}

// deletePost removes a post and returns to the list
func (s *WebServer) deletePost(c *gin.Context) {
	if err := s.Store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			s.renderNotFound(c)
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Error deleting post: ", err, "delete")
		return
	}
	c.Redirect(http.StatusSeeOther, s.basePath()+"/")
}

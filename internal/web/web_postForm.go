package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugblog/internal/database"
	"github.com/go-while/go-pugblog/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	labelCreate = "Add New Post"
	labelUpdate = "Save Changes"
)

// createFormData fills the form settings for a new post
func (s *WebServer) createFormData(c *gin.Context, in models.PostInput) PostFormData {
	return PostFormData{
		TemplateData: s.getBaseTemplateData(c, labelCreate),
		Title:        in.Title,
		Body:         in.Body,
		FormAction:   s.basePath() + "/",
		SubmitLabel:  labelCreate,
		CancelHref:   s.basePath() + "/",
		MaxTitle:     models.MaxTitleLength,
	}
}

// editFormData fills the form settings for editing post id
func (s *WebServer) editFormData(c *gin.Context, id, title string, in models.PostInput) PostFormData {
	postURL := s.basePath() + "/" + id
	return PostFormData{
		TemplateData: s.getBaseTemplateData(c, title),
		PostID:       id,
		Title:        in.Title,
		Body:         in.Body,
		FormAction:   postURL + "/edit",
		SubmitLabel:  labelUpdate,
		CancelHref:   postURL,
		MaxTitle:     models.MaxTitleLength,
	}
}

const msgBodyTooLarge = "Request body too large"

// postFormInput reads the title and body fields; missing fields are empty.
// It answers the request itself and returns false when the form cannot be read.
func (s *WebServer) postFormInput(c *gin.Context) (models.PostInput, bool) {
	err := c.Request.ParseForm()
	if err == nil {
		if err = c.Request.ParseMultipartForm(s.Router.MaxMultipartMemory); errors.Is(err, http.ErrNotMultipart) {
			err = nil
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", tooLarge.Limit).Str("path", c.Request.URL.Path).Msg("request body too large")
			c.String(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return models.PostInput{}, false
		}
		c.String(http.StatusBadRequest, "Malformed form data")
		return models.PostInput{}, false
	}
	return models.CleanInput(c.PostForm("title"), c.PostForm("body")), true
}

// validationMessages extracts the itemised messages of a failed validation
func validationMessages(err error) []string {
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return []string{err.Error()}
}

// newPostPage shows an empty post form
func (s *WebServer) newPostPage(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, ViewNew, s.createFormData(c, models.PostInput{}))
}

// createPost validates the form and stores a new post
func (s *WebServer) createPost(c *gin.Context) {
	in, ok := s.postFormInput(c)
	if !ok {
		return
	}
	if err := in.Validate(models.CreateRules); err != nil {
		data := s.createFormData(c, in)
		data.Errors = validationMessages(err)
		s.renderTemplate(c, http.StatusBadRequest, ViewNew, data)
		return
	}

	p := &models.Post{Title: in.Title, Body: in.Body}
	if err := s.Store.Insert(c.Request.Context(), p); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Error creating post: ", err, "create")
		return
	}
	c.Redirect(http.StatusSeeOther, p.URL(s.basePath()))
}

// editPostPage shows the form prefilled with an existing post
func (s *WebServer) editPostPage(c *gin.Context) {
	id := c.Param("id")
	p, err := s.Store.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			s.renderNotFound(c)
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Error: ", err, "edit")
		return
	}

	data := s.editFormData(c, p.ID, "Edit: "+p.Title, models.PostInput{Title: p.Title, Body: p.Body})
	s.renderTemplate(c, http.StatusOK, ViewNew, data)
}

// updatePost validates the form and replaces title and body of a post
func (s *WebServer) updatePost(c *gin.Context) {
	id := c.Param("id")
	in, ok := s.postFormInput(c)
	if !ok {
		return
	}
	if err := in.Validate(models.UpdateRules); err != nil {
		data := s.editFormData(c, id, "Edit Post", in)
		data.Errors = validationMessages(err)
		s.renderTemplate(c, http.StatusBadRequest, ViewNew, data)
		return
	}

	p, err := s.Store.Update(c.Request.Context(), id, in.Title, in.Body)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			s.renderNotFound(c)
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Error updating post: ", err, "update")
		return
	}
	c.Redirect(http.StatusSeeOther, p.URL(s.basePath()))
}

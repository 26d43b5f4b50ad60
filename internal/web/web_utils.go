package web

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugblog/internal/config"
	"github.com/rs/zerolog/log"
)

const msgPostNotFound = "Post not found"

// GetPort returns the listening port from the config
func (s *WebServer) GetPort() int {
	return s.Config.ListenPort
}

// basePath is the mount point of the post routes, without trailing slash
func (s *WebServer) basePath() string {
	return s.Config.BasePath
}

// getBaseTemplateData creates a TemplateData struct with the fields every page uses
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	return TemplateData{
		PageTitle:      title,
		BasePath:       s.basePath(),
		AppVersion:     config.AppVersion,
		WriteProtected: s.Config.WriteProtected(),
	}
}

// renderError logs err and answers with a plain text message
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, err error, op string) {
	log.Error().Err(err).
		Str("op", op).
		Str("post_id", c.Param("id")).
		Int("status", statusCode).
		Msg(strings.TrimSuffix(message, ": "))
	c.String(statusCode, "%s", message+err.Error())
}

// renderNotFound answers a miss on a post identifier
func (s *WebServer) renderNotFound(c *gin.Context) {
	c.String(http.StatusNotFound, msgPostNotFound)
}

// renderTemplate renders view into a buffer so that render failures still
// produce a clean 500, then minifies and tags the page before writing it.
func (s *WebServer) renderTemplate(c *gin.Context, statusCode int, view string, data interface{}) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, view, data); err != nil {
		log.Error().Err(err).Str("view", view).Msg("error rendering template")
		c.String(http.StatusInternalServerError, "Template error")
		return
	}

	page := buf.Bytes()
	if s.minifier != nil {
		var out bytes.Buffer
		if err := s.minifier.Minify("text/html", &out, &buf); err != nil {
			log.Warn().Err(err).Str("view", view).Msg("minify failed, serving unminified page")
		} else {
			page = out.Bytes()
		}
	}

	if statusCode == http.StatusOK {
		etag := pageETag(page)
		c.Header("ETag", etag)
		if etagMatches(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}
	c.Data(statusCode, "text/html; charset=utf-8", page)
}

func pageETag(page []byte) string {
	d := make([]byte, 8)
	binary.BigEndian.PutUint64(d, xxhash.Sum64(page))
	return `"` + base64.StdEncoding.EncodeToString(d) + `"`
}

// etagMatches reports whether an If-None-Match header names etag
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

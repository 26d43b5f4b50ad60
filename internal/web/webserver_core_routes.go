// Package web provides the HTTP server and web interface for go-pugblog
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugblog/internal/config"
	"github.com/go-while/go-pugblog/internal/database"
	"github.com/go-while/go-pugblog/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

// WebServer serves the post pages
type WebServer struct {
	Store     database.PostStore
	Router    *gin.Engine
	Config    *config.WebConfig
	StartTime time.Time // Track server start time for uptime calculations
	renderer  Renderer
	minifier  *minify.M
	srv       *http.Server
}

// TemplateData represents common template data
type TemplateData struct {
	PageTitle      string
	BasePath       string
	AppVersion     string
	WriteProtected bool
}

// PostsPageData represents data for the post list
type PostsPageData struct {
	TemplateData
	Posts []models.PostView
}

// PostPageData represents data for a single post
type PostPageData struct {
	TemplateData
	Post models.PostDetailView
}

// PostFormData represents data for the new and edit forms
type PostFormData struct {
	TemplateData
	PostID      string
	Title       string
	Body        string
	Errors      []string
	FormAction  string
	SubmitLabel string
	CancelHref  string
	MaxTitle    int
}

// NewServer creates a new web server instance
func NewServer(store database.PostStore, webconfig *config.WebConfig, renderer Renderer) *WebServer {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Configure Gin to trust reverse proxy headers
	if err := router.SetTrustedProxies(webconfig.TrustedProxies); err != nil {
		log.Warn().Err(err).Strs("trusted_proxies", webconfig.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	server := &WebServer{
		Store:    store,
		Router:   router,
		Config:   webconfig,
		renderer: renderer,
	}
	if webconfig.Minify {
		server.minifier = minify.New()
		server.minifier.AddFunc("text/html", html.Minify)
	}

	router.Use(server.AccessLogMiddleware(), gin.Recovery())
	router.Use(secure.New(secureConfig))
	if webconfig.MaxBodyBytes > 0 {
		router.Use(server.MaxBodyMiddleware(webconfig.MaxBodyBytes))
	}

	server.setupRoutes()
	server.srv = &http.Server{
		Addr:              ":" + strconv.Itoa(webconfig.ListenPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	base := s.basePath()

	// Static files first (highest priority)
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))
	s.Router.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow:\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	if base != "" {
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, base+"/")
		})
	}

	// write routes may require basic auth
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if s.Config.WriteProtected() {
			return []gin.HandlerFunc{s.WriteAuthRequired(), h}
		}
		return []gin.HandlerFunc{h}
	}

	posts := s.Router.Group(base)
	{
		if base != "" {
			posts.GET("", s.postsPage)
			posts.POST("", write(s.createPost)...)
		}
		posts.GET("/", s.postsPage)
		posts.POST("/", write(s.createPost)...)
		posts.GET("/new", write(s.newPostPage)...)
		posts.POST("/new", write(s.createPost)...) // form target of the old /post scheme
		posts.GET("/:id", s.postPage)
		posts.GET("/:id/edit", write(s.editPostPage)...)
		posts.POST("/:id/edit", write(s.updatePost)...)
		posts.POST("/:id/delete", write(s.deletePost)...)
	}

	if s.Config.LegacyRoutes && base != "/post" {
		// old single-post scheme, 308 keeps method and body
		for _, suffix := range []string{"", "/edit", "/delete"} {
			h := s.legacyRedirect(suffix)
			s.Router.GET("/post/:id"+suffix, h)
			s.Router.POST("/post/:id"+suffix, h)
		}
	}
}

// legacyRedirect points /post/:id<suffix> at the canonical post path
func (s *WebServer) legacyRedirect(suffix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := s.basePath() + "/" + c.Param("id") + suffix
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		c.Redirect(http.StatusPermanentRedirect, target)
	}
}

// Start starts the web server with SSL support if configured.
// It returns nil once Shutdown has been called.
func (s *WebServer) Start() error {
	addr := s.srv.Addr
	s.StartTime = time.Now() // Set the start time for uptime calculations

	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Info().Str("addr", addr).Str("base_path", s.basePath()).Msg("starting HTTPS server")
		err = s.srv.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Info().Str("addr", addr).Str("base_path", s.basePath()).Msg("starting HTTP server")
		err = s.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// AccessLogMiddleware writes one structured log event per request
func (s *WebServer) AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("proto", c.Request.Proto).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("referer", c.Request.Referer()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("request")
	}
}

// MaxBodyMiddleware caps the size of request bodies
func (s *WebServer) MaxBodyMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	app "spotserv/src/app"
	cfg "spotserv/src/configuration"
	"spotserv/src/events"
	"spotserv/src/logging"
	"spotserv/src/metrics"
	"spotserv/src/places"
	db "spotserv/src/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type (
	PlacesSearcher interface {
		Nearby(ctx context.Context, args places.NearbyArgs) (*places.NearbyResponse, error)
	}

	// MediaStore is the object storage used for post photos and avatars.
	MediaStore interface {
		UploadFile(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) (string, error)
		DeleteFile(ctx context.Context, bucket, name string) error
		ObjectName(bucket, publicURL string) (string, bool)
		ListObjects(ctx context.Context, bucket, prefix string, filters []string) ([]*url.URL, error)
	}

	Dependencies struct {
		Logger   *zap.Logger
		Places   PlacesSearcher
		Media    MediaStore
		Posts    db.PostStore
		Profiles db.ProfileStore
		Graph    db.FriendGraph
		Sessions *SessionManager
		Auth     *AuthHandler
		Events   events.Publisher
		Metrics  *metrics.Registry
	}

	AppHandler struct {
		config   *cfg.Properties
		logger   *zap.Logger
		places   PlacesSearcher
		media    MediaStore
		posts    db.PostStore
		profiles db.ProfileStore
		graph    db.FriendGraph
		sessions *SessionManager
		events   events.Publisher
		now      func() time.Time
	}
)

func NewHandler(config *cfg.Properties, deps Dependencies) *AppHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AppHandler{
		config:   config,
		logger:   logger,
		places:   deps.Places,
		media:    deps.Media,
		posts:    deps.Posts,
		profiles: deps.Profiles,
		graph:    deps.Graph,
		sessions: deps.Sessions,
		events:   publisher,
		now:      time.Now,
	}
}

// NewRouter registers every route on a fresh engine.
func NewRouter(config *cfg.Properties, deps Dependencies) *gin.Engine {
	handler := NewHandler(config, deps)
	auth := deps.Auth
	if auth == nil {
		auth = &AuthHandler{}
	}
	auth.attach(config, handler)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware(handler.logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", deps.Metrics.Handler())
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if config.Server.Debug {
		pprof.Register(router)
	}

	router.GET("/health", handler.GetHealth)

	api := router.Group("/api")
	api.GET("/config", handler.GetConfig)
	api.GET("/categories", handler.GetCategories)
	api.GET("/places", handler.GetPlaces)

	api.GET("/posts", handler.ListPosts)
	api.GET("/posts/nearby", handler.NearbyPosts)
	api.GET("/posts/:id", handler.GetPost)
	api.GET("/profiles/:id", handler.GetPublicProfile)
	api.GET("/profiles/:id/posts", handler.GetProfilePosts)

	private := api.Group("", handler.RequireSession)
	private.POST("/posts", handler.CreatePost)
	private.DELETE("/posts/:id", handler.DeletePost)
	private.GET("/profile", handler.GetProfile)
	private.PUT("/profile", handler.UpdateProfile)
	private.POST("/profile/avatar", handler.UploadAvatar)
	private.GET("/profile/avatars", handler.ListAvatars)
	private.GET("/settings", handler.GetSettings)
	private.PUT("/settings", handler.PutSettings)
	private.GET("/friends", handler.GetFriends)
	private.GET("/friends/feed", handler.GetFeed)
	private.POST("/friends/:id", handler.Follow)
	private.DELETE("/friends/:id", handler.Unfollow)
	private.GET("/saved", handler.GetSaved)
	private.POST("/saved/:id", handler.SavePost)
	private.DELETE("/saved/:id", handler.UnsavePost)

	authGroup := router.Group("/auth")
	authGroup.GET("/login", auth.Login)
	authGroup.GET("/signin", auth.Signin)
	authGroup.GET("/callback", auth.Callback)
	authGroup.GET("/logout", auth.Logout)
	authGroup.GET("/account", handler.RequireSession, auth.Account)

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	return router
}

// RunServer wires the configured backends and serves until ctx is done.
func RunServer(ctx context.Context, config *cfg.Properties, logger *zap.Logger) error {
	deps, cleanup, err := BuildDependencies(ctx, config, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", config.Server.Port),
		Handler:      NewRouter(config, deps),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// BuildDependencies connects every backend named in config. Backends with
// no address fall back to in-process implementations.
func BuildDependencies(ctx context.Context, config *cfg.Properties, logger *zap.Logger) (Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (Dependencies, func(), error) {
		cleanup()
		return Dependencies{}, func() {}, err
	}

	deps := Dependencies{Logger: logger, Metrics: metrics.NewRegistry()}

	var cache places.Cache
	if len(config.Cache.Servers) > 0 {
		cache = places.NewMemcachedCache(config.Cache.Servers, func(err error) {
			logger.Debug("places cache unavailable", zap.Error(err))
		})
	}
	deps.Places = places.NewClient(places.Options{
		BaseURL:  config.Google.PlacesURL,
		APIKey:   config.Google.PlacesAPIKey,
		Timeout:  config.Google.PlacesTimeout,
		Cache:    cache,
		CacheTTL: config.Google.PlacesCacheTTL,
		Recorder: deps.Metrics,
		Logger:   logger,
	})

	s3, err := app.NewMinioS3Client(config.S3.Host, config.S3.AccessKey, config.S3.SecretKey,
		config.S3.PublicBaseURL(), config.S3.UseSSL)
	if err != nil {
		return fail(fmt.Errorf("could not connect to minio: %w", err))
	}
	for _, bucket := range []string{config.S3.PostBucket, config.S3.AvatarBucket} {
		if err := s3.EnsureBucket(ctx, bucket); err != nil {
			logger.Warn("bucket is not ready", zap.String("bucket", bucket), zap.Error(err))
		}
	}
	deps.Media = s3

	if config.DB.URL != "" {
		pool, err := db.NewPool(ctx, config.DB.URL, config.DB.MaxConns)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool.Close)
		if err := db.Migrate(ctx, pool); err != nil {
			return fail(err)
		}
		deps.Posts = &db.PostgresPostStore{DB: pool}
		deps.Profiles = &db.PostgresProfileStore{DB: pool}
	} else {
		logger.Warn("DB_URL is empty, posts and profiles are kept in memory")
		deps.Posts = db.NewMemoryPostStore()
		deps.Profiles = db.NewMemoryProfileStore()
	}

	if config.Graph.URL != "" {
		graph, err := db.NewNeo4jGraph(ctx, config.Graph.URL, config.Graph.Username, config.Graph.Password)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = graph.Close(context.Background()) })
		deps.Graph = graph
	} else {
		deps.Graph = db.NewMemoryGraph()
	}

	if config.Messages.URL != "" {
		publisher, err := events.Connect(config.Messages.URL, config.Server.Name)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, publisher.Close)
		deps.Events = publisher
	} else {
		deps.Events = events.NopPublisher{}
	}

	if config.Auth.SessionSecret != "" {
		sessions, err := NewSessionManager(config.Auth.SessionSecret, config.Auth.SessionTTL, db.NewAuthDataBase())
		if err != nil {
			return fail(err)
		}
		deps.Sessions = sessions
	} else {
		logger.Warn("AUTH_SESSION_SECRET is empty, sign-in is disabled")
	}
	deps.Auth = NewAuthHandler(ctx, config, logger)

	return deps, cleanup, nil
}

func (a *AppHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *AppHandler) publish(subject string, payload any) {
	if err := a.events.Publish(subject, payload); err != nil {
		a.logger.Warn("event not published", zap.String("subject", subject), zap.Error(err))
	}
}

func respondOK(c *gin.Context, status int, payload any) {
	c.JSON(status, gin.H{"status": "success", "payload": payload})
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"message": "error", "error": err.Error()})
}

// respondError maps domain errors onto status codes.
func (a *AppHandler) respondError(c *gin.Context, err error) {
	var (
		postErr   *app.ValidationError
		placesErr *places.ValidationError
	)
	switch {
	case errors.As(err, &postErr), errors.As(err, &placesErr):
		abortWithError(c, http.StatusBadRequest, err)
	case errors.Is(err, db.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err)
	case errors.Is(err, db.ErrSelfRelation):
		abortWithError(c, http.StatusBadRequest, err)
	default:
		_ = c.Error(err)
		a.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, errors.New("internal error"))
	}
}

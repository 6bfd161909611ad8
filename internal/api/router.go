package api

import (
	"html/template"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/d60-Lab/gin-blog/docs"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/api/render"
	"github.com/d60-Lab/gin-blog/internal/auth"
	"github.com/d60-Lab/gin-blog/internal/cache"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/internal/storage"
)

// Deps 路由依赖
type Deps struct {
	Config    *config.Config
	Users     repository.UserRepository
	Feed      service.FeedService
	Posts     service.PostService
	Relations service.RelationshipService
	Accounts  service.UserService
	Pages     cache.Store
	JWT       *auth.JWT
}

// NewDeps 基于数据库装配仓储与服务
func NewDeps(cfg *config.Config, db *gorm.DB, pages cache.Store, media storage.Storage) Deps {
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	rel := service.NewRelationshipService(users, repository.NewFollowRepository(db), repository.NewFanRepository(db))

	return Deps{
		Config:    cfg,
		Users:     users,
		Feed:      service.NewFeedService(users, groups, posts, comments, rel),
		Posts:     service.NewPostService(posts, groups, comments, media, cfg.Storage.MaxImageWidth),
		Relations: rel,
		Accounts:  service.NewUserService(users, 0),
		Pages:     pages,
		JWT:       auth.NewJWT(cfg.JWT),
	}
}

// SetupRouter 注册中间件与全部路由
func SetupRouter(d Deps) (*gin.Engine, error) {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	if cfg.Server.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/media/"})))
	}

	renderer, err := render.New(template.FuncMap{"imageURL": d.Posts.ImageURL})
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	h := handler.NewHandler(d.Feed, d.Posts, d.Relations, d.Accounts, d.JWT, cfg.Server.LoginURL)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.Storage.Backend == "disk" {
		r.Static("/media", cfg.Storage.Dir)
	}

	api := r.Group("/api", auth.BearerViewer(d.Users, d.JWT))
	{
		api.POST("/token/", h.IssueToken)
		api.GET("/posts/:id/", h.GetPost)
		api.GET("/follow/", h.APIFollowFeed)
		api.GET("/users/:user_id/following/", h.ListFollowing)
		api.GET("/users/:user_id/fans/", h.ListFans)
		api.POST("/relations/follow/", h.APIFollow)
		api.POST("/relations/unfollow/", h.APIUnfollow)
	}

	web := r.Group("/", auth.Sessions(cfg.Session), auth.LoadViewer(d.Users))
	{
		web.GET("/", cache.CachePage(d.Pages, cfg.Cache.IndexTTL), h.Index)
		web.GET("/group/:slug/", h.GroupPosts)
		web.GET("/profile/:username/", h.Profile)
		web.GET("/posts/:id/", h.PostDetail)
		web.GET("/about/author/", h.AboutAuthor)
		web.GET("/about/tech/", h.AboutTech)

		web.GET("/auth/signup/", h.SignupForm)
		web.POST("/auth/signup/", h.Signup)
		web.GET("/auth/login/", h.LoginForm)
		web.POST("/auth/login/", h.Login)
		web.GET("/auth/logout/", h.Logout)

		private := web.Group("/", auth.RequireLogin(cfg.Server.LoginURL))
		private.GET("/create/", h.CreateForm)
		private.POST("/create/", h.Create)
		private.GET("/posts/:id/edit/", h.EditForm)
		private.POST("/posts/:id/edit/", h.Edit)
		private.POST("/posts/:id/comment/", h.AddComment)
		private.GET("/follow/", h.FollowIndex)
		private.GET("/profile/:username/follow/", h.ProfileFollow)
		private.GET("/profile/:username/unfollow/", h.ProfileUnfollow)
	}

	notFound := []gin.HandlerFunc{auth.Sessions(cfg.Session), auth.LoadViewer(d.Users), h.NotFound}
	r.NoRoute(notFound...)

	return r, nil
}

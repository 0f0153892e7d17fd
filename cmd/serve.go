package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/controller"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	shopgrpc "github.com/vibast-solutions/ms-go-shop/app/grpc"
	"github.com/vibast-solutions/ms-go-shop/app/mailer"
	"github.com/vibast-solutions/ms-go-shop/app/metrics"
	"github.com/vibast-solutions/ms-go-shop/app/middleware"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/storage"
	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the public HTTP API (Echo) and the internal gRPC order API.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type services struct {
	userAuth     service.UserAuthService
	catalog      service.CatalogService
	cart         service.CartService
	checkout     service.CheckoutService
	orders       service.OrderService
	internalAuth service.InternalAuthService
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := openDatabase(cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailQueue := mailer.NewQueue(cfg.Mail.Workers, cfg.Mail.QueueSize)
	defer mailQueue.Close()

	svc, err := buildServices(ctx, cfg, db, mailer.New(cfg.Mail, cfg.App), mailQueue)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}

	grpcServer, err := startGRPCServer(cfg, svc)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	e := newHTTPServer(ctx, cfg, db, svc)
	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	logrus.Info("Servers stopped, draining mail queue")
}

func buildServices(ctx context.Context, cfg *config.Config, db *sql.DB, notifier service.Notifier, mailQueue *mailer.Queue) (*services, error) {
	opts := []service.Option{service.WithAsyncRunner(mailQueue.Submit)}

	var images service.ImageStore
	if cfg.Storage.Enabled() {
		store, err := storage.NewS3ImageStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		images = store
	} else {
		logrus.Warn("S3_BUCKET not set, product image uploads are disabled")
	}

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)

	return &services{
		userAuth: service.NewUserAuthService(
			db,
			userRepo,
			repository.NewUserTokenRepository(db),
			repository.NewPasswordResetTokenRepository(db),
			notifier,
			cfg,
			opts...,
		),
		catalog:      service.NewCatalogService(productRepo, images, opts...),
		cart:         service.NewCartService(repository.NewCartRepository(db), productRepo, opts...),
		checkout:     service.NewCheckoutService(db, userRepo, notifier, opts...),
		orders:       service.NewOrderService(repository.NewOrderRepository(db), opts...),
		internalAuth: service.NewInternalAuthService(repository.NewInternalAPIKeyRepository(db), opts...),
	}, nil
}

func newHTTPServer(ctx context.Context, cfg *config.Config, db *sql.DB, svc *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = controller.HTTPErrorHandler

	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.Metrics)

	healthController := controller.NewHealthController(db)
	userAuthController := controller.NewUserAuthController(svc.userAuth)
	productController := controller.NewProductController(svc.catalog)
	cartController := controller.NewCartController(svc.cart)
	orderController := controller.NewOrderController(svc.checkout, svc.orders)
	internalOrderController := controller.NewInternalOrderController(svc.orders)

	authMiddleware := middleware.NewAuthMiddleware(svc.userAuth)
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(svc.internalAuth)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx, time.Minute)

	e.GET("/", healthController.Welcome)
	e.GET("/health", healthController.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	users := e.Group("/users")
	users.POST("", userAuthController.Register, limiter.Limit)
	users.POST("/verify", userAuthController.Verify)
	users.GET("/me", userAuthController.Me, authMiddleware.RequireAuth)

	auth := e.Group("/auth")
	auth.POST("/login", userAuthController.Login, limiter.Limit)
	auth.POST("/refresh", userAuthController.RefreshToken, limiter.Limit)
	auth.POST("/forgot-password", userAuthController.ForgotPassword, limiter.Limit)
	auth.POST("/reset-password", userAuthController.ResetPassword, limiter.Limit)
	auth.POST("/logout", userAuthController.Logout, authMiddleware.RequireAuth)

	products := e.Group("/products", authMiddleware.RequireAuth, middleware.RequireRole(entity.RoleAdmin))
	products.POST("/create-products", productController.Create)
	products.GET("", productController.List)
	products.GET("/:id", productController.Get)
	products.PUT("/:id", productController.Update)
	products.DELETE("/:id", productController.Delete)
	products.POST("/:id/image", productController.UploadImage)

	public := e.Group("/public/products")
	public.GET("", productController.PublicList)
	public.GET("/search", productController.Search)

	cart := e.Group("/cart", authMiddleware.RequireAuth, middleware.RequireRole(entity.RoleUser))
	cart.POST("", cartController.Add)
	cart.GET("", cartController.List)
	cart.PUT("/:product_id", cartController.UpdateQuantity)
	cart.DELETE("/:product_id", cartController.Remove)

	checkout := e.Group("/checkout", authMiddleware.RequireAuth, middleware.RequireRole(entity.RoleUser))
	checkout.POST("/checkout", orderController.Checkout)

	orders := e.Group("/orders", authMiddleware.RequireAuth, middleware.RequireRole(entity.RoleUser))
	orders.GET("", orderController.List)
	orders.GET("/:order_id", orderController.Get)

	internal := e.Group("/internal", apiKeyMiddleware.RequireAPIKey)
	internal.GET("/access", internalOrderController.Access)
	internalOrders := internal.Group("/orders", apiKeyMiddleware.RequireAccess(entity.AccessOrders))
	internalOrders.GET("/:order_id", internalOrderController.GetOrder)
	internalOrders.PATCH("/:order_id/status", internalOrderController.UpdateStatus)

	return e
}

func startGRPCServer(cfg *config.Config, svc *services) (*grpc.Server, error) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, err
	}

	grpcServer := shopgrpc.NewServer(svc.orders, svc.internalAuth)
	go func() {
		logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
		if err := grpcServer.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("Failed to start gRPC server")
		}
	}()

	return grpcServer, nil
}

package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/config"
	"github.com/labworks/labops/controllers"
	"github.com/labworks/labops/events"
	"github.com/labworks/labops/middleware"
	"github.com/labworks/labops/storage"
	"github.com/labworks/labops/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store *storage.Store, bus *events.Bus) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok", "store_ready": store.Ready()})
	})

	authController := controllers.NewAuthController(db, bus)
	userController := controllers.NewUserController(db)
	projectController := controllers.NewProjectController(db, bus)
	taskController := controllers.NewTaskController(db, bus)
	experimentController := controllers.NewExperimentController(db, bus)
	inventoryController := controllers.NewInventoryController(db, bus)
	supplierController := controllers.NewSupplierController(db)
	warehouseController := controllers.NewWarehouseController(db)
	orderController := controllers.NewOrderController(db, bus)
	reportController := controllers.NewReportController(db, store, bus)
	settingController := controllers.NewSettingController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	projects := protected.Group("/projects")
	projects.GET("", projectController.List)
	projects.POST("", projectController.Create)
	projects.GET("/:id", projectController.Get)
	projects.PUT("/:id", projectController.Update)
	projects.DELETE("/:id", projectController.Delete)

	tasks := protected.Group("/tasks")
	tasks.GET("", taskController.List)
	tasks.POST("", taskController.Create)
	tasks.GET("/:id", taskController.Get)
	tasks.PUT("/:id", taskController.Update)
	tasks.DELETE("/:id", taskController.Delete)

	experiments := protected.Group("/experiments")
	experiments.GET("", experimentController.List)
	experiments.POST("", experimentController.Create)
	experiments.GET("/:id", experimentController.Get)
	experiments.PUT("/:id", experimentController.Update)
	experiments.DELETE("/:id", experimentController.Delete)

	inventory := protected.Group("/inventory")
	inventory.GET("", inventoryController.List)
	inventory.POST("", inventoryController.Create)
	inventory.GET("/:id", inventoryController.Get)
	inventory.PUT("/:id", inventoryController.Update)
	inventory.DELETE("/:id", inventoryController.Delete)

	suppliers := protected.Group("/suppliers")
	suppliers.GET("", supplierController.List)
	suppliers.POST("", supplierController.Create)
	suppliers.GET("/:id", supplierController.Get)
	suppliers.PUT("/:id", supplierController.Update)
	suppliers.DELETE("/:id", supplierController.Delete)

	warehouses := protected.Group("/warehouses")
	warehouses.GET("", warehouseController.List)
	warehouses.POST("", warehouseController.Create)
	warehouses.GET("/:id", warehouseController.Get)
	warehouses.PUT("/:id", warehouseController.Update)
	warehouses.DELETE("/:id", warehouseController.Delete)

	orders := protected.Group("/orders")
	orders.GET("", orderController.List)
	orders.POST("", orderController.Create)
	orders.GET("/:id", orderController.Get)
	orders.PATCH("/:id/status", orderController.UpdateStatus)
	orders.DELETE("/:id", orderController.Delete)

	reports := protected.Group("/reports")
	reports.GET("", reportController.List)
	reports.POST("", middleware.MaxBodySize(int64(cfg.MaxReportSizeMB)<<20), reportController.Upload)
	reports.GET("/:id", reportController.Get)
	reports.GET("/:id/download", reportController.Download)
	reports.PUT("/:id", reportController.Update)
	reports.DELETE("/:id", reportController.Delete)

	protected.GET("/stats/dashboard", statsController.Dashboard)
	protected.GET("/stats/activity", statsController.Activity)

	admin := protected.Group("")
	admin.Use(middleware.AdminRequired())
	admin.GET("/users", userController.List)
	admin.POST("/users", userController.Create)
	admin.PUT("/users/:id", userController.Update)
	admin.DELETE("/users/:id", userController.Delete)
	admin.GET("/settings", settingController.List)
	admin.PUT("/settings", settingController.Upsert)
	admin.DELETE("/settings/:category/:key", settingController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

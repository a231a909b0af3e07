package main

import (
	"context"
	"time"

	"github.com/labworks/labops/config"
	"github.com/labworks/labops/events"
	"github.com/labworks/labops/models"
	"github.com/labworks/labops/routes"
	"github.com/labworks/labops/storage"
	"github.com/labworks/labops/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Experiment{},
		&models.InventoryItem{},
		&models.Supplier{},
		&models.Warehouse{},
		&models.Order{},
		&models.Report{},
		&models.Setting{},
		&models.Activity{},
	)

	bucket, err := storage.NewMinioBucket(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Region:    cfg.MinioRegion,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		utils.Sugar.Fatalf("object storage client: %v", err)
	}
	store := storage.NewStore(bucket, utils.Sugar)

	// Try to initialize the blob store now; a failure is not fatal because
	// requests retry lazily until the storage service comes up.
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Initialize(initCtx); err != nil {
		utils.Sugar.Warnf("blob store not ready at boot, will retry on demand: %v", err)
	}
	cancel()

	bus := events.NewBus(events.NewDBRecorder(db), utils.Sugar)
	defer bus.Close()

	utils.StartStagingCleaner(
		cfg.UploadStagingDir,
		time.Duration(cfg.StagingTTLMinutes)*time.Minute,
		time.Duration(cfg.StagingSweepMinutes)*time.Minute,
	)

	r := routes.SetupRouter(db, store, bus)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

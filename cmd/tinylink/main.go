package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"net/http"
	_ "net/http/pprof"

	"github.com/Popolzen/tinylink/internal/audit"
	"github.com/Popolzen/tinylink/internal/config"
	"github.com/Popolzen/tinylink/internal/db"
	"github.com/Popolzen/tinylink/internal/generator"
	"github.com/Popolzen/tinylink/internal/handler"
	"github.com/Popolzen/tinylink/internal/logger"
	"github.com/Popolzen/tinylink/internal/middleware/auth"
	"github.com/Popolzen/tinylink/internal/middleware/compressor"
	"github.com/Popolzen/tinylink/internal/middleware/subnet"
	"github.com/Popolzen/tinylink/internal/repository"
	"github.com/Popolzen/tinylink/internal/repository/database"
	"github.com/Popolzen/tinylink/internal/repository/filestorage"
	"github.com/Popolzen/tinylink/internal/repository/memory"
	"github.com/Popolzen/tinylink/internal/service/links"
	"github.com/Popolzen/tinylink/internal/service/users"
	"github.com/gin-gonic/gin"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	// Инициализируем логгер
	if err := logger.Init(); err != nil {
		log.Fatal("Не удалось инициализировать логгер:", err)
	}
	defer logger.Close()

	gin.SetMode(gin.ReleaseMode)
	cfg := config.NewConfig()

	// Запускаем pprof сервер на настраиваемом порту
	if cfg.PprofAddr != "" {
		go func() {
			log.Printf("pprof сервер запущен на http://%s/debug/pprof/", cfg.PprofAddr)
			if err := http.ListenAndServe(cfg.PprofAddr, nil); err != nil {
				log.Printf("Ошибка запуска pprof сервера: %v", err)
			}
		}()
	}

	// Инициализируем паблишера
	publisher := initAudit(cfg)

	// Инициализируем репозиторий
	repo, pinger := initRepository(cfg)

	// Создаем сервисы
	userService := users.NewUserService(repo)
	linkService := links.NewLinkService(repo,
		generator.New(cfg.CodeLen), cfg.MinCodeLen, cfg.MaxAttempts, logger.Sugar())

	// Настраиваем роутер
	r := setupRouter(linkService, userService, cfg, pinger, publisher)

	app := &App{
		server: &http.Server{
			Addr:    cfg.GetAddress(),
			Handler: r,
		},
		repo:      repo,
		publisher: publisher,
	}

	// Запускаем сервер
	go func() {
		log.Printf("tinylink запущен на http://%s", cfg.GetAddress())

		var err error
		if cfg.EnableHTTPS {
			err = app.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Не удалось запустить сервер:", err)
		}
	}()

	// Graceful Shutdown
	waitForShutdown(app)
}

func printBuildInfo() {
	version := "N/A"
	date := "N/A"
	commit := "N/A"

	if buildVersion != "" {
		version = buildVersion
	}
	if buildDate != "" {
		date = buildDate
	}
	if buildCommit != "" {
		commit = buildCommit
	}

	fmt.Printf("Build version: %s\n", version)
	fmt.Printf("Build date: %s\n", date)
	fmt.Printf("Build commit: %s\n", commit)
}

// initRepository инициализирует репозиторий в зависимости от конфигурации
func initRepository(cfg *config.Config) (repository.Repository, handler.Pinger) {
	switch {
	case cfg.DBurl != "":
		dbInstance, err := db.NewDataBase(*cfg)
		if err != nil {
			log.Fatal("Ошибка подключения к БД:", err)
		}
		if err := dbInstance.Migrate(); err != nil {
			log.Fatal("Ошибка выполнения миграций:", err)
		}
		log.Println("Используется БД репозиторий")
		return database.NewRepository(dbInstance.DB), dbInstance
	case cfg.GetFilePath() != "":
		log.Println("Используется файл")
		return filestorage.NewRepository(cfg.GetFilePath()), nil
	default:
		log.Println("Используется память")
		return memory.NewRepository(), nil
	}
}

// waitForShutdown блокируется до сигнала остановки
func waitForShutdown(app *App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Получен сигнал остановки, завершаем работу...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		log.Printf("Ошибка при остановке: %v", err)
	}
	log.Println("Сервис остановлен gracefully")
}

// initAudit - функция инициализации аудита:
func initAudit(cfg *config.Config) *audit.Publisher {
	publisher := audit.NewPublisher()

	// Файловый observer
	if cfg.GetAuditFile() != "" {
		fileObs, err := audit.NewFileObserver(cfg.GetAuditFile())
		if err != nil {
			log.Printf("Не удалось создать file observer: %v", err)
		} else {
			publisher.Subscribe(fileObs)
			log.Printf("Аудит в файл: %s", cfg.GetAuditFile())
		}
	}

	// HTTP observer
	if cfg.GetAuditURL() != "" {
		httpObs := audit.NewHTTPObserver(cfg.GetAuditURL())
		publisher.Subscribe(httpObs)
		log.Printf("Аудит на сервер: %s", cfg.GetAuditURL())
	}

	return publisher
}

// setupRouter настраивает роуты и middleware
func setupRouter(linkService links.LinkService, userService users.UserService,
	cfg *config.Config, pinger handler.Pinger, auditPub *audit.Publisher) *gin.Engine {
	r := gin.Default()
	r.Use(logger.RequestLogger())
	r.Use(compressor.Compresser())
	r.Use(auth.AuthMiddleware(cfg, userService))

	r.POST("/api/links", handler.CreateLinkHandler(linkService, cfg, auditPub))
	r.GET("/api/links", handler.ListLinksHandler(linkService, cfg))
	r.PUT("/api/links/:id", handler.UpdateLinkHandler(linkService, cfg))
	r.DELETE("/api/links/:id", handler.DeleteLinkHandler(linkService))
	r.GET("/api/links/by-code/:code", handler.GetByCodeHandler(linkService, auditPub))
	r.GET("/api/stats", handler.StatsHandler(linkService))

	r.POST("/api/users", handler.RegisterHandler(userService, cfg))
	r.GET("/api/users/me", handler.MeHandler(userService))

	internal := r.Group("/api/internal")
	internal.Use(subnet.TrustedSubnetMiddleware(cfg.TrustedSubnet))
	{
		internal.GET("/stats", handler.InternalStatsHandler(linkService))
	}

	r.GET("/:code", handler.RedirectHandler(linkService, auditPub))
	r.GET("/ping", handler.PingHandler(pinger))

	return r
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/indexdata/go-utils/utils"
	"github.com/indexdata/olebridge/common"
	"github.com/indexdata/olebridge/config"
	"github.com/indexdata/olebridge/dbutil"
	"github.com/indexdata/olebridge/driver"
	"github.com/indexdata/olebridge/httpclient"
	"github.com/indexdata/olebridge/vcs"
)

var HTTP_PORT = utils.Must(utils.GetEnvInt("HTTP_PORT", 8081))
var OLE_CONFIG = utils.GetEnv("OLE_CONFIG", "ole.toml")
var ENABLE_JSON_LOG = utils.GetEnv("ENABLE_JSON_LOG", "false")
var LOG_LEVEL = utils.GetEnv("LOG_LEVEL", "INFO")
var DB_PROVISION = utils.Must(utils.GetEnvBool("DB_PROVISION", false))
var MigrationsFolder = utils.GetEnv("MIGRATIONS_FOLDER", "file://migrations")
var MAX_RESPONSE_SIZE, _ = utils.GetEnvAny("MAX_RESPONSE_SIZE", httpclient.DefaultMaxResponseSize, func(val string) (int64, error) {
	v, err := humanize.ParseBytes(val)
	if err == nil && v > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("value %s is too large", val)
	}
	return int64(v), err
})
var SHUTDOWN_DELAY, _ = utils.GetEnvAny("SHUTDOWN_DELAY", time.Duration(15*float64(time.Second)), func(val string) (time.Duration, error) {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid SHUTDOWN_DELAY value: %s", val)
	}
	return d, nil
})

var ServeMux *http.ServeMux
var appCtx = common.CreateExtCtxWithLogArgsAndHandler(context.Background(), nil, configLog())

func configLog() slog.Handler {
	var level slog.Level
	switch strings.ToUpper(LOG_LEVEL) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}
	if strings.EqualFold(ENABLE_JSON_LOG, "true") {
		jsonHandler := slog.NewJSONHandler(os.Stdout, opts)
		common.DefaultLogHandler = jsonHandler
		return jsonHandler
	} else {
		textHandler := slog.NewTextHandler(os.Stdout, opts)
		common.DefaultLogHandler = textHandler
		return textHandler
	}
}

// LoadConfig reads the driver configuration named by OLE_CONFIG and applies DB_* overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(OLE_CONFIG)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// migrationsDir picks the migration set for a database/sql driver.
func migrationsDir(driverName string) string {
	return strings.TrimSuffix(MigrationsFolder, "/") + "/" + dbutil.Dialect(driverName)
}

func RunMigrateScripts(cfg *config.Config) error {
	driverName, dsn, err := driver.DataSource(cfg)
	if err != nil {
		return err
	}
	migrateUrl, err := dbutil.GetMigrateUrl(driverName, dsn)
	if err != nil {
		return err
	}
	versionFrom, versionTo, dirty, err := dbutil.RunMigrateScripts(migrationsDir(driverName), migrateUrl)
	if err != nil {
		return err
	}
	appCtx.Logger().Info("DB migration version", "from", versionFrom, "to", versionTo, "dirty", dirty)
	return nil
}

func Init(ctx context.Context) (*driver.OleDriver, error) {
	appCtx.Logger().Info("starting " + vcs.GetSignature())
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if DB_PROVISION {
		if err := RunMigrateScripts(cfg); err != nil {
			return nil, err
		}
	}
	return driver.Init(ctx, cfg, MAX_RESPONSE_SIZE)
}

func Run(ctx context.Context) error {
	ole, err := Init(ctx)
	if err != nil {
		return err
	}
	defer ole.Close()
	return StartServer(ole)
}

func NewServeMux(d driver.Driver) *http.ServeMux {
	mux := http.NewServeMux()
	api := &Api{driver: d}
	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.HandleFunc("GET /config/{function}", api.GetConfig)
	mux.HandleFunc("POST /patron/login", api.PatronLogin)
	mux.HandleFunc("GET /patron/{id}/profile", api.GetMyProfile)
	mux.HandleFunc("GET /patron/{id}/transactions", api.GetMyTransactions)
	mux.HandleFunc("GET /patron/{id}/fines", api.GetMyFines)
	mux.HandleFunc("GET /patron/{id}/holds", api.GetMyHolds)
	mux.HandleFunc("GET /records/status", api.GetStatuses)
	mux.HandleFunc("GET /records/{id}/status", api.GetStatus)
	mux.HandleFunc("GET /records/{id}/holding", api.GetHolding)
	mux.HandleFunc("GET /records/{id}/purchase-history", api.GetPurchaseHistory)
	mux.HandleFunc("POST /holds", api.PlaceHold)
	mux.HandleFunc("GET /pickup-locations", api.GetPickUpLocations)
	mux.HandleFunc("GET /pickup-locations/default", api.GetDefaultPickUpLocation)
	mux.HandleFunc("POST /renew-details", api.GetRenewDetails)
	mux.HandleFunc("POST /renewals", api.RenewMyItems)
	return mux
}

func StartServer(d driver.Driver) error {
	ServeMux = NewServeMux(d)
	signatureHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", vcs.GetSignature())
		ServeMux.ServeHTTP(w, r)
	})
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(HTTP_PORT),
		Handler:           signatureHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// channel to listen for server errors
	serverErrors := make(chan error, 1)
	go func() {
		appCtx.Logger().Info("HTTP server started on port " + strconv.Itoa(HTTP_PORT))
		serverErrors <- server.ListenAndServe()
	}()
	// channel to listen for OS signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)
	// block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("HTTP server error: %w", err)
	case sig := <-shutdown:
		appCtx.Logger().Info("HTTP server shutdown initiated", "signal", sig)
		// give outstanding requests a timeout to complete
		ctx, cancel := context.WithTimeout(appCtx, SHUTDOWN_DELAY)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("HTTP server could not shutdown gracefully: %w", err)
		}
		appCtx.Logger().Info("HTTP server gracefully stopped")
	}
	return nil
}

func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

package cozycurated

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/config"
	"github.com/klipach/cozycurated/log"
)

const (
	gcloudFuncSourceDir = "serverless_function_source_code"
	productionEnv       = "production"
)

var handler = sync.OnceValues(func() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Env == productionEnv {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.Info("loaded configuration", slog.String("config", cfg.String()))

	s, err := NewServer(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
})

func init() {
	functions.HTTP("Site", Site)
	fixDir()
}

// in GCP Functions, source code is placed in a directory named "serverless_function_source_code"
// need to change the dir to get access to templates and static files
func fixDir() {
	fileInfo, err := os.Stat(gcloudFuncSourceDir)
	if err == nil && fileInfo.IsDir() {
		_ = os.Chdir(gcloudFuncSourceDir)
	}
}

// Site serves every page and API route of the site.
func Site(w http.ResponseWriter, r *http.Request) {
	h, err := handler()
	if err != nil {
		log.LoggerFromContext(r.Context()).Error("error while setting up site", slog.String(log.ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.ServeHTTP(w, r)
}

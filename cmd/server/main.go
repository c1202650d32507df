package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/paysub/internal/app"
	"github.com/paysub/internal/config"
	"github.com/paysub/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

func main() {
	var mode string
	var configFile string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.StringVar(&configFile, "config", "", "配置文件路径，默认按 ./config.yml 查找")
	flag.Parse()

	printStartupBanner(mode)

	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置解析失败: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions()).Sugar()
	defer logger.Sync()

	if isWeakSecret(cfg.UserJWT.SecretKey) {
		if cfg.Server.Mode == "release" {
			log.Fatalw("user_jwt_secret_weak", "hint", "请在生产环境中配置强随机密钥")
		}
		log.Warnw("user_jwt_secret_weak", "hint", "建议在生产环境中更换")
	}
	if strings.TrimSpace(cfg.Payment.Epay.MerchantKey) == "" {
		log.Warnw("epay_merchant_key_missing")
	}

	if err := app.PrepareDatabase(cfg); err != nil {
		log.Fatalw("database_prepare_failed", "error", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  log,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		log.Fatalw("app_run_failed", "error", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "paysub: epay order & subscription service" + ansiReset)
	fmt.Println(ansiDim + "mode=" + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}

package main

import (
	"context"
	"time"

	"github.com/paysub/internal/app"
	"github.com/paysub/internal/config"
	"github.com/paysub/internal/logger"

	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "paysubctl",
		Short:         "paysub 运维工具：易支付签名调试、订单排查与权限授予",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "配置文件路径")

	cmd.AddCommand(
		newSignCmd(opts),
		newVerifyCmd(opts),
		newOrderCmd(opts),
		newAuthzCmd(opts),
	)
	return cmd
}

// loadConfig 加载配置，命令行工具日志固定输出到控制台
func (o *rootOptions) loadConfig() (*config.Config, error) {
	logger.Init("debug", logger.Options{})
	return config.LoadFrom(o.configFile)
}

// openDatabase 加载配置并连接数据库
func (o *rootOptions) openDatabase() (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.PrepareDatabase(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

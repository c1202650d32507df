package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paysub/internal/payment/epay"

	"github.com/spf13/cobra"
)

type signOptions struct {
	key string
}

func newSignCmd(root *rootOptions) *cobra.Command {
	opts := &signOptions{}
	cmd := &cobra.Command{
		Use:   "sign key=value [key=value...]",
		Short: "计算易支付 MD5 签名",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParamArgs(args)
			if err != nil {
				return err
			}
			key, err := resolveMerchantKey(root, opts.key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "content: %s\n", epay.BuildSignContent(params))
			fmt.Fprintf(out, "sign:    %s\n", epay.Sign(params, key))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.key, "key", "", "商户密钥，缺省读取配置 payment.epay.merchant_key")
	return cmd
}

func newVerifyCmd(root *rootOptions) *cobra.Command {
	opts := &signOptions{}
	cmd := &cobra.Command{
		Use:   "verify key=value [key=value...]",
		Short: "校验回调参数中的 sign",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParamArgs(args)
			if err != nil {
				return err
			}
			key, err := resolveMerchantKey(root, opts.key)
			if err != nil {
				return err
			}
			if err := epay.Verify(params, key); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "expected: %s\n", epay.Sign(params, key))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.key, "key", "", "商户密钥，缺省读取配置 payment.epay.merchant_key")
	return cmd
}

// parseParamArgs 解析 key=value 形式参数，同名 key 以后者为准
func parseParamArgs(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param %q, want key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}

func resolveMerchantKey(root *rootOptions, flagKey string) (string, error) {
	if flagKey != "" {
		return flagKey, nil
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Payment.Epay.MerchantKey == "" {
		return "", errors.New("merchant key is empty, pass --key or configure payment.epay.merchant_key")
	}
	return cfg.Payment.Epay.MerchantKey, nil
}

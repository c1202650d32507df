package main

import (
	"encoding/json"
	"errors"

	"github.com/paysub/internal/models"
	"github.com/paysub/internal/repository"

	"github.com/spf13/cobra"
)

type orderShowOptions struct {
	notifications int
}

func newOrderCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "订单排查",
	}
	cmd.AddCommand(newOrderShowCmd(root))
	return cmd
}

func newOrderShowCmd(root *rootOptions) *cobra.Command {
	opts := &orderShowOptions{}
	cmd := &cobra.Command{
		Use:   "show <order_no>",
		Short: "查看订单与最近的回调审计记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.openDatabase(); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			order, err := repository.NewOrderRepository(models.DB).GetByOrderNo(ctx, args[0])
			if err != nil {
				return err
			}
			if order == nil {
				return errors.New("order not found")
			}
			rows, err := repository.NewNotificationRepository(models.DB).ListByOrderNo(ctx, order.OrderNo, opts.notifications)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Order         *models.Order                `json:"order"`
				Notifications []models.PaymentNotification `json:"notifications"`
			}{Order: order, Notifications: rows})
		},
	}
	cmd.Flags().IntVar(&opts.notifications, "notifications", 20, "展示的回调审计条数")
	return cmd
}

package main

import (
	"fmt"

	"github.com/paysub/internal/authz"
	"github.com/paysub/internal/models"

	"github.com/spf13/cobra"
)

type authzGrantOptions struct {
	userID uint
	role   string
}

func newAuthzCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authz",
		Short: "运维权限管理",
	}
	cmd.AddCommand(newAuthzGrantCmd(root))
	return cmd
}

func newAuthzGrantCmd(root *rootOptions) *cobra.Command {
	opts := &authzGrantOptions{}
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "为用户授予运维角色（support / auditor）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.userID == 0 {
				return fmt.Errorf("--user is required")
			}
			cfg, err := root.openDatabase()
			if err != nil {
				return err
			}
			svc, err := authz.NewService(models.DB, cfg.Authz.PolicyTable)
			if err != nil {
				return err
			}
			if err := svc.BootstrapBuiltinRoles(); err != nil {
				return err
			}
			added, err := svc.AssignUserRole(opts.userID, opts.role)
			if err != nil {
				return err
			}
			roles, err := svc.GetUserRoles(opts.userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d added=%v roles=%v\n", opts.userID, added, roles)
			return nil
		},
	}
	cmd.Flags().UintVar(&opts.userID, "user", 0, "用户 ID")
	cmd.Flags().StringVar(&opts.role, "role", "support", "角色名")
	return cmd
}

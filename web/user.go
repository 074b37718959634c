package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
)

func newUserCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Commands for managing forum accounts created through Battle.net",
	}

	cmd.AddCommand(newUserShowCommand(opts))
	cmd.AddCommand(newUserSetRoleCommand(opts))
	cmd.AddCommand(newUserDeleteCommand(opts))

	return cmd
}

func newUserShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show USER_ID",
		Short: "Print an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(b *backend) error {
				user, err := b.Users.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := map[string]any{
					"id":       user.ID,
					"username": user.Username,
					"userslug": user.UserSlug,
					"email":    user.Email,
					"role":     string(user.Role),
					"linked":   user.LinkedBattleNetID(),
				}
				if user.BattleTag != nil {
					out["battletag"] = *user.BattleTag
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				return enc.Encode(out)
			})
		},
	}
}

func newUserSetRoleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role USER_ID ROLE",
		Short: "Set an account's role",
		Example: `  # Make an account an administrator
  bnetsso user set-role 1790011264551112704 admin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := entities.ParseRole(args[1])
			if err != nil {
				return fmt.Errorf("%w (must be 'user' or 'admin')", err)
			}
			return withBackend(cmd, opts, func(b *backend) error {
				accounts := services.NewAccountService(b.Users, b.Associations)
				if err := accounts.SetRole(cmd.Context(), args[0], role); err != nil {
					return err
				}
				slog.Info("role updated", "user_id", args[0], "role", role)
				return nil
			})
		},
	}
}

func newUserDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete an account and its Battle.net association",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, func(b *backend) error {
				accounts := services.NewAccountService(b.Users, b.Associations)
				if err := accounts.DeleteAccount(cmd.Context(), args[0]); err != nil {
					return err
				}
				slog.Info("account deleted", "user_id", args[0])
				return nil
			})
		},
	}
}

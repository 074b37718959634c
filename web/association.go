package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newAssociationCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "association",
		Aliases: []string{"assoc"},
		Short:   "Inspect and repair Battle.net associations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get BATTLENET_ID",
			Short: "Print the account a Battle.net id is associated with",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackend(cmd, opts, func(b *backend) error {
					uid, found, err := b.Associations.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if !found {
						return fmt.Errorf("battle.net id %s is not associated", args[0])
					}
					fmt.Fprintln(cmd.OutOrStdout(), uid)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "put BATTLENET_ID USER_ID",
			Short: "Point a Battle.net id at an account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackend(cmd, opts, func(b *backend) error {
					if _, err := b.Users.GetByID(cmd.Context(), args[1]); err != nil {
						return fmt.Errorf("account %s: %w", args[1], err)
					}
					if err := b.Associations.Put(cmd.Context(), args[0], args[1]); err != nil {
						return err
					}
					slog.Info("association written", "battlenet_id", args[0], "user_id", args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete BATTLENET_ID",
			Short: "Remove an association",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackend(cmd, opts, func(b *backend) error {
					if err := b.Associations.Delete(cmd.Context(), args[0]); err != nil {
						return err
					}
					slog.Info("association deleted", "battlenet_id", args[0])
					return nil
				})
			},
		},
	)

	return cmd
}

// withBackend opens the configured stores for a single command
func withBackend(cmd *cobra.Command, opts *rootOptions, fn func(*backend) error) error {
	b, err := openBackend(cmd.Context(), opts.cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

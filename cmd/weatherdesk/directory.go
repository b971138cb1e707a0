package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-desk/internal/config"
	"github.com/kjstillabower/weather-desk/internal/store"
)

// openStore loads offline configuration and opens the account database.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.LoadOffline()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
}

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the contact book",
	}
	cmd.AddCommand(newContactsAddCmd(), newContactsListCmd(), newContactsDeleteCmd())
	return cmd
}

func newContactsAddCmd() *cobra.Command {
	var phone, email string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			c, err := s.AddContact(cmd.Context(), args[0], phone, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added contact %d: %s\n", c.ID, c.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func newContactsListCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts, optionally filtered by a search term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			contacts, err := s.ListContacts(cmd.Context(), search)
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contacts")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL")
			for _, c := range contacts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Phone, c.Email)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on name, phone or email")
	return cmd
}

func newContactsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid contact id %q", args[0])
			}
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteContact(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted contact %d\n", id)
			return nil
		},
	}
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage login accounts",
	}
	var password string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a login account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			u, err := s.CreateUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s\n", u.Username)
			return nil
		},
	}
	add.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = add.MarkFlagRequired("password")
	cmd.AddCommand(add)
	return cmd
}

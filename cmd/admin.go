/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/talent-hunters/bookportal/config"
	"github.com/talent-hunters/bookportal/internal/server"
	"github.com/talent-hunters/bookportal/internal/services"
	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var adminInput services.RegisterInput

// adminCmd groups account maintenance commands.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage portal accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long: `Create an administrator account directly in the configured store.
The password is prompted for when --password is not given. Usage:

	bookportal admin create --email head@school.pk --username Head \
		--father-name Father --family-name Family \
		--address "1 School Road, Lahore" --phone 03001234567
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminInput.Password == "" {
			password, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			adminInput.Password = password
		}
		adminInput.AccountType = string(types.AccountTypeAdmin)

		return withDeps(cmd.Context(), func(deps server.Deps, log *zap.Logger) error {
			user, err := deps.Users.Register(cmd.Context(), adminInput)
			if err != nil {
				return err
			}
			log.Info("admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		})
	},
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}

// withDeps opens the configured store, builds the services over it and
// runs fn. Cover storage and events are left disabled.
func withDeps(ctx context.Context, fn func(server.Deps, *zap.Logger) error) error {
	cfg, log, err := loadLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	repos, err := server.OpenRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.Close(ctx); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()
	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Warn("memory store selected, changes are discarded on exit")
	}

	return fn(server.NewDeps(cfg, repos, nil, nil, log), log)
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	flags := adminCreateCmd.Flags()
	flags.StringVar(&adminInput.Email, "email", "", "login email")
	flags.StringVar(&adminInput.Username, "username", "", "given name")
	flags.StringVar(&adminInput.FatherName, "father-name", "", "father's name")
	flags.StringVar(&adminInput.FamilyName, "family-name", "", "family name")
	flags.StringVar(&adminInput.Address, "address", "", "postal address")
	flags.StringVar(&adminInput.PhoneNumber, "phone", "", "contact number")
	flags.StringVar(&adminInput.Password, "password", "", "password (prompted when omitted)")
	_ = adminCreateCmd.MarkFlagRequired("email")
}

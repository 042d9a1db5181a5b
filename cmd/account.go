package cmd

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-account/app/server"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Operator helpers for user accounts",
}

var accountConfirmLinkCmd = &cobra.Command{
	Use:   "confirm-link <email>",
	Short: "Print a fresh confirmation link for a registered user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := newAccountServicesForCommands(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		email := args[0]
		user, err := svc.Store.FindByEmail(cmd.Context(), email)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("email %q is not registered", email)
		}
		if user.IsConfirmed {
			return fmt.Errorf("account %q is already confirmed", email)
		}

		token, err := svc.Confirmation.IssueToken(user)
		if err != nil {
			return err
		}

		fmt.Printf("email: %s\n", user.Email)
		fmt.Printf("confirm_url: %s\n", svc.Notifier.ConfirmURL(token))
		return nil
	},
}

var accountResetLinkCmd = &cobra.Command{
	Use:   "reset-link <email>",
	Short: "Open a password reset request and print its link without sending mail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := newAccountServicesForCommands(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		email := args[0]
		token, err := svc.Reset.RequestReset(cmd.Context(), email)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				return fmt.Errorf("email %q is not registered", email)
			}
			return err
		}

		fmt.Printf("email: %s\n", email)
		fmt.Printf("reset_url: %s\n", svc.Notifier.ResetURL(token))
		return nil
	},
}

var accountInspectTokenCmd = &cobra.Command{
	Use:   "inspect-token <token>",
	Short: "Verify a confirmation or reset token and print its email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCommandConfig()
		if err != nil {
			return err
		}

		tokens, err := service.NewTokenCodec(cfg.Security.SecretKey, cfg.Security.PasswordSalt, cfg.Tokens.ConfirmMaxAge, nil)
		if err != nil {
			return err
		}

		email, err := tokens.Decode(args[0])
		switch {
		case err == nil:
			fmt.Printf("status: valid\nemail: %s\n", email)
			return nil
		case errors.Is(err, service.ErrTokenExpired):
			fmt.Println("status: expired")
		case errors.Is(err, service.ErrInvalidToken):
			fmt.Println("status: invalid")
		}
		return err
	},
}

func init() {
	accountCmd.AddCommand(accountConfirmLinkCmd)
	accountCmd.AddCommand(accountResetLinkCmd)
	accountCmd.AddCommand(accountInspectTokenCmd)
	rootCmd.AddCommand(accountCmd)
}

func loadCommandConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAccountServicesForCommands(cmd *cobra.Command) (*server.Services, func(), error) {
	cfg, err := loadCommandConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store != config.StoreMySQL {
		return nil, nil, fmt.Errorf("account commands require STORE=%s", config.StoreMySQL)
	}

	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := server.NewServices(cfg, store, server.NewMailSender(cfg.Mail), nil)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}

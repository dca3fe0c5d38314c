/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/itparc/inventory/config"
	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/db"
	"github.com/itparc/inventory/internal/events"
	"github.com/itparc/inventory/internal/mq"
	"github.com/itparc/inventory/internal/services"
	"github.com/itparc/inventory/internal/store"
	"github.com/itparc/inventory/types"
	"github.com/spf13/cobra"
)

const adminPasswordEnv = "INVENTORY_ADMIN_PASSWORD"

// adminCmd groups account bootstrap commands.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long: `Creates an administrator account directly in the database. The password
is read from --password or, when the flag is empty, from ` + adminPasswordEnv + `.

	inventory admin create --username root --email root@example.com
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if strings.TrimSpace(password) == "" {
			password = os.Getenv(adminPasswordEnv)
		}
		if password == "" {
			return errors.New("password is required (--password or " + adminPasswordEnv + ")")
		}

		cfg := config.LoadConfig()
		log := newLogger(cfg)

		creds, err := auth.New(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
		if err != nil {
			return err
		}

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open mq: %w", err)
		}
		if queue != nil {
			defer queue.Close()
		}

		users := services.NewUserService(store.NewUserRepository(dbConn), creds, events.FromMQ(queue, log))
		user, err := users.Create(ctx, 0, services.NewUser{
			Username: username,
			Email:    email,
			Password: password,
			Role:     types.RoleAdmin,
		})
		if err != nil {
			return err
		}

		log.Info(ctx, "administrator created", "id", user.ID, "username", user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().String("username", "", "login name of the new administrator")
	adminCreateCmd.Flags().String("email", "", "email address of the new administrator")
	adminCreateCmd.Flags().String("password", "", "password of the new administrator")
	_ = adminCreateCmd.MarkFlagRequired("username")
	_ = adminCreateCmd.MarkFlagRequired("email")
}

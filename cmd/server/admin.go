package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/quotedesk/internal/auth"
	"github.com/charlesng35/quotedesk/internal/services"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			db, err := env.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDatabase(db, env.Log)

			env.Log.Info("migrations applied")
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newUsersCommand(configPath *string) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage offer owners",
	}
	users.AddCommand(newUsersCreateCommand(configPath), newUsersPlanCommand(configPath))
	return users
}

func newUsersCreateCommand(configPath *string) *cobra.Command {
	var (
		email    string
		name     string
		plan     string
		company  string
		currency string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an owner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			db, err := env.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDatabase(db, env.Log)

			svc, err := services.NewUserService(db)
			if err != nil {
				return err
			}

			if strings.TrimSpace(currency) == "" {
				currency = env.Config.Offers.Currency
			}
			user, err := svc.Create(cmd.Context(), services.CreateUserInput{
				Email:       email,
				DisplayName: name,
				Plan:        plan,
				CompanyName: company,
				Currency:    currency,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			env.Log.Info("user created", zap.String("user_id", user.ID), zap.String("plan", user.Plan))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user.ID, user.Email, user.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owner email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&plan, "plan", "", "Subscription plan (free, pro, business, enterprise)")
	cmd.Flags().StringVar(&company, "company", "", "Company name")
	cmd.Flags().StringVar(&currency, "currency", "", "Default offer currency (ISO 4217)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersPlanCommand(configPath *string) *cobra.Command {
	var (
		userID string
		plan   string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Change an owner's subscription plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			db, err := env.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDatabase(db, env.Log)

			svc, err := services.NewUserService(db)
			if err != nil {
				return err
			}
			user, err := svc.UpdatePlan(cmd.Context(), userID, plan)
			if err != nil {
				return fmt.Errorf("update plan: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.ID, user.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&plan, "plan", "", "New subscription plan")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newTokenCommand(configPath *string) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl < 0 {
				return errors.New("ttl must not be negative")
			}

			env, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			db, err := env.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDatabase(db, env.Log)

			users, err := services.NewUserService(db)
			if err != nil {
				return err
			}
			user, err := users.Get(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}

			jwtSvc, err := iauth.NewJWTService(env.Config.Auth.JWTServiceConfig())
			if err != nil {
				return fmt.Errorf("initialise jwt service: %w", err)
			}
			token, expiresAt, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
				UserID: user.ID,
				Email:  user.Email,
				TTL:    ttl,
			})
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}

			env.Log.Info("access token issued", zap.String("user_id", user.ID), zap.Time("expires_at", expiresAt))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.jwt.access_token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aitoolsdaily/collector/internal/app"
	"github.com/aitoolsdaily/collector/internal/push"
)

// version can be set at build time via -ldflags.
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Daily AI tools collection service",
	Long: `Collector fetches newly launched AI tools from multiple sources,
deduplicates and classifies them, stores them, builds the daily digest,
and notifies push subscribers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so config env overrides see it.
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(vapidKeygenCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("collector version %s\n", version)
		},
	})
}

func newApp() (*app.App, error) {
	return app.New(app.Options{ConfigPath: cfgFile, Version: version})
}

// serveCmd runs the long-lived service: HTTP API plus cron schedules.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and daily schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.Run(cmd.Context())
		},
	}
}

// collectCmd runs one collection pass and exits. Useful for cron-less
// deployments and for testing a deployment end to end.
func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run one collection pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.RunOnce(cmd.Context())
		},
	}
}

// pushCmd sends one notification to all active subscriptions and exits.
func pushCmd() *cobra.Command {
	var title, body, url string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send a push notification to all subscribers and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.PushOnce(cmd.Context(), push.Notification{
				Title: title,
				Body:  body,
				URL:   url,
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "오늘의 AI 툴", "notification title")
	cmd.Flags().StringVar(&body, "body", "새로운 AI 툴이 추가되었습니다.", "notification body")
	cmd.Flags().StringVar(&url, "url", "/", "notification target URL")
	return cmd
}

// vapidKeygenCmd prints a fresh VAPID key pair for initial setup.
func vapidKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keygen",
		Short: "Generate a VAPID key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			publicKey, privateKey, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", publicKey, privateKey)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/client"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool
	actor      string
	authToken  string
	language   string

	// formsClient carries every admin call. reader serves the read-only
	// commands and follows --transport.
	formsClient *client.HTTPClient
	reader      client.FormReader
)

func defaultActor() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultHTTPURL() string {
	if s := os.Getenv("FORMDESK_HTTP_URL"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.HTTPURL != "" {
		return r.HTTPURL
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("FORMDESK_SERVER"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.GRPCAddr != "" {
		return r.GRPCAddr
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("FORMDESK_TOKEN"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok {
		return r.Token
	}
	return ""
}

var rootCmd = &cobra.Command{
	Use:          "fd <command>",
	Short:        "Manage ticket forms on a formdesk server",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		formsClient = client.NewHTTPClient(httpURL, authToken, actor)
		formsClient.SetLanguage(language)
		switch transport {
		case "http":
			reader = formsClient
		case "grpc":
			c, err := client.NewGRPCClient(serverAddr, authToken, actor)
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			reader = c
		default:
			return fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if reader != nil {
			reader.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport for read-only commands (http or grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor name recorded on edits and submissions")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token for the server")
	rootCmd.PersistentFlags().StringVar(&language, "lang", os.Getenv("FORMDESK_LANG"), "language for submitter-facing messages")

	rootCmd.AddGroup(
		&cobra.Group{ID: "forms", Title: "Forms:"},
		&cobra.Group{ID: "tickets", Title: "Tickets:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Forms
	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(fieldCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(presenceCmd)
	rootCmd.AddCommand(watchCmd)

	// Tickets
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(submissionCmd)
	rootCmd.AddCommand(uploadCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

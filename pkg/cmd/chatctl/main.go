package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"git.solsynth.dev/hypernet/chat/pkg/chatkit"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	root := &cobra.Command{
		Use:     "chatctl",
		Short:   "Terminal client for the chat service",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadSettings()
		},
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().String("server", "http://localhost:8444", "chat server base url")
	root.PersistentFlags().String("token", "", "access token")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	_ = viper.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", root.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(inboxCmd())
	root.AddCommand(dmCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(tailCmd())
	root.AddCommand(reactCmd())

	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadSettings() error {
	viper.SetConfigName("chatctl")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config")
	}
	viper.SetEnvPrefix("CHATCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("unable to read settings: %v", err)
		}
	}

	if viper.GetBool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	if len(viper.GetString("token")) == 0 {
		return fmt.Errorf("an access token is required, pass --token or set CHATCTL_TOKEN")
	}
	return nil
}

func newClient() *chatkit.Client {
	return chatkit.NewClient(
		strings.TrimRight(viper.GetString("server"), "/"),
		viper.GetString("token"),
		chatkit.WithClientLogger(log.Logger),
	)
}

// newSession resolves the current user so the store can tell own messages
// apart from incoming ones.
func newSession(ctx context.Context, client *chatkit.Client, opts ...chatkit.Option) (*chatkit.Session, chatkit.Sender, error) {
	me, err := client.Me(ctx)
	if err != nil {
		return nil, me, fmt.Errorf("unable to get current user: %v", err)
	}
	opts = append([]chatkit.Option{chatkit.WithLogger(log.Logger)}, opts...)
	return chatkit.NewSession(client, me.ID, opts...), me, nil
}

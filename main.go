package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mrsingh-rishi/whisper-llama/app"
	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/config"
	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/logging"
	"github.com/mrsingh-rishi/whisper-llama/model"
	_ "github.com/mrsingh-rishi/whisper-llama/pipeline/openai"
	"github.com/mrsingh-rishi/whisper-llama/server"
	"github.com/mrsingh-rishi/whisper-llama/store"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "whisper-llama",
		Short: "Speech transcription feeding a local chat model",
		Long: `whisper-llama records or loads audio, transcribes it with a Whisper model
and answers the transcript with a Llama chat model. Both models run behind an
OpenAI-compatible endpoint such as a local whisper.cpp or llama.cpp server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(cfg.LogLevel, nil)
	slog.SetDefault(log)
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.Start(ctx)

	srv := server.New(svc, log)
	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(cfg.ListenAddr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <file.wav>",
		Short: "Transcribe a WAV file and print the model's answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			// running from a terminal is consent enough
			cfg.ConsentRequired = false

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			buf, err := audio.Decode(f)
			if err != nil {
				return err
			}

			svc, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, reply, err := svc.Ask(cmd.Context(), buf)
			if res.Text != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "🗣️  %s\n", res.Text)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🦙 %s\n", reply.Content)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <ws-url>",
		Short: "Print the events streamed by a running server",
		Long: `Connects to the /ws endpoint of a running server and prints every event.

Example:
  whisper-llama watch ws://localhost:3000/ws`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, err := gws.DefaultDialer.DialContext(cmd.Context(), args[0], nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", args[0], err)
			}
			defer conn.Close()

			out := cmd.OutOrStdout()
			for {
				var env events.Envelope
				if err := conn.ReadJSON(&env); err != nil {
					if gws.IsCloseError(err, gws.CloseNormalClosure, gws.CloseGoingAway) {
						return nil
					}
					return err
				}
				data, _ := json.Marshal(env.Data)
				fmt.Fprintf(out, "%s %-24s %s\n", env.Timestamp.Local().Format(time.TimeOnly), env.Type, data)
			}
		},
	}
}

func modelsCmd() *cobra.Command {
	var multilingual bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the transcription models and their local status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// without a usable config the listing still works, just without status
			var st *store.Store
			if cfg, err := config.Load(configFile); err == nil {
				st, _ = store.Open(cfg.StorePath, logging.New(cfg.LogLevel, nil))
			}
			defer st.Close()

			ctx := cmd.Context()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSIZE\tREADY\tLAST DOWNLOAD")
			for _, opt := range model.Options(multilingual) {
				last := "-"
				if p, ok := st.LastProgress(ctx, opt.ID); ok {
					last = fmt.Sprintf("%.0f%%", p)
				}
				fmt.Fprintf(w, "%s\t%dMB\t%t\t%s\n", opt.ID, opt.SizeMB, st.ModelReady(ctx, opt.ID), last)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&multilingual, "multilingual", "m", false, "List multilingual variants")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"zus_chatbot/internal/api"
	"zus_chatbot/internal/calc"
	"zus_chatbot/src"
	"zus_chatbot/src/logger"
)

var rootCmd = &cobra.Command{
	Use:   "zus_chatbot",
	Short: "ZUS Coffee conversational assistant",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load environment variables from .env file
		if err := godotenv.Load(); err != nil {
			logger.Debug().Err(err).Msg("No .env file loaded")
		}
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the product and outlet catalogs into the vector index",
	RunE:  runIngest,
}

var calcCmd = &cobra.Command{
	Use:   "calc <expression>",
	Short: "Evaluate an arithmetic expression",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCalc,
}

var ingestOnly string

func init() {
	ingestCmd.Flags().StringVar(&ingestOnly, "only", "", "Ingest a single catalog: products | outlets")
	rootCmd.AddCommand(serveCmd, ingestCmd, calcCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func loadConfig() (*src.Config, error) {
	config, err := src.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(config.LogConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return config, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, config)
	if err != nil {
		return err
	}
	defer app.Close()

	if config.ServerConfig.IngestOnStart {
		if _, _, err := app.Ingestor().IngestAll(ctx); err != nil {
			logger.Warn().Err(err).Msg("Startup ingestion failed, serving existing index")
		}
	}

	processor, err := app.Processor(ctx)
	if err != nil {
		return err
	}

	server := api.NewServer(api.Deps{
		Processor: processor,
		Memory:    app.memory,
		Products:  app.products,
		Outlets:   app.outlets,
	}, config.ServerConfig)
	return server.Run(ctx)
}

func runIngest(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, config)
	if err != nil {
		return err
	}
	defer app.Close()

	ingestor := app.Ingestor()
	out := cmd.OutOrStdout()

	switch ingestOnly {
	case "products":
		n, err := ingestor.IngestProducts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Ingested %d products\n", n)
	case "outlets":
		n, err := ingestor.IngestOutlets(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Ingested %d outlets\n", n)
	case "":
		products, outlets, err := ingestor.IngestAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Ingested %d products and %d outlets\n", products, outlets)
	default:
		return fmt.Errorf("unknown catalog %q", ingestOnly)
	}
	return nil
}

func runCalc(cmd *cobra.Command, args []string) error {
	expression := strings.Join(args, " ")
	result, err := calc.Evaluate(expression)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), calc.Format(result))
	return nil
}

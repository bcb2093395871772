// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docchat",
		Usage: "Chat with your documents using retrieval-grounded answers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a document and build its vector index",
				ArgsUsage: "FILE",
				Action:    ingestCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "filename",
						Usage: "Display name for the document (defaults to the file's base name)",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk length in characters",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Overlap between consecutive chunks in characters",
						Value: 200,
					},
				),
			},
			{
				Name:   "session",
				Usage:  "Start a chat session on an ingested document",
				Action: sessionCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "document",
						Usage:    "Document ID to chat about",
						Required: true,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Ask a question on an existing chat session",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Chat session ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of chunks retrieved as context",
						Value: 3,
					},
				),
			},
			{
				Name:   "history",
				Usage:  "Print a chat session's message history",
				Action: historyCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Chat session ID",
						Required: true,
					},
				),
			},
			{
				Name:   "list",
				Usage:  "List ingested documents",
				Action: listCommand,
				Flags:  commonFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "credential",
			Usage: "API credential for the AI service",
			Value: "none",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
			Value: "qwen2.5:3b",
		},
	}
}

func openAssistant(c *cli.Context, extra ...docchat.AssistantOption) (*docchat.Assistant, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithToken(c.String("credential")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := append([]docchat.AssistantOption{docchat.WithAIConfig(aiConfig)}, extra...)
	return docchat.Open(c.String("db"), opts...)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file argument is required")
	}
	fileRef := c.Args().First()

	filename := c.String("filename")
	if filename == "" {
		filename = filepath.Base(fileRef)
	}

	assistant, err := openAssistant(c,
		docchat.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")))
	if err != nil {
		return err
	}
	defer assistant.Close()

	doc, err := assistant.IngestDocument(ctx, filename, fileRef, c.String("credential"))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("ingested %s as document %s\n", filename, doc.Id)
	return nil
}

func sessionCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	session, err := assistant.StartSession(ctx, core.ID(c.String("document")), c.String("credential"))
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	fmt.Printf("session %s started on document %s\n", session.Id, session.DocumentId)
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("exactly one question argument is required")
	}
	question := c.Args().First()

	assistant, err := openAssistant(c, docchat.WithTopK(c.Int("top-k")))
	if err != nil {
		return err
	}
	defer assistant.Close()

	reply, err := assistant.Ask(ctx, core.ID(c.String("session")), question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(reply.Text)
	return nil
}

func historyCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	messages, err := assistant.History(ctx, core.ID(c.String("session")))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	for _, msg := range messages {
		fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.Role, msg.Text)
	}
	return nil
}

func listCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	docs, err := assistant.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		status := "pending"
		if doc.Processed {
			status = "processed"
		}
		fmt.Printf("%s  %-9s  %s\n", doc.Id, status, doc.Filename)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

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
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "voxdex",
		Usage: "Build and query a retrieval index over interview transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config (default $VOXDEX_CONFIG or config/voxdex.yaml)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before the config",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check the config file and retrieval profiles",
				Action: validateCommand,
			},
			{
				Name:   "audit",
				Usage:  "Audit the transcript corpus and append the report to the audit log",
				Action: auditCommand,
			},
			{
				Name:   "enrich",
				Usage:  "Fill the enrichment cache without embedding",
				Action: enrichCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Recompute cached enrichments",
					},
				},
			},
			{
				Name:   "rebuild",
				Usage:  "Regenerate all artifacts and collections from the full corpus",
				Action: rebuildCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Recompute cached enrichments",
					},
				},
			},
			{
				Name:   "append",
				Usage:  "Index documents not yet in the manifest or vector store",
				Action: appendCommand,
			},
			{
				Name:   "inspect",
				Usage:  "Show index status, recent runs or one chunk",
				Action: inspectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "chunk",
						Usage: "Print the manifest row of this chunk id",
					},
					&cli.IntFlag{
						Name:  "runs",
						Usage: "Print the last N run summaries",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run one retrieval from the command line",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Question type; classified when omitted",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Override the profile's result count",
					},
					&cli.StringSliceFlag{
						Name:  "intent",
						Usage: "Keep chunks whose intents contain this value",
					},
					&cli.StringSliceFlag{
						Name:  "sentiment",
						Usage: "Keep chunks with this sentiment",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default server.addr from config)",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadEnv loads path into the environment. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

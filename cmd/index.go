package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/metrics"
	"github.com/rubiojr/gridsearch/pkg/search"
	"github.com/urfave/cli/v3"
)

const defaultBatchSize = 500

// IndexCommand creates the index command
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Index JSON documents (one object per line, optionally zstd compressed)",
		ArgsUsage: "FILE... (use - for stdin)",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Documents per indexing batch",
				Value: defaultBatchSize,
			},
			&cli.BoolFlag{
				Name:  "optimize",
				Usage: "Optimize the index after loading (sqlite backend)",
				Value: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return fmt.Errorf("at least one input file is required")
			}
			return indexFiles(ctx, c.String("config"), c.Args().Slice(), c.Int("batch-size"), c.Bool("optimize"))
		},
	}
}

type optimizer interface {
	Optimize(ctx context.Context) error
}

func indexFiles(ctx context.Context, configPath string, paths []string, batchSize int, optimize bool) error {
	logger := log.ForService("index")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	_, store, err := openListing(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	total := 0
	for _, path := range paths {
		n, err := indexFile(ctx, path, cfg.Identifier, cfg.Backend, batchSize, store)
		total += n
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		logger.Infof("Indexed %d documents from %s", n, path)
	}

	if o, ok := store.(optimizer); ok && optimize {
		if err := o.Optimize(ctx); err != nil {
			return err
		}
	}

	fmt.Printf("Indexed %d documents\n", total)
	return nil
}

func indexFile(ctx context.Context, path, identifier, backend string, batchSize int, indexer search.Indexer) (int, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		r = f
	}

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return 0, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return readDocuments(r, identifier, batchSize, func(docs []search.Document) error {
		if err := indexer.IndexDocuments(ctx, docs); err != nil {
			return err
		}
		metrics.RecordIndexed(backend, len(docs))
		return nil
	})
}

// readDocuments decodes a stream of JSON objects and hands them to flush in
// batches. Objects without an identifier get a random one.
func readDocuments(r io.Reader, identifier string, batchSize int, flush func([]search.Document) error) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if identifier == "" {
		identifier = "id"
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	total := 0
	batch := make([]search.Document, 0, batchSize)
	for {
		var fields map[string]any
		err := dec.Decode(&fields)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("document %d: %w", total+len(batch)+1, err)
		}

		id := ""
		if v, ok := fields[identifier]; ok && v != nil {
			id = fmt.Sprint(v)
		}
		if id == "" {
			id = uuid.New().String()
			fields[identifier] = id
		}
		batch = append(batch, search.Document{ID: id, Fields: fields})

		if len(batch) == batchSize {
			if err := flush(batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = make([]search.Document, 0, batchSize)
		}
	}

	if len(batch) > 0 {
		if err := flush(batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

package cli

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/indexer"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

var (
	ingestPartition string
	ingestOwner     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Index a single document",
	Long: `Chunks, embeds and stores a document. System documents are shared with every
caller; user documents require --owner.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPartition, "partition", string(storage.PartitionSystem), "target partition (system or user)")
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owning user id for the user partition")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return fmt.Errorf("ingest: %w", errNotWired)
	}
	path := args[0]

	partition, err := storage.ParsePartition(ingestPartition)
	if err != nil {
		return err
	}
	if partition == storage.PartitionUser && ingestOwner == "" {
		return errors.New("--owner is required for the user partition")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	req := indexer.IndexRequest{
		Filename:  filepath.Base(path),
		MimeType:  mime.TypeByExtension(filepath.Ext(path)),
		Content:   content,
		Partition: partition,
	}
	if partition == storage.PartitionUser {
		req.OwnerID = ingestOwner
	}

	doc, err := ingestService.IndexDocument(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.Printf("Indexed %s as %s (%d chunks)\n", doc.Filename, doc.ID, doc.ChunkCount)
	return nil
}

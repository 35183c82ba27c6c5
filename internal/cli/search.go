package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/rag"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/storage"
)

var (
	searchPartition string
	searchOwner     string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run retrieval without generating an answer",
	Long: `Runs the hybrid retrieval used by chat: filename keyword matches boost
semantic search results. Prints the ranked evidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchPartition, "partition", string(storage.PartitionSystem), "partition to search (system or user)")
	searchCmd.Flags().StringVar(&searchOwner, "owner", "", "owning user id for the user partition")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the retrieval as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return fmt.Errorf("search: %w", errNotWired)
	}

	partition, err := storage.ParsePartition(searchPartition)
	if err != nil {
		return err
	}
	q := rag.Query{Text: args[0], Partition: partition}
	if partition == storage.PartitionUser {
		q.OwnerID = searchOwner
	}

	retrieval, err := searchService.RetrieveContext(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(retrieval, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(retrieval.Evidence) == 0 {
		cmd.Println(retrieval.ContextText)
		return nil
	}
	for _, item := range retrieval.Evidence {
		marker := ""
		if item.KeywordMatch {
			marker = " [keyword]"
		}
		cmd.Printf("  [%d] %s #%d (%.3f)%s\n", item.Rank, item.Filename, item.ChunkIndex, item.Score, marker)
	}
	return nil
}

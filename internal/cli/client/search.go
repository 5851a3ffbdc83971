package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchChunk is one retrieved rulebook excerpt.
type SearchChunk struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Section    string  `json:"section,omitempty"`
	Subsection string  `json:"subsection,omitempty"`
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Chunks   []SearchChunk `json:"chunks"`
	Reranked bool          `json:"reranked"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the rulebooks",
		Long:  "Runs the retrieval pipeline and prints the matching rulebook excerpts.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, strings.Join(args, " "), outputJSON)
		},
	}

	return cmd
}

func runSearch(cmd *cobra.Command, query string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/search", SearchRequest{Query: query})
	if err != nil {
		return err
	}

	var result SearchResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse search response: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(result.Chunks) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for _, chunk := range result.Chunks {
		location := chunk.Source
		if chunk.Section != "" {
			location += " > " + chunk.Section
		}
		if chunk.Subsection != "" {
			location += " > " + chunk.Subsection
		}
		fmt.Printf("%s (%.2f)\n", location, chunk.Score)
		fmt.Printf("  %s\n\n", chunk.Text)
	}

	return nil
}

package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Character mirrors the character API responses.
type Character struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Concept    string         `json:"concept,omitempty"`
	TrueWill   string         `json:"true_will,omitempty"`
	VoidScore  int            `json:"void_score"`
	Soulcredit int            `json:"soulcredit"`
	Attributes map[string]int `json:"attributes"`
	Skills     map[string]int `json:"skills"`
}

// CharacterListResponse represents the character list API response.
type CharacterListResponse struct {
	Items   []Character `json:"items"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"has_more"`
}

// CharacterCmd creates the character command with its subcommands.
func CharacterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Manage the character registry",
	}

	cmd.AddCommand(characterCreateCmd())
	cmd.AddCommand(characterGetCmd())
	cmd.AddCommand(characterListCmd())
	cmd.AddCommand(characterDeleteCmd())

	return cmd
}

func characterCreateCmd() *cobra.Command {
	var (
		concept    string
		trueWill   string
		attributes []string
		skills     []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrMap, err := parseStatPairs(attributes)
			if err != nil {
				return fmt.Errorf("invalid --attr: %w", err)
			}
			skillMap, err := parseStatPairs(skills)
			if err != nil {
				return fmt.Errorf("invalid --skill: %w", err)
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/characters", map[string]interface{}{
				"name":       args[0],
				"concept":    concept,
				"true_will":  trueWill,
				"attributes": attrMap,
				"skills":     skillMap,
			})
			if err != nil {
				return err
			}

			return printCharacter(cmd, resp.Data)
		},
	}

	cmd.Flags().StringVar(&concept, "concept", "", "Character concept")
	cmd.Flags().StringVar(&trueWill, "true-will", "", "Character's true will")
	cmd.Flags().StringArrayVar(&attributes, "attr", nil, "Attribute as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "Skill as name=value (repeatable)")

	return cmd
}

func characterGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/characters/" + args[0])
			if err != nil {
				return err
			}

			return printCharacter(cmd, resp.Data)
		},
	}

	return cmd
}

func characterListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/characters?limit=%d", limit)
			if cursor != "" {
				path += "&cursor=" + cursor
			}

			resp, err := api.Get(path)
			if err != nil {
				return err
			}

			var list CharacterListResponse
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return fmt.Errorf("failed to parse list response: %w", err)
			}

			if outputJSON {
				data, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(list.Items) == 0 {
				fmt.Println("No characters registered")
				return nil
			}

			for _, c := range list.Items {
				line := fmt.Sprintf("%s  %s", c.ID, c.Name)
				if c.Concept != "" {
					line += "  (" + c.Concept + ")"
				}
				fmt.Println(line)
			}
			if list.HasMore {
				fmt.Printf("\nMore results: --cursor %s\n", list.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")

	return cmd
}

func characterDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete("/characters/" + args[0]); err != nil {
				return err
			}

			fmt.Println("Deleted", args[0])
			return nil
		},
	}

	return cmd
}

func printCharacter(cmd *cobra.Command, data json.RawMessage) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	if outputJSON {
		var pretty map[string]interface{}
		if err := json.Unmarshal(data, &pretty); err != nil {
			return fmt.Errorf("failed to parse character response: %w", err)
		}
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	var c Character
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("failed to parse character response: %w", err)
	}

	fmt.Printf("%s (%s)\n", c.Name, c.ID)
	if c.Concept != "" {
		fmt.Printf("Concept: %s\n", c.Concept)
	}
	if c.TrueWill != "" {
		fmt.Printf("True Will: %s\n", c.TrueWill)
	}
	fmt.Printf("Void: %d  Soulcredit: %d\n", c.VoidScore, c.Soulcredit)
	fmt.Printf("Attributes: %s\n", formatStats(c.Attributes))
	fmt.Printf("Skills: %s\n", formatStats(c.Skills))
	return nil
}

func parseStatPairs(pairs []string) (map[string]int, error) {
	stats := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, raw, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("value for %q is not a number", name)
		}
		stats[name] = value
	}
	return stats, nil
}

func formatStats(stats map[string]int) string {
	if len(stats) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %d", name, stats[name])
	}
	return strings.Join(parts, ", ")
}

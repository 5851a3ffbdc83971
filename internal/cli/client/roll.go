package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// RollCmd creates the roll command with its check/ritual/attack
// subcommands.
func RollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Roll dice directly",
		Long:  "Resolves skill checks, rituals and attacks with the same math the assistant uses.",
	}

	cmd.AddCommand(rollCheckCmd())
	cmd.AddCommand(rollRitualCmd())
	cmd.AddCommand(rollAttackCmd())

	return cmd
}

type rollResult struct {
	Formula      string `json:"formula"`
	Tier         string `json:"tier"`
	Success      bool   `json:"success"`
	Hit          bool   `json:"hit"`
	Damage       int    `json:"damage"`
	VoidGained   int    `json:"void_gained"`
	DefaultsUsed bool   `json:"defaults_used"`
}

func rollCheckCmd() *cobra.Command {
	var (
		character  string
		attribute  string
		skill      string
		difficulty int
		modifier   int
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Roll a skill check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postRoll(cmd, "/roll/check", map[string]interface{}{
				"character":  character,
				"attribute":  attribute,
				"skill":      skill,
				"difficulty": difficulty,
				"modifier":   modifier,
			})
		},
	}

	cmd.Flags().StringVar(&character, "character", "", "Character name (ruleset defaults when omitted)")
	cmd.Flags().StringVar(&attribute, "attribute", "", "Attribute to roll")
	cmd.Flags().StringVar(&skill, "skill", "", "Skill to roll")
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "Difficulty to beat")
	cmd.Flags().IntVar(&modifier, "modifier", 0, "Situational modifier")
	cobra.CheckErr(cmd.MarkFlagRequired("attribute"))
	cobra.CheckErr(cmd.MarkFlagRequired("skill"))
	cobra.CheckErr(cmd.MarkFlagRequired("difficulty"))

	return cmd
}

func rollRitualCmd() *cobra.Command {
	var (
		character  string
		ritual     string
		difficulty int
		offering   bool
	)

	cmd := &cobra.Command{
		Use:   "ritual",
		Short: "Perform a ritual working",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postRoll(cmd, "/roll/ritual", map[string]interface{}{
				"character":  character,
				"ritual":     ritual,
				"difficulty": difficulty,
				"offering":   offering,
			})
		},
	}

	cmd.Flags().StringVar(&character, "character", "", "Character name")
	cmd.Flags().StringVar(&ritual, "ritual", "", "Ritual being performed")
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "Difficulty to beat")
	cmd.Flags().BoolVar(&offering, "offering", false, "Make an offering")
	cobra.CheckErr(cmd.MarkFlagRequired("difficulty"))

	return cmd
}

func rollAttackCmd() *cobra.Command {
	var (
		attacker     string
		skill        string
		defense      int
		weaponDamage int
		soak         int
	)

	cmd := &cobra.Command{
		Use:   "attack",
		Short: "Resolve an attack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postRoll(cmd, "/roll/attack", map[string]interface{}{
				"attacker":      attacker,
				"skill":         skill,
				"defense":       defense,
				"weapon_damage": weaponDamage,
				"soak":          soak,
			})
		},
	}

	cmd.Flags().StringVar(&attacker, "attacker", "", "Attacking character name")
	cmd.Flags().StringVar(&skill, "skill", "", "Weapon skill")
	cmd.Flags().IntVar(&defense, "defense", 0, "Defender's defense value")
	cmd.Flags().IntVar(&weaponDamage, "weapon-damage", 0, "Weapon damage bonus")
	cmd.Flags().IntVar(&soak, "soak", 0, "Defender's soak value")
	cobra.CheckErr(cmd.MarkFlagRequired("skill"))
	cobra.CheckErr(cmd.MarkFlagRequired("defense"))

	return cmd
}

func postRoll(cmd *cobra.Command, path string, body map[string]interface{}) error {
	outputJSON, _ := cmd.Flags().GetBool("output")

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(path, body)
	if err != nil {
		return err
	}

	if outputJSON {
		var pretty map[string]interface{}
		if err := json.Unmarshal(resp.Data, &pretty); err != nil {
			return fmt.Errorf("failed to parse roll response: %w", err)
		}
		data, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	var result rollResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse roll response: %w", err)
	}

	fmt.Printf("%s (%s)\n", result.Formula, result.Tier)
	if result.Damage > 0 {
		fmt.Printf("Damage: %d\n", result.Damage)
	}
	if result.VoidGained > 0 {
		fmt.Printf("Void gained: %d\n", result.VoidGained)
	}
	if result.DefaultsUsed {
		fmt.Println("(unknown character or stat: ruleset defaults were used)")
	}
	return nil
}

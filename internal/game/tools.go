package game

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/aeonisk/arbiter/internal/domain"
)

// Tool names exposed to the chat model.
const (
	ToolRollSkillCheck  = "roll_skill_check"
	ToolPerformRitual   = "perform_ritual"
	ToolResolveAttack   = "resolve_attack"
	ToolSearchRules     = "search_rules"
	ToolModifyCharacter = "modify_character"
)

// CharacterStore is the slice of the registry the toolkit needs.
type CharacterStore interface {
	GetCharacterByName(ctx context.Context, name string) (*domain.Character, error)
	UpdateCharacter(ctx context.Context, character *domain.Character) error
}

// RulesSearcher answers search_rules calls against the content index.
type RulesSearcher interface {
	SearchRules(ctx context.Context, query string, limit int) ([]domain.ContentChunk, error)
}

// Toolkit dispatches model tool calls to the game mechanics. Character
// lookups that miss fall back to ruleset defaults for dice tools and are a
// hard error only for modify_character.
type Toolkit struct {
	characters CharacterStore
	rules      RulesSearcher
	roller     Roller
}

func NewToolkit(characters CharacterStore, rules RulesSearcher, roller Roller) *Toolkit {
	if roller == nil {
		roller = RandomRoller{}
	}
	return &Toolkit{characters: characters, rules: rules, roller: roller}
}

var toolDefinitions = lo.Map([]*openai.FunctionDefinition{
	{
		Name:        ToolRollSkillCheck,
		Description: "Roll a YAGS skill check: attribute × skill + d20 + modifier against a difficulty.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"character": {
					Type:        jsonschema.String,
					Description: "Name of the acting character.",
				},
				"attribute": {
					Type:        jsonschema.String,
					Description: "Attribute to use, e.g. strength, agility, will.",
				},
				"skill": {
					Type:        jsonschema.String,
					Description: "Skill to use, e.g. brawl, stealth, astral lore.",
				},
				"difficulty": {
					Type:        jsonschema.Integer,
					Description: "Target number the total must meet or beat.",
				},
				"modifier": {
					Type:        jsonschema.Integer,
					Description: "Situational bonus or penalty, may be negative.",
				},
			},
			Required: []string{"character", "attribute", "skill", "difficulty"},
		},
	},
	{
		Name:        ToolPerformRitual,
		Description: "Resolve a ritual working: will × ritual skill + d20, offering bonus, minus void score. Failing without an offering raises void.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"character": {
					Type:        jsonschema.String,
					Description: "Name of the ritualist.",
				},
				"ritual": {
					Type:        jsonschema.String,
					Description: "Name or short description of the ritual being worked.",
				},
				"difficulty": {
					Type:        jsonschema.Integer,
					Description: "Target number for the working.",
				},
				"offering": {
					Type:        jsonschema.Boolean,
					Description: "Whether a proper offering was made.",
				},
			},
			Required: []string{"character", "ritual", "difficulty"},
		},
	},
	{
		Name:        ToolResolveAttack,
		Description: "Resolve one attack: agility × weapon skill + d20 against the target's defense. On a hit, damage = strength + weapon damage - soak.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"attacker": {
					Type:        jsonschema.String,
					Description: "Name of the attacking character.",
				},
				"skill": {
					Type:        jsonschema.String,
					Description: "Weapon skill used for the attack, e.g. brawl, melee, guns.",
				},
				"defense": {
					Type:        jsonschema.Integer,
					Description: "Target's defense value.",
				},
				"weapon_damage": {
					Type:        jsonschema.Integer,
					Description: "Flat damage rating of the weapon.",
				},
				"soak": {
					Type:        jsonschema.Integer,
					Description: "Target's soak from armor and toughness.",
				},
			},
			Required: []string{"attacker", "skill", "defense"},
		},
	},
	{
		Name:        ToolSearchRules,
		Description: "Search the Aeonisk rulebooks for passages matching a query. Use when unsure about a rule, ritual, or setting fact.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "What to look up in the rulebooks.",
				},
				"limit": {
					Type:        jsonschema.Integer,
					Description: "Maximum number of passages to return, default 3.",
				},
			},
			Required: []string{"query"},
		},
	},
	{
		Name:        ToolModifyCharacter,
		Description: "Apply a change to a registered character: adjust void score, soulcredit, an attribute, or a skill.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"character": {
					Type:        jsonschema.String,
					Description: "Name of the character to modify.",
				},
				"field": {
					Type:        jsonschema.String,
					Description: "One of: void_score, soulcredit, attribute, skill.",
					Enum:        []string{"void_score", "soulcredit", "attribute", "skill"},
				},
				"name": {
					Type:        jsonschema.String,
					Description: "Attribute or skill name, required when field is attribute or skill.",
				},
				"delta": {
					Type:        jsonschema.Integer,
					Description: "Signed amount to add to the current value.",
				},
			},
			Required: []string{"character", "field", "delta"},
		},
	},
}, func(item *openai.FunctionDefinition, _ int) openai.Tool {
	return openai.Tool{
		Type:     openai.ToolTypeFunction,
		Function: item,
	}
})

// Definitions returns the tool schemas to advertise on chat requests.
func (t *Toolkit) Definitions() []openai.Tool {
	return toolDefinitions
}

// Execute runs one tool call and returns its JSON-encoded result. An
// unrecognized tool name is a hard error; a known tool with a missing
// character resolves with ruleset defaults instead.
func (t *Toolkit) Execute(ctx context.Context, call openai.ToolCall) (string, error) {
	if call.Function.Name == "" {
		return "", domain.ErrUnknownTool
	}

	log.Debug().Str("tool", call.Function.Name).Msg("executing tool call")

	var (
		result any
		err    error
	)
	switch call.Function.Name {
	case ToolRollSkillCheck:
		result, err = t.rollSkillCheck(ctx, call.Function.Arguments)
	case ToolPerformRitual:
		result, err = t.performRitual(ctx, call.Function.Arguments)
	case ToolResolveAttack:
		result, err = t.resolveAttack(ctx, call.Function.Arguments)
	case ToolSearchRules:
		result, err = t.searchRules(ctx, call.Function.Arguments)
	case ToolModifyCharacter:
		result, err = t.modifyCharacter(ctx, call.Function.Arguments)
	default:
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "unknown tool "+call.Function.Name, domain.ErrUnknownTool)
	}
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "encoding tool result", err)
	}
	return string(encoded), nil
}

func (t *Toolkit) rollSkillCheck(ctx context.Context, arguments string) (any, error) {
	var req SkillCheckRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return nil, err
	}
	character := t.lookupCharacter(ctx, req.Character)
	return RollSkillCheck(character, req, t.roller), nil
}

func (t *Toolkit) performRitual(ctx context.Context, arguments string) (any, error) {
	var req RitualRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return nil, err
	}
	character := t.lookupCharacter(ctx, req.Character)
	result := PerformRitual(character, req, t.roller)

	if result.VoidGained > 0 && character != nil {
		character.VoidScore += result.VoidGained
		if err := t.characters.UpdateCharacter(ctx, character); err != nil {
			log.Warn().Err(err).Str("character", character.Name).Msg("persisting void gain")
		}
	}
	return result, nil
}

func (t *Toolkit) resolveAttack(ctx context.Context, arguments string) (any, error) {
	var req AttackRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return nil, err
	}
	character := t.lookupCharacter(ctx, req.Attacker)
	return ResolveAttack(character, req, t.roller), nil
}

type searchRulesArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type rulesPassage struct {
	Source  string `json:"source"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

func (t *Toolkit) searchRules(ctx context.Context, arguments string) (any, error) {
	var args searchRulesArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if args.Limit <= 0 {
		args.Limit = 3
	}

	chunks, err := t.rules.SearchRules(ctx, args.Query, args.Limit)
	if err != nil {
		return nil, err
	}
	passages := lo.Map(chunks, func(chunk domain.ContentChunk, _ int) rulesPassage {
		return rulesPassage{
			Source:  chunk.Metadata.Source,
			Section: chunk.Metadata.Section,
			Text:    chunk.Text,
		}
	})
	return map[string]any{"query": args.Query, "passages": passages}, nil
}

type modifyCharacterArgs struct {
	Character string `json:"character"`
	Field     string `json:"field"`
	Name      string `json:"name,omitempty"`
	Delta     int    `json:"delta"`
}

func (t *Toolkit) modifyCharacter(ctx context.Context, arguments string) (any, error) {
	var args modifyCharacterArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}

	character, err := t.characters.GetCharacterByName(ctx, args.Character)
	if err != nil {
		return nil, err
	}

	var before, after int
	switch args.Field {
	case "void_score":
		before = character.VoidScore
		character.VoidScore += args.Delta
		if character.VoidScore < 0 {
			character.VoidScore = 0
		}
		after = character.VoidScore
	case "soulcredit":
		before = character.Soulcredit
		character.Soulcredit += args.Delta
		after = character.Soulcredit
	case "attribute":
		if args.Name == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "attribute name is required")
		}
		before, _ = character.Attribute(args.Name)
		if character.Attributes == nil {
			character.Attributes = map[string]int{}
		}
		character.Attributes[strings.ToLower(args.Name)] = before + args.Delta
		after = before + args.Delta
	case "skill":
		if args.Name == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "skill name is required")
		}
		before, _ = character.Skill(args.Name)
		if character.Skills == nil {
			character.Skills = map[string]int{}
		}
		character.Skills[strings.ToLower(args.Name)] = before + args.Delta
		after = before + args.Delta
	default:
		return nil, domain.Errorf(domain.ErrCodeValidation, "unknown field %q", args.Field)
	}

	if err := character.Validate(); err != nil {
		return nil, err
	}
	if err := t.characters.UpdateCharacter(ctx, character); err != nil {
		return nil, err
	}

	return map[string]any{
		"character": character.Name,
		"field":     args.Field,
		"name":      args.Name,
		"before":    before,
		"after":     after,
	}, nil
}

// lookupCharacter resolves a name to a registered character, or nil when
// the registry has no match. Dice tools treat nil as "use defaults".
func (t *Toolkit) lookupCharacter(ctx context.Context, name string) *domain.Character {
	if t.characters == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	character, err := t.characters.GetCharacterByName(ctx, name)
	if err != nil {
		log.Debug().Str("character", name).Msg("character not registered, using defaults")
		return nil
	}
	return character
}

func decodeArguments(arguments string, v any) error {
	if err := json.Unmarshal([]byte(arguments), v); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeParse, "tool arguments did not match schema", err)
	}
	return nil
}

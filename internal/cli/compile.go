package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"

	"sheetforge/internal/app"
	"sheetforge/internal/stats"
	"sheetforge/internal/types"
)

type compileOptions struct {
	Select   []string
	Unselect []string
	Write    bool
	Format   string
}

// sheet is the printed form of a compiled character.
type sheet struct {
	Name              string                `json:"name" yaml:"name"`
	Level             int                   `json:"level" yaml:"level"`
	ProficiencyBonus  int                   `json:"proficiency_bonus" yaml:"proficiency_bonus"`
	Abilities         map[types.Ability]int `json:"abilities" yaml:"abilities"`
	ArmorClass        int                   `json:"armor_class" yaml:"armor_class"`
	MaxHitPoints      int                   `json:"max_hit_points" yaml:"max_hit_points"`
	Initiative        int                   `json:"initiative" yaml:"initiative"`
	PassivePerception int                   `json:"passive_perception" yaml:"passive_perception"`
	Speed             int                   `json:"speed" yaml:"speed"`
	Skills            map[types.Skill]int   `json:"skills,omitempty" yaml:"skills,omitempty"`
	Features          []string              `json:"features,omitempty" yaml:"features,omitempty"`
	Resistances       []string              `json:"resistances,omitempty" yaml:"resistances,omitempty"`
	Derived           stats.Derived         `json:"derived" yaml:"derived"`
}

func newCompileCommand() *cobra.Command {
	opts := compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <character.yaml>",
		Short: "Compile a character sheet against installed content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "Selection path=value to record (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Unselect, "unselect", nil, "Selection path to clear (repeatable)")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "Save selection edits back to the character file")
	cmd.Flags().StringVar(&opts.Format, "format", "yaml", "Output format (yaml or json)")
	return cmd
}

func runCompile(ctx context.Context, cmd *cobra.Command, path string, opts compileOptions) error {
	selections, err := parseSelections(opts.Select)
	if err != nil {
		return err
	}
	service, closeFn, err := newAppService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := service.Compile(ctx, app.CompileRequest{
		CharacterPath: path,
		Select:        selections,
		Unselect:      opts.Unselect,
		Write:         opts.Write,
	})
	if err != nil {
		return err
	}
	if err := writeFormatted(stdout(cmd), opts.Format, newSheet(result)); err != nil {
		return err
	}
	app.EmitHints(result.Hints)
	return nil
}

func parseSelections(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, value := range values {
		path, choice, ok := strings.Cut(value, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("selection %q must be path=value", value))
		}
		out[path] = strings.TrimSpace(choice)
	}
	return out, nil
}

func newSheet(result app.CompileResult) sheet {
	derived := result.Derived
	out := sheet{
		Name:              result.Character.Name,
		Level:             derived.Level,
		ProficiencyBonus:  derived.ProficiencyBonus,
		Abilities:         map[types.Ability]int{},
		ArmorClass:        derived.ArmorClass(),
		MaxHitPoints:      derived.MaxHitPoints(),
		Initiative:        derived.Initiative(),
		PassivePerception: derived.PassivePerception(),
		Speed:             derived.Speed("walk"),
		Skills:            map[types.Skill]int{},
		Resistances:       derived.ResistanceNames(),
		Derived:           derived,
	}
	for _, ability := range types.Abilities {
		out.Abilities[ability] = derived.Score(ability)
	}
	for skill := range derived.Skills {
		out.Skills[skill] = derived.SkillBonus(skill)
	}
	for _, feature := range derived.Features {
		out.Features = append(out.Features, feature.Name)
	}
	return out
}

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/threedaro/ptdetail/pkg/settings"
)

// settingsCommand creates the settings command group.
func (c *CLI) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or edit per-document import settings",
		Long: `Show or edit per-document import settings.

Each document keeps its own settings: the families to place, the grouping
tolerances, and the feature toggles. Settings live in the ptdetail config
directory as one TOML file per document.`,
	}
	cmd.AddCommand(c.settingsShowCommand())
	cmd.AddCommand(c.settingsEditCommand())
	return cmd
}

func (c *CLI) settingsShowCommand() *cobra.Command {
	var docKey string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a document's settings as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.loadSettings(docKey)
			if err != nil {
				return err
			}
			return toml.NewEncoder(os.Stdout).Encode(st)
		},
	}
	cmd.Flags().StringVar(&docKey, "doc", "", "document key (required)")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func (c *CLI) settingsEditCommand() *cobra.Command {
	var docKey string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Interactively edit a document's settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			st, err := store.Load(docKey)
			if err != nil {
				return err
			}
			if err := editSettings(st); err != nil {
				if err == terminal.InterruptErr {
					printWarning("Edit canceled, nothing saved.")
					return nil
				}
				return err
			}
			if err := store.Save(docKey, st); err != nil {
				return err
			}
			printSuccess("Settings saved for %s", docKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&docKey, "doc", "", "document key (required)")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

// editSettings walks the user through the editable fields, current values
// as defaults.
func editSettings(st *settings.Settings) error {
	families := []struct {
		label string
		dst   *string
	}{
		{"Tendon family", &st.TendonFamily},
		{"Leader family", &st.LeaderFamily},
		{"Drape family", &st.DrapeFamily},
		{"Tendon tag family", &st.TagFamily},
	}
	for _, f := range families {
		if err := survey.AskOne(&survey.Input{Message: f.label + ":", Default: *f.dst}, f.dst); err != nil {
			return err
		}
	}

	toggles := []struct {
		label string
		dst   *bool
	}{
		{"Group similar tendons", &st.GroupSimilarTendons},
		{"Create detail group", &st.CreateDetailGroup},
		{"Tag strand counts", &st.TagStrands},
		{"Place drape marks", &st.TagDrapes},
		{"Include drape marks at tendon ends", &st.TagDrapeEnds},
		{"Snap endpoints to the outline", &st.AutoSnapEnds},
	}
	for _, t := range toggles {
		if err := survey.AskOne(&survey.Confirm{Message: t.label + "?", Default: *t.dst}, t.dst); err != nil {
			return err
		}
	}

	tolerances := []struct {
		label string
		dst   *float64
	}{
		{"Grouping angle tolerance (deg)", &st.GroupAngleTol},
		{"Grouping length tolerance (mm)", &st.GroupLengthTol},
		{"Grouping spacing tolerance (mm)", &st.GroupSpacingTol},
		{"Grouping shift tolerance (mm)", &st.GroupShiftTol},
		{"Drape distance tolerance (mm)", &st.GroupDrapeDistanceTol},
		{"Drape height tolerance (mm)", &st.GroupDrapeHeightTol},
		{"Pan stressed end offset (mm)", &st.PanStressedEndOffset},
		{"Endpoint snap tolerance (mm)", &st.AutoSnapTolerance},
	}
	for _, tol := range tolerances {
		var answer string
		err := survey.AskOne(&survey.Input{
			Message: tol.label + ":",
			Default: strconv.FormatFloat(*tol.dst, 'f', -1, 64),
		}, &answer, survey.WithValidator(floatValidator))
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return err
		}
		*tol.dst = v
	}

	return st.Validate()
}

// floatValidator rejects answers that do not parse as a number.
func floatValidator(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return fmt.Errorf("expected a string answer")
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	return nil
}

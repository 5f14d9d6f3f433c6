package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/host/memdoc"
	"github.com/threedaro/ptdetail/pkg/pipeline"
	"github.com/threedaro/ptdetail/pkg/settings"
)

// importCommand creates the import command, the main entry point.
func (c *CLI) importCommand() *cobra.Command {
	var (
		boundaryPath  string
		docKey        string
		familyDir     string
		reportPath    string
		groupName     string
		noSnap        bool
		noGroup       bool
		noDetailGroup bool
		noDrapes      bool
		noTags        bool
		noInput       bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.ptd]",
		Short: "Import a PTD tendon export onto a slab outline",
		Long: `Import a PTD tendon export onto a slab outline.

The import parses the PTD file, fits the tendon batch onto the slab
boundary, snaps endpoints onto the outline, groups similar tendons, and
places tendon, leader, drape and strand tag elements. Everything commits
in one transaction, followed by a detail group in a second one, so a
failed import leaves the document untouched.

When automatic alignment cannot find an acceptable fit, the command asks
for two point correspondences unless --no-input is set.

Per-document settings (families, tolerances, toggles) come from the
settings store; see 'ptdetail settings'. The flags below override the
stored toggles for a single run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := docKey
			if key == "" {
				key = filepath.Base(boundaryPath)
			}
			return c.runImport(cmd.Context(), importParams{
				ptdPath:       args[0],
				boundaryPath:  boundaryPath,
				docKey:        key,
				familyDir:     familyDir,
				reportPath:    reportPath,
				groupName:     groupName,
				noSnap:        noSnap,
				noGroup:       noGroup,
				noDetailGroup: noDetailGroup,
				noDrapes:      noDrapes,
				noTags:        noTags,
				noInput:       noInput,
			})
		},
	}

	cmd.Flags().StringVarP(&boundaryPath, "boundary", "b", "", "slab outline GeoJSON file (required)")
	cmd.Flags().StringVar(&docKey, "doc", "", "document key for settings lookup (default: boundary file name)")
	cmd.Flags().StringVar(&familyDir, "family-dir", "", "directory with additional family files")
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "write a JSON import report to this file")
	cmd.Flags().StringVar(&groupName, "group-name", "", "detail group name (default: "+pipeline.DefaultDetailGroupName+")")
	cmd.Flags().BoolVar(&noSnap, "no-snap", false, "do not snap endpoints onto the boundary")
	cmd.Flags().BoolVar(&noGroup, "no-group", false, "do not group similar tendons")
	cmd.Flags().BoolVar(&noDetailGroup, "no-detail-group", false, "do not create a detail group")
	cmd.Flags().BoolVar(&noDrapes, "no-drapes", false, "do not place drape height marks")
	cmd.Flags().BoolVar(&noTags, "no-tags", false, "do not place strand tags")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "never prompt; fail instead of asking for manual alignment")
	_ = cmd.MarkFlagRequired("boundary")

	return cmd
}

type importParams struct {
	ptdPath      string
	boundaryPath string
	docKey       string
	familyDir    string
	reportPath   string
	groupName    string

	noSnap        bool
	noGroup       bool
	noDetailGroup bool
	noDrapes      bool
	noTags        bool
	noInput       bool
}

// runImport loads the boundary and settings, builds the document, and runs
// the pipeline.
func (c *CLI) runImport(ctx context.Context, p importParams) error {
	boundary, err := geom.LoadGeoJSON(p.boundaryPath)
	if err != nil {
		return err
	}

	st, err := c.loadSettings(p.docKey)
	if err != nil {
		return err
	}
	applyOverrides(st, p)

	docOpts := []memdoc.Option{
		memdoc.WithFamily(st.TendonFamily, host.CategoryTendon),
		memdoc.WithFamily(st.LeaderFamily, host.CategoryLeader),
		memdoc.WithFamily(st.DrapeFamily, host.CategoryDrape),
		memdoc.WithFamily(st.TagFamily, host.CategoryTag),
	}
	if p.familyDir != "" {
		docOpts = append(docOpts, memdoc.WithFamilyDir(p.familyDir))
	}
	doc := memdoc.New(p.docKey, boundary, docOpts...)

	opts := pipeline.Options{
		PTDPath:         p.ptdPath,
		DetailGroupName: p.groupName,
		Settings:        st,
		Logger:          c.Logger,
	}
	if !p.noInput {
		opts.Manual = &surveyAligner{}
	}

	prog := newProgress(c.Logger)
	result, err := c.newRunner().Execute(ctx, doc, opts)
	if err != nil {
		printError("Import failed: %s", errors.UserMessage(err))
		return err
	}
	prog.done(fmt.Sprintf("Placed %d tendons", result.Stats.TendonCount))

	printImportSummary(result, st)

	if p.reportPath != "" {
		if err := writeReport(p.reportPath, p.docKey, result); err != nil {
			return err
		}
		printFile(p.reportPath)
	}
	return nil
}

// loadSettings reads the document's settings from the store, falling back
// to defaults when no store is available.
func (c *CLI) loadSettings(docKey string) (*settings.Settings, error) {
	store, err := newStore()
	if err != nil {
		c.Logger.Warn("settings store unavailable, using defaults", "error", err)
		return settings.Defaults(), nil
	}
	return store.Load(docKey)
}

// applyOverrides maps the one-shot CLI flags onto the stored settings.
func applyOverrides(st *settings.Settings, p importParams) {
	if p.noSnap {
		st.AutoSnapEnds = false
	}
	if p.noGroup {
		st.GroupSimilarTendons = false
	}
	if p.noDetailGroup {
		st.CreateDetailGroup = false
	}
	if p.noDrapes {
		st.TagDrapes = false
	}
	if p.noTags {
		st.TagStrands = false
	}
}

// printImportSummary prints the human-readable result block.
func printImportSummary(result *pipeline.Result, st *settings.Settings) {
	how := "auto"
	if result.ManualAligned {
		how = "manual"
	}
	printSuccess("Import complete")
	printDetail("%d tendons in %d groups", result.Stats.TendonCount, result.Stats.GroupCount)
	printDetail("aligned %s, residual %.1fmm, rotation %.1f°",
		how, result.Residual, geom.Degrees(result.Transform.Angle))
	if st.AutoSnapEnds {
		printDetail("%d endpoints snapped to the outline", result.Stats.SnappedEnds)
	}
	printDetail("%d elements: %d leaders, %d drape marks, %d tags",
		result.Stats.ElementCount, result.Stats.LeaderCount,
		result.Stats.DrapeCount, result.Stats.TagCount)
	if result.DetailGroup != (host.Handle{}) {
		printDetail("detail group %s", result.DetailGroup)
	}
}

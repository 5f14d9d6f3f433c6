// Package settings holds the per-document import configuration: family
// names, tolerances, and feature toggles. Settings persist as TOML files
// keyed by document, so every drawing keeps its own tuning.
package settings

import (
	"github.com/threedaro/ptdetail/pkg/errors"
	"github.com/threedaro/ptdetail/pkg/group"
)

// Settings is the complete import configuration for one document.
// Distances are millimetres, angles degrees.
type Settings struct {
	// Families placed by the import.
	TendonFamily string `toml:"tendon_family"`
	LeaderFamily string `toml:"leader_family"`
	DrapeFamily  string `toml:"drape_family"`
	TagFamily    string `toml:"tendon_tag_family"`

	// Feature toggles.
	GroupSimilarTendons bool `toml:"group_similar_tendons"`
	CreateDetailGroup   bool `toml:"create_detail_group"`
	TagStrands          bool `toml:"tag_strands"`
	TagDrapes           bool `toml:"tag_drapes"`
	TagDrapeEnds        bool `toml:"tag_drape_ends"`
	AutoSnapEnds        bool `toml:"auto_snap_ends"`

	// Grouping tolerances.
	GroupAngleTol         float64 `toml:"group_angle_tol_deg"`
	GroupLengthTol        float64 `toml:"group_length_tol_mm"`
	GroupSpacingTol       float64 `toml:"group_spacing_tol_mm"`
	GroupShiftTol         float64 `toml:"group_shift_tol_mm"`
	GroupDrapeDistanceTol float64 `toml:"group_drape_distance_tol_mm"`
	GroupDrapeHeightTol   float64 `toml:"group_drape_height_tol_mm"`

	// Placement distances.
	PanStressedEndOffset float64 `toml:"pan_stressed_end_offset_mm"`
	AutoSnapTolerance    float64 `toml:"auto_snap_tolerance_mm"`
}

// Defaults returns the factory settings.
func Defaults() *Settings {
	return &Settings{
		TendonFamily: "3Daro_PT_Tendon_Plan_001.rfa",
		LeaderFamily: "3Daro_PT_Leader_001.rfa",
		DrapeFamily:  "3Daro_PT_Drape_001.rfa",
		TagFamily:    "3Daro_PT_Tendon_Tag_001.rfa",

		GroupSimilarTendons: true,
		CreateDetailGroup:   true,
		TagStrands:          true,
		TagDrapes:           true,
		TagDrapeEnds:        false,
		AutoSnapEnds:        true,

		GroupAngleTol:         5,
		GroupLengthTol:        200,
		GroupSpacingTol:       1500,
		GroupShiftTol:         600,
		GroupDrapeDistanceTol: 200,
		GroupDrapeHeightTol:   5,

		PanStressedEndOffset: 1000,
		AutoSnapTolerance:    50,
	}
}

// Validate checks the settings for values the pipeline cannot work with.
func (s *Settings) Validate() error {
	for _, fam := range []struct {
		key  string
		name string
	}{
		{"tendon_family", s.TendonFamily},
		{"leader_family", s.LeaderFamily},
		{"drape_family", s.DrapeFamily},
		{"tendon_tag_family", s.TagFamily},
	} {
		if err := errors.ValidateFamilyName(fam.name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSettings, err, "invalid %s", fam.key)
		}
	}

	for _, tol := range []struct {
		key   string
		value float64
	}{
		{"group_angle_tol_deg", s.GroupAngleTol},
		{"group_length_tol_mm", s.GroupLengthTol},
		{"group_spacing_tol_mm", s.GroupSpacingTol},
		{"group_shift_tol_mm", s.GroupShiftTol},
		{"group_drape_distance_tol_mm", s.GroupDrapeDistanceTol},
		{"group_drape_height_tol_mm", s.GroupDrapeHeightTol},
		{"pan_stressed_end_offset_mm", s.PanStressedEndOffset},
		{"auto_snap_tolerance_mm", s.AutoSnapTolerance},
	} {
		if tol.value < 0 {
			return errors.New(errors.ErrCodeInvalidSettings,
				"%s must not be negative, got %v", tol.key, tol.value)
		}
	}
	if s.GroupAngleTol > 90 {
		return errors.New(errors.ErrCodeInvalidSettings,
			"group_angle_tol_deg must be at most 90, got %v", s.GroupAngleTol)
	}
	return nil
}

// GroupTolerances converts the settings into grouping tolerances.
func (s *Settings) GroupTolerances() group.Tolerances {
	return group.Tolerances{
		Angle:         s.GroupAngleTol,
		Length:        s.GroupLengthTol,
		Spacing:       s.GroupSpacingTol,
		Shift:         s.GroupShiftTol,
		DrapeDistance: s.GroupDrapeDistanceTol,
		DrapeHeight:   s.GroupDrapeHeightTol,
	}
}

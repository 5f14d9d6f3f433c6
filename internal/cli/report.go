package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/threedaro/ptdetail/pkg/geom"
	"github.com/threedaro/ptdetail/pkg/host"
	"github.com/threedaro/ptdetail/pkg/pipeline"
)

// importReport is the JSON document written by --report.
type importReport struct {
	Document  string    `json:"document"`
	Timestamp time.Time `json:"timestamp"`

	TendonCount  int     `json:"tendon_count"`
	GroupCount   int     `json:"group_count"`
	SnappedEnds  int     `json:"snapped_ends"`
	ElementCount int     `json:"element_count"`
	LeaderCount  int     `json:"leader_count"`
	DrapeCount   int     `json:"drape_count"`
	TagCount     int     `json:"tag_count"`
	DetailGroup  string  `json:"detail_group,omitempty"`
	Manual       bool    `json:"manual_alignment"`
	ResidualMM   float64 `json:"residual_mm"`
	RotationDeg  float64 `json:"rotation_deg"`

	Durations map[string]string `json:"durations"`
}

// writeReport writes the import report as indented JSON.
func writeReport(path, docKey string, result *pipeline.Result) error {
	rep := importReport{
		Document:     docKey,
		Timestamp:    time.Now().UTC(),
		TendonCount:  result.Stats.TendonCount,
		GroupCount:   result.Stats.GroupCount,
		SnappedEnds:  result.Stats.SnappedEnds,
		ElementCount: result.Stats.ElementCount,
		LeaderCount:  result.Stats.LeaderCount,
		DrapeCount:   result.Stats.DrapeCount,
		TagCount:     result.Stats.TagCount,
		Manual:       result.ManualAligned,
		ResidualMM:   result.Residual,
		RotationDeg:  geom.Degrees(result.Transform.Angle),
		Durations: map[string]string{
			"parse":  result.Stats.ParseTime.String(),
			"align":  result.Stats.AlignTime.String(),
			"snap":   result.Stats.SnapTime.String(),
			"group":  result.Stats.GroupTime.String(),
			"create": result.Stats.CreateTime.String(),
		},
	}
	if result.DetailGroup != (host.Handle{}) {
		rep.DetailGroup = result.DetailGroup.String()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return f.Close()
}

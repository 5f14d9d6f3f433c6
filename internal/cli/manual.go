package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/paulmach/orb"

	"github.com/threedaro/ptdetail/pkg/pipeline"
)

// surveyAligner asks the user for two point correspondences on the
// terminal. It implements pipeline.ManualAligner.
type surveyAligner struct{}

// PickPoints prompts for two batch points and their intended positions.
func (s *surveyAligner) PickPoints(ctx context.Context) (pipeline.PointMapping, pipeline.PointMapping, error) {
	var a, b pipeline.PointMapping

	printWarning("Automatic alignment failed; pick two reference points.")
	printDetail("Enter coordinates as x,y in millimetres.")

	prompts := []struct {
		label string
		dst   *orb.Point
	}{
		{"First batch point (from the PTD export)", &a.From},
		{"Where it belongs on the outline", &a.To},
		{"Second batch point", &b.From},
		{"Where it belongs on the outline", &b.To},
	}
	for _, p := range prompts {
		if err := ctx.Err(); err != nil {
			return a, b, err
		}
		var answer string
		err := survey.AskOne(&survey.Input{Message: p.label + ":"}, &answer,
			survey.WithValidator(pointValidator))
		if err == terminal.InterruptErr {
			return a, b, fmt.Errorf("alignment canceled")
		}
		if err != nil {
			return a, b, err
		}
		pt, err := parsePoint(answer)
		if err != nil {
			return a, b, err
		}
		*p.dst = pt
	}
	return a, b, nil
}

// pointValidator rejects answers that do not parse as a point.
func pointValidator(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return fmt.Errorf("expected a string answer")
	}
	_, err := parsePoint(s)
	return err
}

// parsePoint parses "x,y" into a point.
func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("expected x,y got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid x coordinate %q", parts[0])
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid y coordinate %q", parts[1])
	}
	return orb.Point{x, y}, nil
}

package main

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/spf13/cobra"

	"github.com/philipparndt/stp2stl/pkg/analysis"
	"github.com/philipparndt/stp2stl/pkg/stl"
)

var (
	triCount    int
	triLargest  bool
	triSmallest bool
	triWorst    bool
)

type triangleInfo struct {
	Index     int
	Area      float64
	Perimeter float64
	// Ratio is the circumradius over the shortest edge; 1/√3 for an
	// equilateral triangle, large for slivers
	Ratio    float64
	Vertices string
}

var trianglesCmd = &cobra.Command{
	Use:   "triangles [file]",
	Short: "Analyze triangles in an STL file",
	Long:  "Display information about triangles including area, perimeter, shape quality and vertex positions.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriangles,
}

func init() {
	rootCmd.AddCommand(trianglesCmd)

	trianglesCmd.Flags().IntVarP(&triCount, "count", "n", 10, "Number of triangles to display")
	trianglesCmd.Flags().BoolVarP(&triLargest, "largest", "l", false, "Show largest triangles by area")
	trianglesCmd.Flags().BoolVarP(&triSmallest, "smallest", "s", false, "Show smallest triangles by area")
	trianglesCmd.Flags().BoolVar(&triWorst, "worst", false, "Show the most sliver-like triangles")
	trianglesCmd.MarkFlagsMutuallyExclusive("largest", "smallest", "worst")
}

func runTriangles(cmd *cobra.Command, args []string) error {
	filename := args[0]

	model, err := stl.Parse(filename)
	if err != nil {
		return fmt.Errorf("failed to parse STL file: %w", err)
	}
	if model.IsEmpty() {
		return stl.ErrEmptyMesh
	}

	triangles := make([]triangleInfo, 0, model.TriangleCount())
	totalArea := 0.0
	minArea := math.MaxFloat64
	maxArea := 0.0

	for i := range model.Triangles {
		tri := model.Facet(i)
		area := tri.Area()
		edges := tri.EdgeLengths()

		triangles = append(triangles, triangleInfo{
			Index:     i,
			Area:      area,
			Perimeter: tri.Perimeter(),
			Ratio:     tri.Circumradius() / min(edges[0], edges[1], edges[2]),
			Vertices: fmt.Sprintf("%s, %s, %s",
				analysis.FormatVector(tri.V1),
				analysis.FormatVector(tri.V2),
				analysis.FormatVector(tri.V3)),
		})

		totalArea += area
		minArea = min(minArea, area)
		maxArea = max(maxArea, area)
	}

	title := fmt.Sprintf("First %d Triangles", triCount)
	switch {
	case triLargest:
		slices.SortStableFunc(triangles, func(a, b triangleInfo) int { return cmp.Compare(b.Area, a.Area) })
		title = fmt.Sprintf("Top %d Largest Triangles", triCount)
	case triSmallest:
		slices.SortStableFunc(triangles, func(a, b triangleInfo) int { return cmp.Compare(a.Area, b.Area) })
		title = fmt.Sprintf("Top %d Smallest Triangles", triCount)
	case triWorst:
		slices.SortStableFunc(triangles, func(a, b triangleInfo) int { return cmp.Compare(b.Ratio, a.Ratio) })
		title = fmt.Sprintf("Top %d Worst Shaped Triangles", triCount)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, "====================")
	fmt.Fprintf(w, "Total triangles: %d\n", len(triangles))
	fmt.Fprintf(w, "Total surface area: %.6f square units\n", totalArea)
	fmt.Fprintf(w, "Min triangle area: %.6f square units\n", minArea)
	fmt.Fprintf(w, "Max triangle area: %.6f square units\n", maxArea)
	fmt.Fprintf(w, "Avg triangle area: %.6f square units\n\n", totalArea/float64(len(triangles)))

	for _, tri := range triangles[:min(triCount, len(triangles))] {
		fmt.Fprintf(w, "Triangle #%d:\n", tri.Index)
		fmt.Fprintf(w, "  Area: %.6f square units\n", tri.Area)
		fmt.Fprintf(w, "  Perimeter: %.6f units\n", tri.Perimeter)
		fmt.Fprintf(w, "  Radius/edge ratio: %.4f\n", tri.Ratio)
		fmt.Fprintf(w, "  Vertices: %s\n\n", tri.Vertices)
	}
	return nil
}

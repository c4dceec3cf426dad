package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/philipparndt/stp2stl/pkg/analysis"
	"github.com/philipparndt/stp2stl/pkg/stl"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about an STL file",
	Long:  "Show dimensions, triangle count, surface area, volume, edge statistics and whether the mesh is watertight.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	model, err := stl.Parse(filename)
	if err != nil {
		return fmt.Errorf("failed to parse STL file: %w", err)
	}

	result := analysis.Analyze(model)
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, titleStyle.Render("STL File Information"))
	fmt.Fprintln(w, "====================")
	if result.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", result.Name)
	}
	fmt.Fprintf(w, "File: %s (%s)\n\n", filename, fileSize(filename))

	fmt.Fprintln(w, "Model Statistics:")
	fmt.Fprintf(w, "  Triangles: %s\n", humanize.Comma(int64(result.TriangleCount)))
	fmt.Fprintf(w, "  Edges: %s\n", humanize.Comma(int64(result.EdgeCount)))
	fmt.Fprintf(w, "  Surface Area: %.6f square units\n\n", result.SurfaceArea)

	fmt.Fprintln(w, "Bounding Box:")
	fmt.Fprintf(w, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(w, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(w, "  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Fprintln(w, "Dimensions:")
	fmt.Fprintf(w, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(w, "  Depth (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(w, "  Height (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(w, "  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())
	fmt.Fprintf(w, "  Volume: %.6f cubic units\n\n", result.Volume)

	fmt.Fprintln(w, "Edge Lengths:")
	fmt.Fprintf(w, "  Minimum: %.6f units\n", result.MinEdgeLength)
	fmt.Fprintf(w, "  Maximum: %.6f units\n", result.MaxEdgeLength)
	fmt.Fprintf(w, "  Average: %.6f units\n\n", result.AvgEdgeLength)

	topo := result.Topology
	fmt.Fprintln(w, "Topology:")
	fmt.Fprintf(w, "  Unique edges: %s\n", humanize.Comma(int64(topo.UniqueEdges)))
	fmt.Fprintf(w, "  Open edges: %s\n", humanize.Comma(int64(topo.OpenEdges)))
	fmt.Fprintf(w, "  Non-manifold edges: %s\n", humanize.Comma(int64(topo.NonManifoldEdges)))
	if topo.Watertight() {
		fmt.Fprintf(w, "  Watertight: %s\n", successStyle.Render("yes"))
	} else {
		fmt.Fprintf(w, "  Watertight: %s\n", warningStyle.Render("no"))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/graph"
	"github.com/arma3tool/arma3tool/internal/mission"
	"github.com/arma3tool/arma3tool/internal/store"
)

var (
	reportRoot       string
	reportMaxDepth   int
	reportImpact     string
	reportMissionRefs string
	reportPretty     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query the class graph via a detached read-only replica",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		replica, err := store.OpenReadReplica(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer replica.Close()
		return runReport(cmd.Context(), replica)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRoot, "root", "", "print the hierarchy rooted at this class name")
	reportCmd.Flags().IntVar(&reportMaxDepth, "max-depth", graph.DefaultMaxDepth, "maximum recursion depth for hierarchy/impact walks")
	reportCmd.Flags().StringVar(&reportImpact, "impact", "", "comma-separated class names to hypothetically remove")
	reportCmd.Flags().StringVar(&reportMissionRefs, "mission-refs", "", "comma-separated mission class references to cross-check")
	reportCmd.Flags().BoolVar(&reportPretty, "pretty", false, "render the report as styled Markdown instead of a plain table")
}

func runReport(ctx context.Context, db *store.DB) error {
	engine := graph.New(db)

	var out string
	switch {
	case reportRoot != "":
		nodes, err := engine.GetHierarchy(ctx, reportRoot, reportMaxDepth)
		if err != nil {
			return err
		}
		out = hierarchyMarkdown(reportRoot, nodes)

	case reportImpact != "":
		names := splitCSV(reportImpact)
		result, err := engine.ImpactAnalysis(ctx, names)
		if err != nil {
			return err
		}
		out = impactMarkdown(result)

	case reportMissionRefs != "":
		refs := splitCSV(reportMissionRefs)
		checker := mission.New(db, mission.NewFuzzyMatcher(0.75), 4)
		verdicts, err := checker.CheckAll(ctx, refs)
		if err != nil {
			return err
		}
		out = verdictsMarkdown(verdicts)

	default:
		classes, err := db.ListClasses()
		if err != nil {
			return err
		}
		out = fmt.Sprintf("classes: %d\n", len(classes))
	}

	return printReport(out)
}

// printReport writes out as-is, unless --pretty is set, in which case it is
// rendered through Glamour the way the teacher's chat/UI pages render
// Markdown to the terminal.
func printReport(out string) error {
	if !reportPretty {
		fmt.Print(out)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(out)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}

func hierarchyMarkdown(root string, nodes []graph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Hierarchy of %s (%d classes)\n\n", root, len(nodes))
	fmt.Fprintf(&b, "| Class | Parent | Depth |\n|---|---|---|\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", n.Name, n.ParentName, n.Depth)
	}
	return b.String()
}

func impactMarkdown(r graph.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Impact analysis\n\nremoved=%d orphaned=%d affected=%d\n\n", len(r.Removed), len(r.Orphaned), len(r.Affected))
	fmt.Fprintf(&b, "| Class | Role | Parent |\n|---|---|---|\n")
	for _, n := range r.Nodes {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", n.Name, n.Role, n.ParentName)
	}
	return b.String()
}

func verdictsMarkdown(verdicts []mission.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Mission cross-check\n\n| Reference | Verdict | Detail |\n|---|---|---|\n")
	for _, v := range verdicts {
		detail := v.MatchedAs
		if v.Kind == mission.PartialMatch && len(v.Candidates) > 0 {
			names := make([]string, len(v.Candidates))
			for i, c := range v.Candidates {
				names[i] = fmt.Sprintf("%s(%.2f)", c.ClassName, c.Similarity)
			}
			detail = strings.Join(names, ", ")
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", v.Reference, v.Kind, detail)
	}
	return b.String()
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

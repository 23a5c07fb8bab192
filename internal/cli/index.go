package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vtree/internal/harness"
	"github.com/roach88/vtree/internal/index"
	"github.com/roach88/vtree/internal/ir"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	PageOptions
	Tree bool // list every node
}

// IndexSummary is the output of the index command.
type IndexSummary struct {
	Path        string      `json:"path"`
	Seed        string      `json:"seed"`
	RootID      string      `json:"root_id"`
	Fingerprint string      `json:"fingerprint"`
	Stats       index.Stats `json:"stats"`
	Nodes       []NodeLine  `json:"nodes,omitempty"`
}

// NodeLine describes one node in --tree output.
type NodeLine struct {
	Slot        string    `json:"slot"`
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Family      ir.Family `json:"family,omitempty"`
}

func (s IndexSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "path:        %s\n", s.Path)
	fmt.Fprintf(&b, "seed:        %s\n", s.Seed)
	fmt.Fprintf(&b, "root:        %s\n", s.RootID)
	fmt.Fprintf(&b, "fingerprint: %s\n", s.Fingerprint)
	fmt.Fprintf(&b, "nodes:       %d (%d elements, %d text)", s.Stats.Nodes(), s.Stats.Elements, s.Stats.Texts)
	for _, n := range s.Nodes {
		fmt.Fprintf(&b, "\n  %s %s %s", n.ID, n.Fingerprint[:12], n.Slot)
		if n.Family != "" && n.Family != ir.FamilyOther {
			fmt.Fprintf(&b, " [%s]", n.Family)
		}
	}
	return b.String()
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Assign structural ids and fingerprints to a page",
		Long: `Parse an HTML page and print its identity summary: page seed, root id,
root fingerprint and node counts. With --tree every node is listed with its
slot path.

Examples:
  vtree index site/guide.html
  vtree index site/guide.html --path /guide --tree
  vtree index snippet.html --fragment --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(opts, args[0], cmd)
		},
	}

	opts.PageOptions.bind(cmd)
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "list every node")

	return cmd
}

func runIndex(opts *IndexOptions, file string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	doc, err := e.load(file, &opts.PageOptions)
	if err != nil {
		return out.Fail(ExitCommandError, "index failed", err)
	}
	out.VerboseLog("indexed %s as %s", file, doc.Path)

	summary := IndexSummary{
		Path:        doc.Path,
		Seed:        doc.Seed.String(),
		RootID:      doc.Root.ID.String(),
		Fingerprint: doc.Root.Fingerprint.String(),
		Stats:       index.Summarize(doc),
	}
	if opts.Tree {
		paths := harness.SlotPaths(doc.Root)
		doc.Root.Walk(func(n *ir.Node) bool {
			summary.Nodes = append(summary.Nodes, NodeLine{
				Slot:        paths[n.ID],
				ID:          n.ID.String(),
				Fingerprint: n.Fingerprint.String(),
				Family:      n.Family,
			})
			return true
		})
	}
	return out.Success(summary)
}

package types

import (
	"fmt"
	"strings"
	"time"
)

// ResultTreeNodeType defines the type of node in a result tree
type ResultTreeNodeType string

const (
	NodeTypeRoot  ResultTreeNodeType = "root"
	NodeTypeSuite ResultTreeNodeType = "suite"
	NodeTypeScope ResultTreeNodeType = "scope"
	NodeTypeCase  ResultTreeNodeType = "case"
	NodeTypeStep  ResultTreeNodeType = "step"
)

// ResultTreeNode is a node of the hierarchical view over a run's results
type ResultTreeNode struct {
	ID       string
	Name     string
	Type     ResultTreeNodeType
	Suite    string
	Status   Status
	Duration time.Duration
	Stats    ResultStats

	Children []*ResultTreeNode
	Parent   *ResultTreeNode
	Depth    int

	// Result is set for case nodes, Step for step nodes.
	Result *CaseResult
	Step   *StepResult
}

// IsContainer reports whether the node groups other nodes
func (n *ResultTreeNode) IsContainer() bool {
	return n.Type == NodeTypeRoot || n.Type == NodeTypeSuite || n.Type == NodeTypeScope
}

// GetPath returns the names from the first suite-level node down to n
func (n *ResultTreeNode) GetPath() string {
	var parts []string
	for cur := n; cur != nil && cur.Type != NodeTypeRoot; cur = cur.Parent {
		parts = append([]string{cur.Name}, parts...)
	}
	return strings.Join(parts, "/")
}

// ResultTree mirrors the scope hierarchy of a run, with per-node statistics
type ResultTree struct {
	Root      *ResultTreeNode
	Stats     ResultStats
	Duration  time.Duration
	RunID     string
	Timestamp time.Time

	AllNodes    []*ResultTreeNode
	CaseNodes   []*ResultTreeNode
	FailedNodes []*ResultTreeNode

	nodesByID map[string]*ResultTreeNode
}

// GetNodeByID looks up a node by its identifier
func (t *ResultTree) GetNodeByID(id string) *ResultTreeNode {
	return t.nodesByID[id]
}

// Walk visits every node depth-first in execution order.
// Returning false from fn skips the node's children.
func (t *ResultTree) Walk(fn func(*ResultTreeNode) bool) {
	var walk func(*ResultTreeNode)
	walk = func(n *ResultTreeNode) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
}

// ResultTreeBuilder builds a ResultTree from a RunResult
type ResultTreeBuilder struct {
	showSkipped bool
	showSteps   bool
}

func NewResultTreeBuilder() *ResultTreeBuilder {
	return &ResultTreeBuilder{showSteps: true}
}

// WithSkipped controls whether skipped cases are included in the tree
func (b *ResultTreeBuilder) WithSkipped(show bool) *ResultTreeBuilder {
	b.showSkipped = show
	return b
}

// WithSteps controls whether ordered workflow steps become child nodes
func (b *ResultTreeBuilder) WithSteps(show bool) *ResultTreeBuilder {
	b.showSteps = show
	return b
}

// Build creates the tree. Scopes containing only hidden cases are left out.
func (b *ResultTreeBuilder) Build(run *RunResult) *ResultTree {
	tree := &ResultTree{
		RunID:     run.RunID,
		Timestamp: run.Started,
		Duration:  run.Elapsed,
		nodesByID: make(map[string]*ResultTreeNode),
	}
	tree.Root = &ResultTreeNode{ID: "root", Name: "Results", Type: NodeTypeRoot}
	tree.nodesByID[tree.Root.ID] = tree.Root

	for si, suite := range run.Suites {
		suiteNode := &ResultTreeNode{
			ID:       fmt.Sprintf("suite-%d", si),
			Name:     suite.Name,
			Type:     NodeTypeSuite,
			Suite:    suite.Name,
			Duration: suite.Elapsed,
		}
		b.attach(tree, tree.Root, suiteNode)

		scopes := make(map[int]*ResultTreeNode)
		for ci, result := range suite.Results {
			if result.Status == StatusSkipped && !b.showSkipped {
				continue
			}
			parent := b.ensureScopePath(tree, suiteNode, scopes, si, result.Scopes)
			caseNode := &ResultTreeNode{
				ID:       fmt.Sprintf("case-%d-%d", si, ci),
				Name:     result.Name,
				Type:     NodeTypeCase,
				Suite:    suite.Name,
				Status:   result.Status,
				Duration: result.Elapsed,
				Result:   result,
			}
			b.attach(tree, parent, caseNode)
			tree.CaseNodes = append(tree.CaseNodes, caseNode)
			if result.Status == StatusFailed {
				tree.FailedNodes = append(tree.FailedNodes, caseNode)
			}

			if !b.showSteps {
				continue
			}
			for i := range result.Steps {
				step := &result.Steps[i]
				b.attach(tree, caseNode, &ResultTreeNode{
					ID:       fmt.Sprintf("%s-step-%d", caseNode.ID, i),
					Name:     step.Name,
					Type:     NodeTypeStep,
					Suite:    suite.Name,
					Status:   step.Status,
					Duration: step.Elapsed,
					Step:     step,
				})
			}
		}
	}

	tree.Stats = b.calculateNodeStats(tree.Root)
	return tree
}

// ensureScopePath creates or returns the scope nodes for a result's ancestry
func (b *ResultTreeBuilder) ensureScopePath(tree *ResultTree, suiteNode *ResultTreeNode, scopes map[int]*ResultTreeNode, suiteIdx int, refs []ScopeRef) *ResultTreeNode {
	current := suiteNode
	for _, ref := range refs {
		node, ok := scopes[ref.ID]
		if !ok {
			node = &ResultTreeNode{
				ID:    fmt.Sprintf("scope-%d-%d", suiteIdx, ref.ID),
				Name:  ref.Name,
				Type:  NodeTypeScope,
				Suite: suiteNode.Suite,
			}
			b.attach(tree, current, node)
			scopes[ref.ID] = node
		}
		current = node
	}
	return current
}

func (b *ResultTreeBuilder) attach(tree *ResultTree, parent, node *ResultTreeNode) {
	node.Parent = parent
	node.Depth = parent.Depth + 1
	if parent.Type == NodeTypeRoot {
		node.Depth = 0
	}
	parent.Children = append(parent.Children, node)
	tree.AllNodes = append(tree.AllNodes, node)
	tree.nodesByID[node.ID] = node
}

// calculateNodeStats computes statistics bottom-up and derives container status
func (b *ResultTreeBuilder) calculateNodeStats(node *ResultTreeNode) ResultStats {
	stats := ResultStats{}
	if node.Type == NodeTypeCase {
		stats.Add(node.Status)
	}

	var elapsed time.Duration
	for _, child := range node.Children {
		if child.Type == NodeTypeStep {
			continue
		}
		stats.Merge(b.calculateNodeStats(child))
		elapsed += child.Duration
	}
	node.Stats = stats

	if node.IsContainer() {
		if node.Duration == 0 {
			node.Duration = elapsed
		}
		switch {
		case stats.Failed > 0:
			node.Status = StatusFailed
		case stats.Passed > 0:
			node.Status = StatusPassed
		case stats.Pending > 0:
			node.Status = StatusPending
		default:
			node.Status = StatusSkipped
		}
	}
	return stats
}

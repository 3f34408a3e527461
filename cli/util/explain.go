package util

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var depthColors = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgYellow),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
	color.New(color.FgBlue),
}

type planNode struct {
	label    string
	children []*planNode
}

// parsePlan parses the bracketed form of an execution plan, for example
// "[limit 3 [merge 4 [scan events 4]]]".
func parsePlan(s string) (*planNode, error) {
	s = strings.TrimSpace(s)
	node, rest, err := parsePlanNode(s)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("unexpected trailing input %q", rest)
	}
	return node, nil
}

func parsePlanNode(s string) (*planNode, string, error) {
	if !strings.HasPrefix(s, "[") {
		return nil, "", fmt.Errorf("expected '[' at %q", s)
	}
	s = s[1:]
	end := strings.IndexAny(s, "[]")
	if end < 0 {
		return nil, "", errors.New("unterminated plan node")
	}
	node := &planNode{label: strings.TrimSpace(s[:end])}
	s = s[end:]
	for strings.HasPrefix(s, "[") {
		child, rest, err := parsePlanNode(s)
		if err != nil {
			return nil, "", err
		}
		node.children = append(node.children, child)
		s = strings.TrimLeft(rest, " ")
	}
	if !strings.HasPrefix(s, "]") {
		return nil, "", errors.New("unterminated plan node")
	}
	return node, s[1:], nil
}

// PrintPlan prints an execution plan as an indented tree, one operator per
// line, colored by depth.
func PrintPlan(w io.Writer, plan string) error {
	root, err := parsePlan(plan)
	if err != nil {
		return fmt.Errorf("failed to parse plan: %w", err)
	}
	nodes := []*planNode{root}
	depths := []int{0}
	for len(nodes) > 0 {
		node := nodes[len(nodes)-1]
		nodes = nodes[:len(nodes)-1]
		depth := depths[len(depths)-1]
		depths = depths[:len(depths)-1]

		prefix := ""
		if depth > 0 {
			prefix = strings.Repeat("  ", depth-1) + "-> "
		}
		c := depthColors[depth%len(depthColors)]
		if _, err := c.Fprintln(w, prefix+node.label); err != nil {
			return err
		}
		for i := len(node.children) - 1; i >= 0; i-- {
			nodes = append(nodes, node.children[i])
			depths = append(depths, depth+1)
		}
	}
	return nil
}

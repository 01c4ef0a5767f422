package validation

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// TestValidateGraphRequest tests graph replacement validation
func TestValidateGraphRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         GraphRequest
		expectError bool
		errorField  string
	}{
		{
			name: "Valid graph",
			req: GraphRequest{
				Nodes: []NodeRequest{
					{ID: "1.2.3.4", Type: "ip", Label: "1.2.3.4"},
					{ID: "hp-ssh", Type: "honeypot", Label: "SSH", Data: map[string]any{"port": 22}},
				},
				Edges: []EdgeRequest{{Source: "1.2.3.4", Target: "hp-ssh"}},
			},
			expectError: false,
		},
		{
			name:        "Empty graph is valid",
			req:         GraphRequest{},
			expectError: false,
		},
		{
			name: "Dangling edge is accepted",
			req: GraphRequest{
				Nodes: []NodeRequest{{ID: "a", Type: "ip"}},
				Edges: []EdgeRequest{{Source: "a", Target: "missing"}},
			},
			expectError: false,
		},
		{
			name:        "Missing node id",
			req:         GraphRequest{Nodes: []NodeRequest{{Type: "ip"}}},
			expectError: true,
			errorField:  "ID",
		},
		{
			name:        "Unknown node type",
			req:         GraphRequest{Nodes: []NodeRequest{{ID: "x", Type: "router"}}},
			expectError: true,
			errorField:  "Type",
		},
		{
			name:        "Edge without target",
			req:         GraphRequest{Edges: []EdgeRequest{{Source: "a"}}},
			expectError: true,
			errorField:  "Target",
		},
		{
			name: "Invalid data key",
			req: GraphRequest{Nodes: []NodeRequest{
				{ID: "x", Type: "ttp", Data: map[string]any{"1bad": true}},
			}},
			expectError: true,
			errorField:  "Data",
		},
		{
			name: "Too many nodes",
			req: func() GraphRequest {
				nodes := make([]NodeRequest, MaxNodes+1)
				for i := range nodes {
					nodes[i] = NodeRequest{ID: fmt.Sprintf("n%d", i), Type: "ip"}
				}
				return GraphRequest{Nodes: nodes}
			}(),
			expectError: true,
			errorField:  "Nodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraphRequest(&tt.req)

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if tt.expectError && err != nil && !strings.Contains(err.Error(), tt.errorField) {
				t.Errorf("Expected error mentioning %s, got: %v", tt.errorField, err)
			}
		})
	}
}

func TestValidateGraphRequest_Nil(t *testing.T) {
	if err := ValidateGraphRequest(nil); err == nil {
		t.Error("Expected error for nil request")
	}
}

func TestGraphRequestToGraph(t *testing.T) {
	req := GraphRequest{
		Nodes: []NodeRequest{{ID: "a", Type: "ip", Label: "A"}, {ID: "b", Type: "ttp"}},
		Edges: []EdgeRequest{{Source: "a", Target: "b"}, {ID: "custom", Source: "b", Target: "a"}},
	}

	nodes, edges := req.ToGraph()
	if len(nodes) != 2 || nodes[0].Type != graph.NodeTypeIP || nodes[0].Label != "A" {
		t.Errorf("Unexpected nodes: %+v", nodes)
	}
	if edges[0].ID != "a->b" {
		t.Errorf("Derived edge id = %q, want a->b", edges[0].ID)
	}
	if edges[1].ID != "custom" {
		t.Errorf("Explicit edge id = %q, want custom", edges[1].ID)
	}
}

// TestValidatePointerRequest tests pointer event validation
func TestValidatePointerRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         PointerRequest
		expectError bool
	}{
		{"Press on node", PointerRequest{Kind: "press", X: 10, Y: 20, Hit: "a"}, false},
		{"Press with hit test", PointerRequest{Kind: "press", X: 10, Y: 20, HitTest: true}, false},
		{"Wheel", PointerRequest{Kind: "wheel", X: 1, Y: 1, DeltaY: -120}, false},
		{"Resize", PointerRequest{Kind: "resize", Width: 800, Height: 600}, false},
		{"Unknown kind", PointerRequest{Kind: "tap"}, true},
		{"Missing kind", PointerRequest{X: 1}, true},
		{"NaN position", PointerRequest{Kind: "move", X: math.NaN()}, true},
		{"Infinite delta", PointerRequest{Kind: "wheel", DeltaY: math.Inf(1)}, true},
		{"Negative width", PointerRequest{Kind: "resize", Width: -1, Height: 10}, true},
		{"Huge surface", PointerRequest{Kind: "resize", Width: MaxSurfaceSide + 1, Height: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePointerRequest(&tt.req)
			if tt.expectError != (err != nil) {
				t.Errorf("ValidatePointerRequest() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}

	if err := ValidatePointerRequest(nil); err == nil {
		t.Error("Expected error for nil request")
	}
}

func TestValidateViewportAndSelection(t *testing.T) {
	if err := ValidateViewportRequest(&ViewportRequest{Padding: 40}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateViewportRequest(&ViewportRequest{Padding: -1}); err == nil {
		t.Error("Expected error for negative padding")
	}
	if err := ValidateSelectionRequest(&SelectionRequest{ID: ""}); err != nil {
		t.Errorf("Empty selection clears and is valid: %v", err)
	}
	if err := ValidateSelectionRequest(&SelectionRequest{ID: strings.Repeat("x", 257)}); err == nil {
		t.Error("Expected error for oversized id")
	}
}

func TestValidateDataKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"port", true},
		{"_internal", true},
		{"mitre.tactic", true},
		{"", false},
		{"9lives", false},
		{"has space", false},
		{strings.Repeat("k", MaxDataKey+1), false},
	}

	for _, tt := range tests {
		err := ValidateDataKey(tt.key)
		if tt.valid != (err == nil) {
			t.Errorf("ValidateDataKey(%q) error = %v, valid %v", tt.key, err, tt.valid)
		}
	}
}

// Package graphql exposes the live layout over GraphQL: frame snapshots,
// node lookups and selection mutations.
package graphql

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/selection"
	"github.com/graphql-go/graphql"
)

// nodeSource carries the frame a node came from so neighbours can be resolved
type nodeSource struct {
	node  engine.NodeFrame
	frame *engine.Frame
}

// edgeSource carries the frame an edge came from so endpoints can be resolved
type edgeSource struct {
	edge  engine.EdgeFrame
	frame *engine.Frame
}

// snapshot reads the current frame on the engine goroutine
func snapshot(ctx context.Context, exec engine.Executor) (*engine.Frame, error) {
	var f engine.Frame
	if err := exec.Do(ctx, func(e *engine.Engine) { f = e.Frame() }); err != nil {
		return nil, err
	}
	return &f, nil
}

func nodesOf(f *engine.Frame, keep func(engine.NodeFrame) bool) []nodeSource {
	out := make([]nodeSource, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		if keep == nil || keep(n) {
			out = append(out, nodeSource{node: n, frame: f})
		}
	}
	return out
}

func optionalID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// GenerateSchema builds the schema resolving against exec
func GenerateSchema(exec engine.Executor) (graphql.Schema, error) {
	viewportType := createViewportType()
	statsType := createStatsType()
	nodeType := createNodeType()
	edgeType := createEdgeType(nodeType)
	frameType := createFrameType(nodeType, edgeType, viewportType, statsType)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "ok", nil
				},
			},
			"frame": &graphql.Field{
				Type: frameType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return snapshot(p.Context, exec)
				},
			},
			"node": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					f, err := snapshot(p.Context, exec)
					if err != nil {
						return nil, err
					}
					n, ok := f.Node(id)
					if !ok {
						return nil, nil
					}
					return nodeSource{node: n, frame: f}, nil
				},
			},
			"relevant": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
				Description: "The node and its direct neighbours; defaults to the current selection",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: createRelevantResolver(exec),
			},
			"viewport": &graphql.Field{
				Type: viewportType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := snapshot(p.Context, exec)
					if err != nil {
						return nil, err
					}
					return f.Viewport, nil
				},
			},
		},
	})

	mutationType := createMutationType(exec, frameType, viewportType)

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func createRelevantResolver(exec engine.Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		id, hasID := p.Args["id"].(string)
		var (
			out     []string
			unknown bool
		)
		err := exec.Do(p.Context, func(e *engine.Engine) {
			if !hasID {
				out = e.Relevant()
				return
			}
			if _, ok := e.Position(id); !ok {
				unknown = true
				return
			}
			out = selection.Sorted(selection.RelevantNodeIDs(id, e.Graph().Edges))
		})
		if err != nil {
			return nil, err
		}
		if unknown {
			return nil, fmt.Errorf("%w: %s", engine.ErrUnknownNode, id)
		}
		return out, nil
	}
}

// nodeField resolves a scalar from the node frame
func nodeField(t graphql.Output, get func(engine.NodeFrame) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if src, ok := p.Source.(nodeSource); ok {
				return get(src.node), nil
			}
			return nil, nil
		},
	}
}

func createNodeType() *graphql.Object {
	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":       nodeField(graphql.NewNonNull(graphql.ID), func(n engine.NodeFrame) interface{} { return n.ID }),
			"type":     nodeField(graphql.NewNonNull(graphql.String), func(n engine.NodeFrame) interface{} { return string(n.Type) }),
			"label":    nodeField(graphql.NewNonNull(graphql.String), func(n engine.NodeFrame) interface{} { return n.Label }),
			"x":        nodeField(graphql.NewNonNull(graphql.Float), func(n engine.NodeFrame) interface{} { return n.X }),
			"y":        nodeField(graphql.NewNonNull(graphql.Float), func(n engine.NodeFrame) interface{} { return n.Y }),
			"radius":   nodeField(graphql.NewNonNull(graphql.Float), func(n engine.NodeFrame) interface{} { return n.Radius }),
			"color":    nodeField(graphql.NewNonNull(graphql.String), func(n engine.NodeFrame) interface{} { return n.Color }),
			"pinned":   nodeField(graphql.NewNonNull(graphql.Boolean), func(n engine.NodeFrame) interface{} { return n.Pinned }),
			"selected": nodeField(graphql.NewNonNull(graphql.Boolean), func(n engine.NodeFrame) interface{} { return n.Selected }),
			"relevant": nodeField(graphql.NewNonNull(graphql.Boolean), func(n engine.NodeFrame) interface{} { return n.Relevant }),
		},
	})

	// neighbours refer back to Node, so the field is added after construction
	nodeType.AddFieldConfig("neighbors", &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(nodeType))),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			src, ok := p.Source.(nodeSource)
			if !ok {
				return nil, nil
			}
			adjacent := make(map[string]bool)
			for _, e := range src.frame.Edges {
				switch src.node.ID {
				case e.Source:
					adjacent[e.Target] = true
				case e.Target:
					adjacent[e.Source] = true
				}
			}
			return nodesOf(src.frame, func(n engine.NodeFrame) bool { return adjacent[n.ID] }), nil
		},
	})
	return nodeType
}

func createEdgeType(nodeType *graphql.Object) *graphql.Object {
	endpoint := func(id func(engine.EdgeFrame) string) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			src, ok := p.Source.(edgeSource)
			if !ok {
				return nil, nil
			}
			n, found := src.frame.Node(id(src.edge))
			if !found {
				return nil, nil
			}
			return nodeSource{node: n, frame: src.frame}, nil
		}
	}
	scalar := func(t graphql.Output, get func(engine.EdgeFrame) interface{}) *graphql.Field {
		return &graphql.Field{
			Type: t,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if src, ok := p.Source.(edgeSource); ok {
					return get(src.edge), nil
				}
				return nil, nil
			},
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"id":       scalar(graphql.NewNonNull(graphql.ID), func(e engine.EdgeFrame) interface{} { return e.ID }),
			"sourceId": scalar(graphql.NewNonNull(graphql.ID), func(e engine.EdgeFrame) interface{} { return e.Source }),
			"targetId": scalar(graphql.NewNonNull(graphql.ID), func(e engine.EdgeFrame) interface{} { return e.Target }),
			"relevant": scalar(graphql.NewNonNull(graphql.Boolean), func(e engine.EdgeFrame) interface{} { return e.Relevant }),
			"source": &graphql.Field{
				Type:    nodeType,
				Resolve: endpoint(func(e engine.EdgeFrame) string { return e.Source }),
			},
			"target": &graphql.Field{
				Type:    nodeType,
				Resolve: endpoint(func(e engine.EdgeFrame) string { return e.Target }),
			},
		},
	})
}

func createViewportType() *graphql.Object {
	field := func(get func(geometry.Viewport) float64) *graphql.Field {
		return &graphql.Field{
			Type: graphql.NewNonNull(graphql.Float),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				vp, _ := p.Source.(geometry.Viewport)
				return get(vp), nil
			},
		}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"x":      field(func(vp geometry.Viewport) float64 { return vp.X }),
			"y":      field(func(vp geometry.Viewport) float64 { return vp.Y }),
			"width":  field(func(vp geometry.Viewport) float64 { return vp.Width }),
			"height": field(func(vp geometry.Viewport) float64 { return vp.Height }),
		},
	})
}

func createStatsType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"nodes":           statsField(graphql.Int, func(f *engine.Frame) interface{} { return f.Stats.Nodes }),
			"edges":           statsField(graphql.Int, func(f *engine.Frame) interface{} { return f.Stats.Edges }),
			"pinned":          statsField(graphql.Int, func(f *engine.Frame) interface{} { return f.Stats.Pinned }),
			"maxSpeed":        statsField(graphql.Float, func(f *engine.Frame) interface{} { return f.Stats.MaxSpeed }),
			"kineticEnergy":   statsField(graphql.Float, func(f *engine.Frame) interface{} { return f.Stats.KineticEnergy }),
			"maxDisplacement": statsField(graphql.Float, func(f *engine.Frame) interface{} { return f.Stats.MaxDisplacement }),
		},
	})
}

// statsField reads step statistics from the enclosing frame
func statsField(t graphql.Output, get func(*engine.Frame) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if f, ok := p.Source.(*engine.Frame); ok {
				return get(f), nil
			}
			return nil, nil
		},
	}
}

func createFrameType(nodeType, edgeType, viewportType, statsType *graphql.Object) *graphql.Object {
	frame := func(p graphql.ResolveParams) *engine.Frame {
		f, _ := p.Source.(*engine.Frame)
		return f
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Frame",
		Fields: graphql.Fields{
			"tick": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(frame(p).Tick), nil
				},
			},
			"session": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return frame(p).Session, nil
				},
			},
			"mode": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return frame(p).Mode, nil
				},
			},
			"dragging": &graphql.Field{
				Type: graphql.ID,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optionalID(frame(p).Dragging), nil
				},
			},
			"selected": &graphql.Field{
				Type: graphql.ID,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return optionalID(frame(p).Selected), nil
				},
			},
			"relevant": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return frame(p).Relevant, nil
				},
			},
			"viewport": &graphql.Field{
				Type: graphql.NewNonNull(viewportType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return frame(p).Viewport, nil
				},
			},
			"stats": &graphql.Field{
				Type: graphql.NewNonNull(statsType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return frame(p), nil
				},
			},
			"nodes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(nodeType))),
				Args: graphql.FieldConfigArgument{
					"type":         &graphql.ArgumentConfig{Type: graphql.String},
					"relevantOnly": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := frame(p)
					kind, hasKind := p.Args["type"].(string)
					relevantOnly, _ := p.Args["relevantOnly"].(bool)
					return nodesOf(f, func(n engine.NodeFrame) bool {
						if hasKind && string(n.Type) != kind {
							return false
						}
						return !relevantOnly || n.Relevant
					}), nil
				},
			},
			"edges": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edgeType))),
				Args: graphql.FieldConfigArgument{
					"relevantOnly": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := frame(p)
					relevantOnly, _ := p.Args["relevantOnly"].(bool)
					out := make([]edgeSource, 0, len(f.Edges))
					for _, e := range f.Edges {
						if relevantOnly && !e.Relevant {
							continue
						}
						out = append(out, edgeSource{edge: e, frame: f})
					}
					return out, nil
				},
			},
		},
	})
}

package graphql

import (
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/graphql-go/graphql"
)

// DefaultFitPadding is the world padding used by fitView without an argument
const DefaultFitPadding = 40.0

func createMutationType(exec engine.Executor, frameType, viewportType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"select": &graphql.Field{
				Type: frameType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: createSelectResolver(exec),
			},
			"clearSelection": &graphql.Field{
				Type: frameType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var f engine.Frame
					err := exec.Do(p.Context, func(e *engine.Engine) {
						e.ClearSelection()
						f = e.Frame()
					})
					if err != nil {
						return nil, err
					}
					return &f, nil
				},
			},
			"fitView": &graphql.Field{
				Type: viewportType,
				Args: graphql.FieldConfigArgument{
					"padding": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: DefaultFitPadding},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					padding, _ := p.Args["padding"].(float64)
					if padding < 0 {
						padding = 0
					}
					return viewportMutation(p, exec, func(e *engine.Engine) { e.FitView(padding) })
				},
			},
			"resetView": &graphql.Field{
				Type: viewportType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return viewportMutation(p, exec, func(e *engine.Engine) { e.ResetView() })
				},
			},
		},
	})
}

func createSelectResolver(exec engine.Executor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		id, _ := p.Args["id"].(string)
		var (
			f      engine.Frame
			selErr error
		)
		err := exec.Do(p.Context, func(e *engine.Engine) {
			if selErr = e.Select(id); selErr == nil {
				f = e.Frame()
			}
		})
		if err != nil {
			return nil, err
		}
		if selErr != nil {
			return nil, selErr
		}
		return &f, nil
	}
}

func viewportMutation(p graphql.ResolveParams, exec engine.Executor, apply func(*engine.Engine)) (interface{}, error) {
	var vp geometry.Viewport
	err := exec.Do(p.Context, func(e *engine.Engine) {
		apply(e)
		vp = e.Viewport()
	})
	if err != nil {
		return nil, err
	}
	return vp, nil
}

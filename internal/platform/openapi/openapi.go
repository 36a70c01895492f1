// Package openapi describes the registered JSON routes as an OpenAPI 3.0
// document.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Operation documents one route.
type Operation struct {
	Summary string
	Tag     string
	// Body names the request schema, empty for no body.
	Body string
}

// Generator builds the document from the routes echo knows about.
type Generator struct {
	routes  func() []*echo.Route
	prefix  string
	version string
	ops     map[string]Operation
}

// NewGenerator documents the routes of e under prefix. ops is keyed by
// "METHOD path" using echo's path syntax.
func NewGenerator(e *echo.Echo, prefix, version string, ops map[string]Operation) *Generator {
	return &Generator{routes: e.Routes, prefix: prefix, version: version, ops: ops}
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	paths := make(map[string]interface{})
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, g.prefix) {
			continue
		}
		op, ok := g.ops[r.Method+" "+r.Path]
		if !ok {
			continue
		}

		path, params := convertPath(r.Path)
		item, _ := paths[path].(map[string]interface{})
		if item == nil {
			item = make(map[string]interface{})
			paths[path] = item
		}
		item[strings.ToLower(r.Method)] = g.buildOperation(r, op, params)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   "riskcheck API",
			"version": g.version,
		},
		"paths": paths,
	}
}

func (g *Generator) buildOperation(r *echo.Route, op Operation, params []string) map[string]interface{} {
	out := map[string]interface{}{
		"summary":     op.Summary,
		"operationId": operationID(r.Method, strings.TrimPrefix(r.Path, g.prefix)),
		"responses": map[string]interface{}{
			"200": map[string]interface{}{"description": "OK"},
			"4XX": map[string]interface{}{"description": "Rejected by the scoring service"},
			"502": map[string]interface{}{"description": "Scoring service unavailable"},
		},
	}
	if op.Tag != "" {
		out["tags"] = []string{op.Tag}
	}
	if len(params) > 0 {
		ps := make([]map[string]interface{}, 0, len(params))
		for _, p := range params {
			ps = append(ps, map[string]interface{}{
				"name": p, "in": "path", "required": true,
				"schema": map[string]string{"type": "string"},
			})
		}
		out["parameters"] = ps
	}
	if op.Body != "" {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]string{"type": "object", "title": op.Body},
				},
			},
		}
	}
	return out
}

// convertPath turns "/history/:user_id" into "/history/{user_id}".
func convertPath(p string) (string, []string) {
	var params []string
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			params = append(params, s[1:])
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/"), params
}

// operationID builds "postHospitalsNearby" from POST /hospitals/nearby.
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '_' || r == ':' }) {
		b.WriteString(strings.ToUpper(seg[:1]) + seg[1:])
	}
	return b.String()
}

// Handler serves the document as JSON.
func (g *Generator) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	}
}

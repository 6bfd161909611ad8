// Package render 解析内嵌页面模板。每个页面与公共布局、片段组成独立的模板集，
// 各页面都定义 "content" 也不会冲突
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	ginrender "github.com/gin-gonic/gin/render"
)

//go:embed templates
var files embed.FS

var shared = []string{"templates/layout.tmpl", "templates/partials.tmpl"}

// Renderer 基于每页独立模板集实现 gin 的 render.HTMLRender
type Renderer struct {
	pages map[string]*template.Template
}

// New 解析 templates/pages 下所有页面；funcs 覆盖默认模板函数
func New(funcs template.FuncMap) (*Renderer, error) {
	all := template.FuncMap{
		"date": func(t time.Time) string { return t.Format("2 January 2006") },
		"datetime": func(t time.Time) string {
			return t.Format("2 January 2006 15:04")
		},
		"iso": func(t time.Time) string { return t.Format(time.RFC3339) },
	}
	for k, v := range funcs {
		all[k] = v
	}

	names, err := fs.Glob(files, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		page := strings.TrimSuffix(path.Base(name), ".tmpl")
		t, err := template.New(page).Funcs(all).ParseFS(files, append(shared, name)...)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Has 是否存在该名称的页面
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

func (r *Renderer) Instance(name string, data any) ginrender.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["404"]
	}
	return ginrender.HTML{Template: t, Name: "base", Data: data}
}

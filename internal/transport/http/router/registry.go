package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule mounts public routes on the first group and session-bound routes
// on the second.
type APIModule interface {
	MountAPI(public, protected *gin.RouterGroup)
}

// AdminModule mounts on a group that already requires an admin session.
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// prioritizer orders mounting, lower first; modules without it count as 100.
type prioritizer interface{ Priority() int }

// Registry collects the modules one engine serves.
type Registry struct {
	api   []APIModule
	admin []AdminModule
}

// Register files mod under every module kind it implements.
func (r *Registry) Register(mods ...any) *Registry {
	for _, mod := range mods {
		if m, ok := mod.(APIModule); ok {
			r.api = append(r.api, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.admin = append(r.admin, m)
		}
	}
	return r
}

func (r *Registry) MountAllAPI(public, protected *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.api...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(public, protected)
	}
}

func (r *Registry) MountAllAdmin(admin *gin.RouterGroup) {
	mods := append([]AdminModule(nil), r.admin...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAdmin(admin)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}

package impl

import (
	"fmt"
	"net/url"
	"strings"

	"lexcourt/config"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/usecase"
)

// routeGuard implements usecase.RouteGuard from the configured routes.
type routeGuard struct {
	signIn     string
	lawyerHome string
	judgeHome  string
	areas      []roleArea
}

// roleArea is a path prefix reserved for one role.
type roleArea struct {
	prefix string
	role   entity.Role
}

// NewRouteGuard builds the guard. Missing routes fall back to the defaults.
func NewRouteGuard(cfg *config.Config) usecase.RouteGuard {
	routes := config.RoutesConfig{SignIn: "/login", LawyerHome: "/lawyer/dashboard", JudgeHome: "/judge/dashboard"}
	if cfg != nil && cfg.Routes != nil {
		if cfg.Routes.SignIn != "" {
			routes.SignIn = cfg.Routes.SignIn
		}
		if cfg.Routes.LawyerHome != "" {
			routes.LawyerHome = cfg.Routes.LawyerHome
		}
		if cfg.Routes.JudgeHome != "" {
			routes.JudgeHome = cfg.Routes.JudgeHome
		}
	}

	return &routeGuard{
		signIn:     routes.SignIn,
		lawyerHome: routes.LawyerHome,
		judgeHome:  routes.JudgeHome,
		areas:      roleAreas(routes.LawyerHome, routes.JudgeHome),
	}
}

// roleAreas reserves the first segment of each home for its role, so
// "/lawyer/dashboard" guards everything under "/lawyer". Homes sharing a
// first segment guard only themselves.
func roleAreas(lawyerHome, judgeHome string) []roleArea {
	lawyerPrefix, judgePrefix := firstSegment(lawyerHome), firstSegment(judgeHome)
	if lawyerPrefix == judgePrefix {
		lawyerPrefix, judgePrefix = strings.TrimSuffix(lawyerHome, "/"), strings.TrimSuffix(judgeHome, "/")
	}

	return []roleArea{
		{prefix: lawyerPrefix, role: entity.RoleLawyer},
		{prefix: judgePrefix, role: entity.RoleJudge},
	}
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}

	return "/" + trimmed
}

func (g *routeGuard) Evaluate(dest entity.Destination, snapshot entity.SessionSnapshot) entity.GuardDecision {
	if snapshot.Session == nil {
		return entity.GuardDecision{
			Outcome:  entity.GuardRedirectSignIn,
			Location: g.signIn + "?return_to=" + url.QueryEscape(dest.Path),
			ReturnTo: dest.Path,
		}
	}

	if snapshot.Profile == nil {
		return entity.GuardDecision{Outcome: entity.GuardLoading}
	}

	if dest.RequiredRole == "" {
		return entity.GuardDecision{Outcome: entity.GuardAllow}
	}

	role := snapshot.Profile.Role
	switch role {
	case entity.RoleLawyer, entity.RoleJudge:
		if role == dest.RequiredRole {
			return entity.GuardDecision{Outcome: entity.GuardAllow}
		}

		return entity.GuardDecision{Outcome: entity.GuardRedirectRole, Location: g.Home(role)}
	default:
		panic(fmt.Sprintf("route guard: unhandled role %q", string(role)))
	}
}

func (g *routeGuard) Home(role entity.Role) string {
	switch role {
	case entity.RoleLawyer:
		return g.lawyerHome
	case entity.RoleJudge:
		return g.judgeHome
	default:
		panic(fmt.Sprintf("route guard: unhandled role %q", string(role)))
	}
}

func (g *routeGuard) Resolve(path string) (entity.Destination, bool) {
	for _, area := range g.areas {
		if hasSegmentPrefix(path, area.prefix) {
			return entity.Destination{Path: path, RequiredRole: area.role}, true
		}
	}
	if hasSegmentPrefix(path, "/hearings") {
		return entity.Destination{Path: path}, true
	}

	return entity.Destination{}, false
}

func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

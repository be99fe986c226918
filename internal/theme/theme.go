// Package theme implements the two-layer style resolution model (spec
// §4.6): layout elements that chase a `base` chain through semantic roles
// down to a concrete (fg, bg, modes) triple, with per-level overrides.
//
// Theme *file* parsing is an external collaborator (spec §4 Non-goals);
// this package only resolves an already-constructed theme graph, the way
// the rest of the core only ever consumes a resolved Config and a
// resolved Theme.
package theme

import (
	"fmt"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/style"
)

// Element is a concrete layout slot (spec §4.6).
type Element string

const (
	ElementTime         Element = "time"
	ElementLevel        Element = "level"
	ElementLevelInner   Element = "level-inner"
	ElementLogger       Element = "logger"
	ElementCaller       Element = "caller"
	ElementMessage      Element = "message"
	ElementKey          Element = "key"
	ElementNumber       Element = "number"
	ElementString       Element = "string"
	ElementBooleanTrue  Element = "boolean-true"
	ElementBooleanFalse Element = "boolean-false"
	ElementNull         Element = "null"
	ElementEllipsis     Element = "ellipsis"
	ElementBullet       Element = "bullet"
	ElementField        Element = "field"
	ElementArray        Element = "array"
	ElementObject       Element = "object"
)

// Role is a semantic named style other nodes may inherit from via base
// (v1 theme format, spec §4.6).
type Role string

const (
	RoleDefault   Role = "default"
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleStrong    Role = "strong"
	RoleMuted     Role = "muted"
	RoleAccent    Role = "accent"
	RoleMessage   Role = "message"
	RoleSyntax    Role = "syntax"
	RoleStatus    Role = "status"
	RoleLevel     Role = "level"
)

// LevelRole names the per-level semantic role, e.g. "level.warning".
func LevelRole(l level.Level) Role {
	return Role("level." + l.String())
}

// Node is one named style definition in the theme graph: a direct style
// override plus an optional base it inherits unset fields from. Elements
// and roles share this shape; the graph is addressed by name across both
// namespaces ("element:time", "role:primary", ...) via Theme's maps.
type Node struct {
	Style style.Style
	// HasFG/HasBG/HasModes record which of Style's fields this node sets
	// directly, as opposed to inheriting from Base. A zero style.Color is
	// indistinguishable from "unset" otherwise (ColorDefault is itself a
	// valid explicit value).
	HasFG, HasBG, HasModes bool
	Base                   Role // "" if this node has no base
}

// ErrResolutionCycleExceeded is returned when chasing a base chain exceeds
// the configured depth cap (spec §4.6/§9: "loop-safe with a resolution
// depth cap, default 64; exceeding it aborts theme load").
type ErrResolutionCycleExceeded struct {
	Start Role
	Cap   int
}

func (e *ErrResolutionCycleExceeded) Error() string {
	return fmt.Sprintf("theme: resolution depth cap (%d) exceeded starting from role %q", e.Cap, e.Start)
}

// DefaultDepthCap is the default resolution depth cap (spec §9).
const DefaultDepthCap = 64

// Theme is a resolved theme graph: a set of role definitions, a set of
// element definitions (each based on a role), and per-level role
// overrides.
type Theme struct {
	Roles         map[Role]Node
	Elements      map[Element]Node
	LevelOverride map[level.Level]Role // role to substitute for RoleLevel at a given level
	DepthCap      int
}

// New creates a Theme with the given depth cap (0 uses DefaultDepthCap).
func New(roles map[Role]Node, elements map[Element]Node, levelOverride map[level.Level]Role, depthCap int) *Theme {
	if depthCap <= 0 {
		depthCap = DefaultDepthCap
	}
	return &Theme{Roles: roles, Elements: elements, LevelOverride: levelOverride, DepthCap: depthCap}
}

// Resolve computes the final style for an element at a given record
// level, chasing the element's own base chain and then, if the chain
// bottoms out at the "level" role, substituting the level-specific role
// override (spec §4.6: "Level-specific overrides apply per record
// level"). Resolution is cycle-safe: a per-resolution depth counter
// aborts with ErrResolutionCycleExceeded once the chain is deeper than
// the depth cap.
func (t *Theme) Resolve(el Element, lvl level.Level) (style.Style, error) {
	node, ok := t.Elements[el]
	if !ok {
		return style.Style{}, fmt.Errorf("theme: unknown element %q", el)
	}
	return t.resolveNode(node, lvl, 0, Role("element:"+el))
}

func (t *Theme) resolveNode(node Node, lvl level.Level, depth int, startName Role) (style.Style, error) {
	if depth > t.DepthCap {
		return style.Style{}, &ErrResolutionCycleExceeded{Start: startName, Cap: t.DepthCap}
	}
	result := node.Style
	haveFG, haveBG, haveModes := node.HasFG, node.HasBG, node.HasModes
	base := node.Base
	if base == RoleLevel {
		if override, ok := t.LevelOverride[lvl]; ok {
			base = override
		}
	}
	if base != "" && (!haveFG || !haveBG || !haveModes) {
		baseNode, ok := t.Roles[base]
		if !ok {
			return style.Style{}, fmt.Errorf("theme: missing referenced role %q", base)
		}
		baseResolved, err := t.resolveNode(baseNode, lvl, depth+1, base)
		if err != nil {
			return style.Style{}, err
		}
		if !haveFG {
			result.FG = baseResolved.FG
		}
		if !haveBG {
			result.BG = baseResolved.BG
		}
		if !haveModes {
			result.Modes = baseResolved.Modes
		}
	}
	return result, nil
}

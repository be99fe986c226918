package theme

import (
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/style"
)

// node is a small constructor helper: a role/element with fg/bg/modes all
// explicitly set (no inheritance gaps).
func node(fg, bg style.Color, modes style.Modes) Node {
	return Node{Style: style.Style{FG: fg, BG: bg, Modes: modes}, HasFG: true, HasBG: true, HasModes: true}
}

// based is a constructor for a node that inherits everything from base.
func based(base Role) Node {
	return Node{Base: base}
}

// DefaultTheme returns the built-in theme (spec §4.6's role list,
// grounded on bukodi-console-slog's NewDefaultTheme/ThemeDef: muted
// timestamps, bold message text, per-level colors matching the teacher's
// own FormatLevel color choices generalized onto spec.md's five levels).
func DefaultTheme() *Theme {
	roles := map[Role]Node{
		RoleDefault:   node(style.Default(), style.Default(), 0),
		RolePrimary:   node(style.Named16(style.White), style.Default(), 0),
		RoleSecondary: node(style.Named16(style.Cyan), style.Default(), 0),
		RoleStrong:    node(style.Named16(style.White), style.Default(), style.Bold),
		RoleMuted:     node(style.Named16(style.BrightBlack), style.Default(), 0),
		RoleAccent:    node(style.Named16(style.Magenta), style.Default(), 0),
		RoleMessage:   node(style.Named16(style.White), style.Default(), style.Bold),
		RoleSyntax:    node(style.Named16(style.Cyan), style.Default(), 0),
		RoleStatus:    node(style.Named16(style.BrightBlack), style.Default(), 0),
		RoleLevel:     node(style.Named16(style.White), style.Default(), 0),

		LevelRole(level.Trace):   node(style.Named16(style.BrightBlack), style.Default(), 0),
		LevelRole(level.Debug):   node(style.Named16(style.Blue), style.Default(), 0),
		LevelRole(level.Info):    node(style.Named16(style.Cyan), style.Default(), 0),
		LevelRole(level.Warning): node(style.Named16(style.Yellow), style.Default(), 0),
		LevelRole(level.Error):   node(style.Named16(style.Red), style.Default(), style.Bold),
		LevelRole(level.Unknown): node(style.Named16(style.BrightBlack), style.Default(), 0),
	}

	elements := map[Element]Node{
		ElementTime:         based(RoleMuted),
		ElementLevel:        based(RoleLevel),
		ElementLevelInner:   based(RoleLevel),
		ElementLogger:       based(RoleSecondary),
		ElementCaller:       based(RoleMuted),
		ElementMessage:      based(RoleMessage),
		ElementKey:          based(RoleSecondary),
		ElementNumber:       based(RoleAccent),
		ElementString:       based(RoleSyntax),
		ElementBooleanTrue:  based(RoleAccent),
		ElementBooleanFalse: based(RoleMuted),
		ElementNull:         based(RoleMuted),
		ElementEllipsis:     based(RoleMuted),
		ElementBullet:       based(RoleMuted),
		ElementField:        based(RoleDefault),
		ElementArray:        based(RoleSyntax),
		ElementObject:       based(RoleSyntax),
	}

	levelOverride := map[level.Level]Role{
		level.Trace:   LevelRole(level.Trace),
		level.Debug:   LevelRole(level.Debug),
		level.Info:    LevelRole(level.Info),
		level.Warning: LevelRole(level.Warning),
		level.Error:   LevelRole(level.Error),
		level.Unknown: LevelRole(level.Unknown),
	}

	return New(roles, elements, levelOverride, DefaultDepthCap)
}

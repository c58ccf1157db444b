package userdata

import (
	"fmt"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
)

// Mode selects which manager the process is acting as.
type Mode int

const (
	// ModeGlobal is the tool-wide manager (devbox). Its packages live under
	// ~/.devbox and its modules under <root>/modules/global.
	ModeGlobal Mode = iota
	// ModeProject is the per-project manager (box). Its packages and
	// overrides live in the project's .box directory.
	ModeProject
)

// String returns the mode's directory and routine-name segment.
func (m Mode) String() string {
	switch m {
	case ModeGlobal:
		return "global"
	case ModeProject:
		return "project"
	default:
		return "unknown"
	}
}

// CLIName returns the binary name that serves the mode.
func (m Mode) CLIName() string {
	if m == ModeProject {
		return branding.ProjectCLIName()
	}
	return branding.GlobalCLIName()
}

// ParseMode converts "global" or "project" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "global":
		return ModeGlobal, nil
	case "project":
		return ModeProject, nil
	default:
		return 0, fmt.Errorf("unknown mode %q: expected \"global\" or \"project\"", s)
	}
}

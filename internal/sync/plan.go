package sync

import "github.com/schaermu/cmksync/internal/omd"

// FileOp pairs one eligible source file with its destination inside the
// site tree. SourcePath is absolute within the checkout, DestPath absolute
// within the site.
type FileOp struct {
	SourcePath string
	DestPath   string
}

// ClassifiedPath is an eligible path annotated for display.
type ClassifiedPath struct {
	Path string
	// Authored marks paths last touched by the invoking user.
	Authored bool
}

// PlanRestarts decides which restart actions a sync run triggers. The plan
// is always a prefix-extension of the fixed order: the core restart first,
// then the two interactive UI actions together. skipAll yields an empty
// plan; the UI actions are included iff forceFull or affectsUI holds.
func PlanRestarts(affectsUI, forceFull, skipAll bool) []omd.Action {
	if skipAll {
		return nil
	}
	plan := []omd.Action{omd.ActionRestartCore}
	if forceFull || affectsUI {
		plan = append(plan, omd.ActionReloadWebFrontend, omd.ActionRestartUIScheduler)
	}
	return plan
}

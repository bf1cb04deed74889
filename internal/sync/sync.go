package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/schaermu/cmksync/internal/classify"
	"github.com/schaermu/cmksync/internal/config"
	"github.com/schaermu/cmksync/internal/destmap"
	"github.com/schaermu/cmksync/internal/gitrepo"
	"github.com/schaermu/cmksync/internal/omd"
)

// Reporter renders run progress. Implemented by the ui package; the engine
// never touches presentation state directly.
type Reporter interface {
	Heading(msg string)
	CommitInfo(c *gitrepo.Commit)
	Classification(eligible []ClassifiedPath, ineligible []string)
	FileResult(dst string, err error)
	ActionResult(label string, output string, err error)
	Info(msg string)
	Warn(msg string)
	Success(msg string)
}

// Prompter gathers interactive input. Implemented by the ui package.
type Prompter interface {
	// SelectSite asks the user to pick a site. ok is false when the user
	// quit the prompt.
	SelectSite(sites []string, preselected string) (site string, ok bool, err error)
	Confirm(msg string) (bool, error)
}

// Options are the invocation flags of one sync run.
type Options struct {
	// Site skips interactive site selection.
	Site string
	// NoReload suppresses all restarts unless FullReload overrides it.
	NoReload bool
	// FullReload forces the interactive UI restart set.
	FullReload bool
	// AssumeYes skips the confirmation prompt.
	AssumeYes bool
	// DryRun prints the copy and restart plan without executing it.
	DryRun bool
}

// Engine orchestrates one sync run: classify the last commit's files, copy
// the eligible ones into the selected site and restart services.
type Engine struct {
	cfg    *config.Config
	repo   gitrepo.Repository
	host   omd.Host
	out    Reporter
	in     Prompter
	logger *slog.Logger
	opts   Options
}

// NewEngine creates a sync engine.
func NewEngine(cfg *config.Config, repo gitrepo.Repository, host omd.Host, out Reporter, in Prompter, logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		cfg:    cfg,
		repo:   repo,
		host:   host,
		out:    out,
		in:     in,
		logger: logger,
		opts:   opts,
	}
}

// Run executes the complete sync run. Everything is strictly sequential;
// per-file and per-action failures are reported and do not abort the
// remaining items. Only an unreadable repository, an unresolvable site or a
// declined-free fatal condition returns an error.
func (e *Engine) Run(ctx context.Context) error {
	site, ok, err := e.selectSite(ctx)
	if err != nil {
		return err
	}
	if !ok {
		e.out.Success("See you soon :)")
		return nil
	}
	e.logger.Debug("site selected", "site", site)

	commit, err := e.repo.HeadCommit(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last commit: %w", err)
	}
	e.out.CommitInfo(commit)

	if len(commit.Files) == 0 {
		e.out.Success("No changed files.")
		return nil
	}

	res := classify.New(e.cfg.ClassifierRules()).Classify(commit.Files)
	e.out.Heading("Sync files")
	e.out.Classification(e.annotate(ctx, res.Eligible), res.Ineligible)

	if len(res.Eligible) == 0 {
		e.out.Warn("No paths available to copy.")
		return nil
	}

	ops := e.buildOps(site, res.Eligible)
	plan := PlanRestarts(res.AffectsInteractiveUI(), e.opts.FullReload, e.opts.NoReload && !e.opts.FullReload)

	if e.opts.DryRun {
		e.reportDryRun(ops, plan)
		return nil
	}

	if !e.opts.AssumeYes {
		proceed, err := e.in.Confirm("Proceed")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !proceed {
			e.out.Success("No paths to copy.")
			return nil
		}
	}

	e.copyFiles(ctx, ops)

	if len(plan) == 0 {
		e.out.Success("Not reloading services. Done :)")
		return nil
	}
	e.runActions(ctx, site, plan)

	e.logger.Debug("sync completed", "files", len(ops), "actions", len(plan))
	return nil
}

// selectSite resolves the target site: the --site flag wins, a single
// installed site is auto-selected, otherwise the user picks one. ok is
// false when the user quit the prompt.
func (e *Engine) selectSite(ctx context.Context) (string, bool, error) {
	if e.opts.Site != "" {
		return e.opts.Site, true, nil
	}

	sites, err := e.host.Sites(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to discover sites: %w", err)
	}
	if len(sites) == 0 {
		return "", false, fmt.Errorf("no sites installed")
	}
	if len(sites) == 1 {
		return sites[0], true, nil
	}

	site, ok, err := e.in.SelectSite(sites, e.cfg.DefaultSiteName())
	if err != nil {
		return "", false, fmt.Errorf("failed to select site: %w", err)
	}
	return site, ok, nil
}

// annotate marks each eligible path with the authored-by-user flag for
// display. Lookup failures degrade to an unmarked entry.
func (e *Engine) annotate(ctx context.Context, eligible []string) []ClassifiedPath {
	out := make([]ClassifiedPath, 0, len(eligible))
	for _, p := range eligible {
		out = append(out, ClassifiedPath{Path: p, Authored: e.repo.AuthoredByUser(ctx, p)})
	}
	return out
}

// buildOps maps every eligible path to its destination in stable order.
func (e *Engine) buildOps(site string, eligible []string) []FileOp {
	mapper := destmap.New(e.cfg.OMDRoot, site, e.cfg.DestinationRules())
	ops := make([]FileOp, 0, len(eligible))
	for _, p := range eligible {
		ops = append(ops, FileOp{
			SourcePath: filepath.Join(e.repo.Root(), p),
			DestPath:   mapper.Map(p),
		})
	}
	return ops
}

// copyFiles applies the copy operations one by one. A failed copy is
// reported and the loop continues with the next file.
func (e *Engine) copyFiles(ctx context.Context, ops []FileOp) {
	for _, op := range ops {
		err := e.host.CopyFile(ctx, op.SourcePath, op.DestPath)
		if err != nil {
			e.logger.Warn("copy failed", "dest", op.DestPath, "error", err)
		}
		e.out.FileResult(op.DestPath, err)
	}
}

// runActions executes the restart plan in its fixed order, one action at a
// time. A failed action is reported and the remaining ones still run.
func (e *Engine) runActions(ctx context.Context, site string, plan []omd.Action) {
	for _, action := range plan {
		output, err := e.host.RunAction(ctx, site, action)
		if err != nil {
			e.logger.Warn("restart action failed", "action", action, "error", err)
		}
		e.out.ActionResult(action.Label(), output, err)
	}
}

// reportDryRun prints what a real run would do.
func (e *Engine) reportDryRun(ops []FileOp, plan []omd.Action) {
	for _, op := range ops {
		e.out.Info(fmt.Sprintf("would copy %s -> %s", op.SourcePath, op.DestPath))
	}
	if len(plan) == 0 {
		e.out.Info("would not reload any services")
		return
	}
	for _, action := range plan {
		e.out.Info(fmt.Sprintf("would run %s", action))
	}
	e.out.Success("Dry-run complete, no changes applied.")
}

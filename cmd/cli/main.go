package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/boyter/gocodewalker"
	"github.com/multimediallc/pr-import-bot/internal/config"
	"github.com/multimediallc/pr-import-bot/internal/fetch"
	"github.com/multimediallc/pr-import-bot/internal/git"
	"github.com/multimediallc/pr-import-bot/pkg/area"
	f "github.com/multimediallc/pr-import-bot/pkg/functional"
	"github.com/urfave/cli/v2"
)

var warningBuffer = bytes.NewBuffer([]byte{})

func stripRoot(root string, path string) string {
	if root == "." {
		return path
	}
	return strings.TrimPrefix(path, strings.TrimSuffix(root, "/")+"/")
}

func main() {
	var repo string
	var configPath string

	rootFlag := &cli.StringFlag{
		Name:        "root",
		Aliases:     []string{"r", "repo"},
		Value:       ".",
		Usage:       "Path to local Git repo",
		Destination: &repo,
	}
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Value:       config.DefaultPath,
		Usage:       "Path to the bot configuration (toml or yaml)",
		EnvVars:     []string{"BOT_CONFIG"},
		Destination: &configPath,
	}
	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "default",
		Usage:   "Output format.  Allowed values are: default, one-line, and json",
	}
	workersFlag := &cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Value:   area.DefaultWorkers,
		Usage:   "Number of files read concurrently",
	}

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "Print version",
	}
	app := &cli.App{
		Name:    "area-cli",
		Usage:   "CLI tool for checking the area classification of changes",
		Version: "v0.1.0",
		Commands: []*cli.Command{
			{
				Name:        "classify",
				Aliases:     []string{"c"},
				Usage:       "Classify one or more files",
				UsageText:   "area-cli classify [options] <file1> [file2]...",
				Description: "Classify files of a local checkout. Files can be given as arguments or piped through stdin, one per line.",
				Flags:       []cli.Flag{rootFlag, configFlag, formatFlag, workersFlag},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					targets := cCtx.Args().Slice()
					if len(targets) == 0 && isStdinPiped() {
						targets, err = scanLines(os.Stdin)
						if err != nil {
							return err
						}
					}
					if len(targets) == 0 {
						return fmt.Errorf("at least one target file is required")
					}
					return classifyFiles(cCtx.Context, os.Stdout, repo, configPath, targets, format, cCtx.Int("workers"))
				},
			},
			{
				Name:        "diff",
				Aliases:     []string{"d"},
				Usage:       "Classify the changes between two refs or of a patch",
				UsageText:   "area-cli diff [options] --base <ref> [--head <ref>]\n   area-cli diff [options] --patch <file|->",
				Description: "Classify the files changed between base and head, reading contents at head. With --patch, classify the files of a unified diff, reading contents from the working tree.",
				Flags: []cli.Flag{rootFlag, configFlag, formatFlag, workersFlag,
					&cli.StringFlag{Name: "base", Aliases: []string{"b"}, Usage: "Base ref"},
					&cli.StringFlag{Name: "head", Value: "HEAD", Usage: "Head ref"},
					&cli.StringFlag{Name: "patch", Aliases: []string{"p"}, Usage: "Unified diff file, - for stdin"},
				},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					if patch := cCtx.String("patch"); patch != "" {
						return classifyPatch(cCtx.Context, os.Stdout, repo, configPath, patch, format, cCtx.Int("workers"))
					}
					if cCtx.String("base") == "" {
						return fmt.Errorf("either --base or --patch is required")
					}
					return classifyDiff(cCtx.Context, os.Stdout, repo, configPath, cCtx.String("base"), cCtx.String("head"), format, cCtx.Int("workers"))
				},
			},
			{
				Name:        "scan",
				Aliases:     []string{"s"},
				Usage:       "Classify every eligible file of the repository",
				UsageText:   "area-cli scan [options] [target-dir]",
				Description: "Walk the repository, honouring .gitignore, and classify all eligible files. If target-dir is specified, only files under that directory are classified.",
				Flags: []cli.Flag{rootFlag, configFlag, formatFlag, workersFlag,
					&cli.BoolFlag{Name: "evidence", Aliases: []string{"e"}, Usage: "Print the evidence of every file"},
				},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					target := ""
					if cCtx.NArg() > 0 {
						target = cCtx.Args().First()
					}
					return scanRepo(cCtx.Context, os.Stdout, repo, configPath, target, format, cCtx.Int("workers"), cCtx.Bool("evidence"))
				},
			},
			{
				Name:        "verify",
				Aliases:     []string{"v"},
				Usage:       "Verify the bot configuration",
				UsageText:   "area-cli verify [options]",
				Description: "Load and validate the bot configuration, reporting invalid markers and suspicious mappings.",
				Flags:       []cli.Flag{configFlag},
				Action: func(cCtx *cli.Context) error {
					return verifyConfig(configPath)
				},
			},
		},
	}

	err := app.Run(os.Args)
	_, _ = warningBuffer.WriteTo(os.Stderr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func checkRepo(repo string) error {
	if repoStat, err := os.Lstat(repo); err != nil || !repoStat.IsDir() {
		return fmt.Errorf("root is not a directory: %s", repo)
	}
	return nil
}

func newClassifier(configPath string, fetcher area.Fetcher, workers int) (*area.Classifier, error) {
	conf, err := config.ReadConfig(configPath, nil)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %s", err)
	}
	mappings, err := conf.AreaMappings()
	if err != nil {
		return nil, fmt.Errorf("invalid area mappings: %s", err)
	}
	return area.NewClassifier(mappings, fetcher, area.WithWorkers(workers), area.WithWarningWriter(warningBuffer)), nil
}

func classifyFiles(ctx context.Context, out io.Writer, repo, configPath string, targets []string, format OutputFormat, workers int) error {
	if err := checkRepo(repo); err != nil {
		return err
	}
	for _, target := range targets {
		if target == "" {
			return fmt.Errorf("empty target file path is not allowed")
		}
		if targetStat, err := os.Stat(filepath.Join(repo, target)); err != nil || targetStat.IsDir() {
			return fmt.Errorf("target is not a file: %s", target)
		}
	}

	classifier, err := newClassifier(configPath, fetch.NewFileFetcher(repo), workers)
	if err != nil {
		return err
	}
	files := f.Map(targets, func(target string) area.ChangedFile {
		return area.ChangedFile{Path: filepath.ToSlash(target), ContentRef: target}
	})
	result, err := classifier.Decide(ctx, files)
	if err != nil {
		return err
	}
	return printResult(out, result, format)
}

func classifyPatch(ctx context.Context, out io.Writer, repo, configPath, patchPath string, format OutputFormat, workers int) error {
	if err := checkRepo(repo); err != nil {
		return err
	}
	var patch []byte
	var err error
	if patchPath == "-" {
		patch, err = io.ReadAll(os.Stdin)
	} else {
		patch, err = os.ReadFile(patchPath)
	}
	if err != nil {
		return fmt.Errorf("error reading patch: %s", err)
	}
	files, err := git.ParsePatch(patch)
	if err != nil {
		return err
	}

	classifier, err := newClassifier(configPath, fetch.NewFileFetcher(repo), workers)
	if err != nil {
		return err
	}
	result, err := classifier.Decide(ctx, files)
	if err != nil {
		return err
	}
	return printResult(out, result, format)
}

func classifyDiff(ctx context.Context, out io.Writer, repo, configPath, base, head string, format OutputFormat, workers int) error {
	if err := checkRepo(repo); err != nil {
		return err
	}
	diff, err := git.NewDiff(ctx, git.DiffContext{Base: base, Head: head, Dir: repo})
	if err != nil {
		return err
	}
	classifier, err := newClassifier(configPath, git.NewGitRefFetcher(head, repo), workers)
	if err != nil {
		return err
	}
	result, err := classifier.Decide(ctx, diff.ChangedFiles())
	if err != nil {
		return err
	}
	return printResult(out, result, format)
}

func walkRepo(repo, target string) ([]string, error) {
	fileListQueue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(repo, fileListQueue)
	walker.ExcludeDirectory = []string{".git"}

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
		close(errChan)
	}()

	files := make([]string, 0)
	for file := range fileListQueue {
		path := filepath.ToSlash(stripRoot(repo, file.Location))
		if target != "" && !strings.HasPrefix(path, strings.TrimSuffix(target, "/")+"/") {
			continue
		}
		files = append(files, path)
	}
	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("error walking repo: %s", err)
	}
	slices.Sort(files)
	return files, nil
}

func scanRepo(ctx context.Context, out io.Writer, repo, configPath, target string, format OutputFormat, workers int, withEvidence bool) error {
	if err := checkRepo(repo); err != nil {
		return err
	}
	fetcher := fetch.NewFileFetcher(repo)
	classifier, err := newClassifier(configPath, fetcher, workers)
	if err != nil {
		return err
	}
	paths, err := walkRepo(repo, target)
	if err != nil {
		return err
	}
	paths = f.Filtered(paths, classifier.Mappings().Eligible)

	if withEvidence {
		evidence := make([]fileEvidence, 0, len(paths))
		for _, path := range paths {
			content, err := fetcher.Fetch(ctx, path)
			if err != nil {
				return &area.FetchError{Path: path, Err: err}
			}
			e := classifier.Evidence(path, content)
			evidence = append(evidence, fileEvidence{Path: path, Areas: e.Areas, Unknown: e.UnknownPackages, FromPath: e.FromPath})
		}
		return printEvidence(out, evidence, format)
	}

	files := f.Map(paths, func(path string) area.ChangedFile {
		return area.ChangedFile{Path: path, ContentRef: path}
	})
	result, err := classifier.Decide(ctx, files)
	if err != nil {
		return err
	}
	return printResult(out, result, format)
}

func verifyConfig(configPath string) error {
	conf, err := config.ReadConfig(configPath, nil)
	if err != nil {
		return fmt.Errorf("error reading config: %s", err)
	}
	if _, err := conf.AreaMappings(); err != nil {
		return fmt.Errorf("invalid area mappings:\n%s", err)
	}
	warnings := conf.Warnings()
	if len(warnings) > 0 {
		return fmt.Errorf("\n%s", strings.Join(warnings, "\n"))
	}
	return nil
}

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
)

// shellExts run in-process through the mvdan.cc/sh interpreter.
var shellExts = map[string]bool{".sh": true, ".bash": true}

// defaultInterpreters maps script extensions to the argv prefix used to run them.
var defaultInterpreters = map[string][]string{
	".ps1": {"pwsh", "-NoProfile", "-File"},
	".py":  {"python3"},
}

// IsScriptName reports whether a file name has an extension the executor
// knows how to run.
func IsScriptName(name string) bool {
	ext := filepath.Ext(name)
	if shellExts[ext] {
		return true
	}
	_, ok := defaultInterpreters[ext]
	return ok
}

// Executor runs scripts and shell functions read from Fs.
type Executor struct {
	Fs           afero.Fs
	interpreters map[string][]string
}

// NewExecutor creates an Executor reading targets from fsys. overrides maps
// an extension (with or without the dot) to an interpreter command line,
// e.g. {"ps1": "pwsh -NoLogo -File"}.
func NewExecutor(fsys afero.Fs, overrides map[string]string) *Executor {
	interps := make(map[string][]string, len(defaultInterpreters)+len(overrides))
	for ext, argv := range defaultInterpreters {
		interps[ext] = argv
	}
	for ext, cmdline := range overrides {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if fields := strings.Fields(cmdline); len(fields) > 0 {
			interps[ext] = fields
		}
	}
	return &Executor{Fs: fsys, interpreters: interps}
}

// RunScript executes the script at scriptPath with inv.Args.
func (e *Executor) RunScript(ctx context.Context, scriptPath string, inv Invocation) error {
	if shellExts[filepath.Ext(scriptPath)] {
		src, err := afero.ReadFile(e.Fs, scriptPath)
		if err != nil {
			return fmt.Errorf("reading script %s: %w", scriptPath, err)
		}
		file, err := parseShell(src, scriptPath)
		if err != nil {
			return err
		}
		runner, err := e.newRunner(inv)
		if err != nil {
			return err
		}
		return shellExit(scriptPath, runner.Run(ctx, file))
	}
	return e.runExternal(ctx, scriptPath, inv)
}

// CallFunction loads the module's library files into one shell session and
// calls fn with inv.Args as "$@". The command path is exposed to the
// function as the array BOX_COMMAND_PATH and as the space-joined
// DEVBOX_COMMAND_PATH environment variable.
func (e *Executor) CallFunction(ctx context.Context, moduleDir string, libraries []string, fn string, inv Invocation) error {
	inv.Env = append(inv.Env, branding.EnvVar("COMMAND_PATH")+"="+strings.Join(inv.Path, " "))

	runner, err := e.newRunner(inv)
	if err != nil {
		return err
	}

	for _, lib := range libraries {
		p := filepath.Join(moduleDir, filepath.FromSlash(lib))
		src, err := afero.ReadFile(e.Fs, p)
		if err != nil {
			return fmt.Errorf("reading library %s: %w", p, err)
		}
		file, err := parseShell(src, p)
		if err != nil {
			return err
		}
		if err := runner.Run(ctx, file); err != nil {
			return shellExit(p, err)
		}
	}

	call, err := callProgram(fn, inv.Path)
	if err != nil {
		return err
	}
	file, err := parseShell([]byte(call), fn)
	if err != nil {
		return err
	}
	return shellExit(fn, runner.Run(ctx, file))
}

// callProgram renders `BOX_COMMAND_PATH=(...); fn "$@"` with every token quoted.
func callProgram(fn string, path []string) (string, error) {
	var b strings.Builder
	b.WriteString("BOX_COMMAND_PATH=(")
	for _, tok := range path {
		q, err := syntax.Quote(tok, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("quoting command path %q: %w", tok, err)
		}
		b.WriteString(" " + q)
	}
	b.WriteString(" )\n")
	q, err := syntax.Quote(fn, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quoting function name %q: %w", fn, err)
	}
	b.WriteString(q + ` "$@"` + "\n")
	return b.String(), nil
}

func (e *Executor) newRunner(inv Invocation) (*interp.Runner, error) {
	opts := []interp.RunnerOption{
		interp.StdIO(inv.In(), inv.Out(), inv.Err()),
		interp.Env(expand.ListEnviron(inv.Environ()...)),
		// "--" ends option parsing so arguments such as "-e" stay parameters.
		interp.Params(append([]string{"--"}, inv.Args...)...),
	}
	if inv.Dir != "" {
		opts = append(opts, interp.Dir(inv.Dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating shell runner: %w", err)
	}
	return runner, nil
}

func (e *Executor) runExternal(ctx context.Context, scriptPath string, inv Invocation) error {
	realPath, cleanup, err := e.materialize(scriptPath)
	if err != nil {
		return err
	}
	defer cleanup()

	var argv []string
	if prefix, ok := e.interpreters[filepath.Ext(scriptPath)]; ok {
		argv = append(argv, prefix...)
	}
	argv = append(argv, realPath)
	argv = append(argv, inv.Args...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = inv.In()
	cmd.Stdout = inv.Out()
	cmd.Stderr = inv.Err()
	cmd.Env = inv.Environ()
	cmd.Dir = inv.Dir

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Target: scriptPath, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("running %s: %w", scriptPath, err)
	}
	return nil
}

// materialize returns a real file path for scriptPath. Scripts that only
// exist in an in-memory filesystem are copied to a temporary file.
func (e *Executor) materialize(scriptPath string) (string, func(), error) {
	if _, ok := e.Fs.(*afero.OsFs); ok {
		return scriptPath, func() {}, nil
	}
	data, err := afero.ReadFile(e.Fs, scriptPath)
	if err != nil {
		return "", nil, fmt.Errorf("reading script %s: %w", scriptPath, err)
	}
	dir, err := os.MkdirTemp("", branding.GlobalCLIName()+"-script-")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	p := filepath.Join(dir, filepath.Base(scriptPath))
	if err := os.WriteFile(p, data, 0700); err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("writing temp script: %w", err)
	}
	return p, func() { os.RemoveAll(dir) }, nil
}

func parseShell(src []byte, name string) (*syntax.File, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(bytes.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return file, nil
}

// shellExit converts an interpreter exit status into an ExitError.
func shellExit(target string, err error) error {
	if err == nil {
		return nil
	}
	if status, ok := interp.IsExitStatus(err); ok {
		if status == 0 {
			return nil
		}
		return &ExitError{Target: target, Code: int(status)}
	}
	return fmt.Errorf("running %s: %w", target, err)
}

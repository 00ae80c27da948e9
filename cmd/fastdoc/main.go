package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/duyhunghd6/fastdoc-cli/internal/config"
	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/logger"
	"github.com/duyhunghd6/fastdoc-cli/internal/orchestrator"
	"github.com/duyhunghd6/fastdoc-cli/internal/report"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
)

var version = "0.1.0-dev"

func main() {
	// Local .env first so its values take part in the config env overrides
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := buildRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

// setup loads the config file, applies the environment and returns a
// logger configured from the flags.
func (g *globalFlags) setup(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	var cfg *config.Config
	var err error
	if g.configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(g.configPath)
	}
	if err != nil {
		return nil, nil, err
	}

	level, ok := logger.ParseLevel(g.logLevel)
	if !ok {
		return nil, nil, fmt.Errorf("invalid log level %q", g.logLevel)
	}
	lc := logger.DefaultConfig()
	lc.Level = level
	lc.JSON = g.logJSON
	lc.Output = cmd.ErrOrStderr()
	return cfg, logger.New(lc), nil
}

// documentFlags override config values for the document command.
type documentFlags struct {
	exclude        []string
	languages      []string
	elements       []string
	overwrite      bool
	backend        string
	model          string
	timeout        time.Duration
	nesting        string
	dryRun         bool
	diff           bool
	jsonOutput     bool
	noCache        bool
	copyMode       bool
	verbose        bool
	validateSyntax bool
}

func (f *documentFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("exclude") {
		cfg.Exclude = f.exclude
	}
	if changed("languages") {
		cfg.Languages = f.languages
	}
	if changed("elements") {
		cfg.Elements = f.elements
	}
	if changed("overwrite") {
		cfg.Overwrite = f.overwrite
	}
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("model") {
		cfg.Model = f.model
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("nesting") {
		cfg.Nesting = f.nesting
	}
	if changed("validate-syntax") {
		cfg.ValidateSyntax = f.validateSyntax
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.copyMode {
		cfg.Rewrite = false
	}
}

const pathHint = `Please provide the path of the Python file or folder to document.

  fastdoc document ./my_project
  fastdoc document ./script.py --elements parse,Parser
`

// buildRootCmd creates the root cobra command with all subcommands.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fastdoc",
		Short: "📝 FastDoc-CLI: docstrings for Python code, written by an LLM",
		Long: `FastDoc-CLI finds every function and class of a Python file or project,
asks a language model for a docstring and splices it into the source,
leaving everything else byte for byte as it was.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	g := &globalFlags{}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default: ~/.fastdoc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "Log as JSON")

	// --- document command ---
	df := &documentFlags{}
	documentCmd := &cobra.Command{
		Use:   "document [path]",
		Short: "Document a Python file or project",
		Long: `Generate docstrings for every function and class that lacks one.
Elements the model cannot document get a TODO comment instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), pathHint)
				return nil
			}
			cfg, lg, err := g.setup(cmd)
			if err != nil {
				return err
			}
			df.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			engine, err := orchestrator.NewEngine(cfg, lg)
			if err != nil {
				return err
			}
			if !df.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "📝 Documenting %s with %s...\n", args[0], cfg.Backend)
			}
			run, err := engine.Run(cmd.Context(), args[0], orchestrator.RunOptions{
				DryRun: df.dryRun,
				Diff:   df.diff,
			})
			if run != nil {
				if df.jsonOutput {
					if werr := report.WriteJSON(cmd.OutOrStdout(), run); werr != nil {
						return werr
					}
				} else if werr := report.WriteText(cmd.OutOrStdout(), run, df.verbose); werr != nil {
					return werr
				}
			}
			if err != nil {
				return fmt.Errorf("documenting failed: %w", err)
			}
			return nil
		},
	}
	documentCmd.Flags().StringSliceVar(&df.exclude, "exclude", nil, "Paths, names or globs to skip (repeatable)")
	documentCmd.Flags().StringSliceVar(&df.languages, "languages", nil, "Languages to document (only python is supported)")
	documentCmd.Flags().StringSliceVar(&df.elements, "elements", nil, "Only document these function/class names")
	documentCmd.Flags().BoolVar(&df.overwrite, "overwrite", false, "Replace existing docstrings")
	documentCmd.Flags().StringVar(&df.backend, "backend", "", "Completion backend: openai, compatible, mock")
	documentCmd.Flags().StringVar(&df.model, "model", "", "Model name")
	documentCmd.Flags().DurationVar(&df.timeout, "timeout", 0, "Per-element completion timeout")
	documentCmd.Flags().StringVar(&df.nesting, "nesting", "", "Nested definitions: stack or outermost")
	documentCmd.Flags().BoolVar(&df.dryRun, "dry-run", false, "Do not write any file")
	documentCmd.Flags().BoolVar(&df.diff, "diff", false, "Show a diff of every changed file")
	documentCmd.Flags().BoolVar(&df.jsonOutput, "json", false, "Output the run report as JSON")
	documentCmd.Flags().BoolVar(&df.noCache, "no-cache", false, "Disable the completion cache")
	documentCmd.Flags().BoolVar(&df.copyMode, "copy", false, "Write to a <name>_analysed copy instead of rewriting in place")
	documentCmd.Flags().BoolVarP(&df.verbose, "verbose", "v", false, "List every element in the report")
	documentCmd.Flags().BoolVar(&df.validateSyntax, "validate-syntax", false, "Refuse files tree-sitter cannot parse")
	rootCmd.AddCommand(documentCmd)

	// --- extract command ---
	var extractJSON bool
	var extractNesting string
	extractCmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "List the functions and classes of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nesting, err := parseNesting(extractNesting)
			if err != nil {
				return err
			}
			toks, _, err := tokenizer.TokenizeFile(args[0])
			if err != nil {
				return err
			}
			res := extract.Extract(toks, extract.Options{Nesting: nesting})
			elements := res.Sorted()

			if extractJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(elements)
			}
			out := cmd.OutOrStdout()
			for _, el := range elements {
				doc := "inline"
				if !el.Inline {
					doc = fmt.Sprintf("doc@%d", el.DocstringOffset)
				}
				fmt.Fprintf(out, "%4d  %-8s %-30s %s\n", el.Line, el.Kind, el.Name, doc)
			}
			fmt.Fprintf(out, "\n%d elements\n", len(elements))
			return nil
		},
	}
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Output as JSON")
	extractCmd.Flags().StringVar(&extractNesting, "nesting", "stack", "Nested definitions: stack or outermost")
	rootCmd.AddCommand(extractCmd)

	// --- serve-mcp command ---
	serveMCPCmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Start MCP (Model Context Protocol) server",
		Long:  "Start an HTTP JSON server exposing the extractor and the documenter as MCP tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetInt("port")
			cfg, lg, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			srv, err := newMCPServer(cfg, lg)
			if err != nil {
				return err
			}
			return serveMCP(cmd.Context(), srv, port)
		},
	}
	serveMCPCmd.Flags().Int("port", 9999, "Port to listen on")
	rootCmd.AddCommand(serveMCPCmd)

	// --- completion command ---
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for fastdoc.

To load completions:

Bash:
  $ source <(fastdoc completion bash)

Zsh:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc  # once
  $ fastdoc completion zsh > "${fpath[1]}/_fastdoc"
  $ exec zsh

Fish:
  $ fastdoc completion fish | source
  $ fastdoc completion fish > ~/.config/fish/completions/fastdoc.fish

PowerShell:
  PS> fastdoc completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	rootCmd.AddCommand(completionCmd)

	return rootCmd
}

func parseNesting(s string) (extract.Nesting, error) {
	switch n := extract.Nesting(s); n {
	case extract.NestingStack, extract.NestingOutermost:
		return n, nil
	}
	return "", fmt.Errorf("invalid nesting %q (want stack or outermost)", s)
}

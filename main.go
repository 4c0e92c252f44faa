// rimtrans — RimWorld mod translation extractor and converter.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rimtrans/rimtrans/config"
	"github.com/rimtrans/rimtrans/convert"
	"github.com/rimtrans/rimtrans/diff"
	"github.com/rimtrans/rimtrans/extract"
	"github.com/rimtrans/rimtrans/i18n"
	"github.com/rimtrans/rimtrans/langfile"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Log helpers. All progress output goes to stderr so stdout stays clean
// for report-style commands (list, compare).
var (
	tagInfo    = color.New(color.FgBlue).Sprint("[INFO]")
	tagSuccess = color.New(color.FgGreen).Sprint("[OK]")
	tagWarning = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	tagError   = color.New(color.FgRed).Sprint("[ERROR]")
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, tagInfo+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, tagSuccess+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, tagWarning+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, tagError+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var modsDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rimtrans",
		Short: "RimWorld mod translation extractor",
		Long: `rimtrans — RimWorld mod translation extractor and converter.

Extracts translatable strings from a mod's Defs and Keyed XML files into
LanguageData translation files under Languages/<lang>/, with stable keys
and English reference comments. Re-running merges with existing files
without losing translations.

Commands:
  list      List installed mods
  extract   Extract translation files for a mod
  compare   Show what a fresh extraction would change
  convert   Convert files between Chinese variants (OpenCC)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&modsDir, "mods-dir", "", "Workshop mods directory (overrides settings file)")

	root.AddCommand(
		newListCmd(),
		newExtractCmd(),
		newCompareCmd(),
		newConvertCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// loadSettings reads the optional settings file from the working directory
// and applies the global flag overrides.
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings(".")
	if err != nil {
		return nil, err
	}
	if modsDir != "" {
		settings.ModsDir = modsDir
	}
	return settings, nil
}

// resolveModDir turns a mod ID argument into its folder path. The argument
// may also be a direct path to a mod folder.
func resolveModDir(settings *config.Settings, arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg, nil
	}
	if settings.ModsDir == "" {
		return "", fmt.Errorf("no mods directory configured; set mods_dir in %s or pass --mods-dir", config.SettingsFileName)
	}
	dir := filepath.Join(settings.ModsDir, arg)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("mod %q not found in %s", arg, settings.ModsDir)
	}
	return dir, nil
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rimtrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// list (read-only: installed mods)
// ---------------------------------------------------------------------------

func newListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed mods",
		Long: `List the mods in the configured mods directory as "ID - Name",
sorted by ID. Names come from each mod's About/About.xml; mods without
one show their folder name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if settings.ModsDir == "" {
				return fmt.Errorf("no mods directory configured; set mods_dir in %s or pass --mods-dir", config.SettingsFileName)
			}

			mods, err := config.ListMods(settings.ModsDir)
			if err != nil {
				return err
			}
			mods = config.FilterMods(mods, search)
			if len(mods) == 0 {
				logInfo(i18n.T("No mods found."))
				return nil
			}

			for _, m := range mods {
				fmt.Println(m.Label())
			}
			logInfo(i18n.N("Found %d mod", "Found %d mods", len(mods)), len(mods))
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter mods by ID or name (case-insensitive)")
	return cmd
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var (
		lang        string
		output      string
		placeholder string
		updateMode  string
		naming      string
		conflict    string
		quietFiles  bool
		assumeYes   bool
	)

	cmd := &cobra.Command{
		Use:   "extract <mod-id|mod-path>",
		Short: "Extract translation files for a mod",
		Long: `Extract translatable strings from a mod into LanguageData files.

Walks the mod's Defs XML files, derives a key for every translatable
field (label, description, *string*), and writes one translation file per
source file under Languages/<lang>/DefInjected/<DefType>/. English Keyed
files are replicated under Languages/<lang>/Keyed/. Bundled sub-mods are
processed after the main mod.

In Merge mode (default) existing translations are preserved; Replace
deletes prior output first. Values are written as "TODO" placeholders or
as the original English text (--placeholder Original).

Examples:
  rimtrans extract 294100
  rimtrans extract 294100 --lang ChineseSimplified --placeholder Original
  rimtrans extract ./MyMod --update-mode Replace --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if lang != "" {
				settings.Language = lang
			}
			if placeholder != "" {
				settings.Placeholder = placeholder
			}
			if updateMode != "" {
				settings.UpdateMode = updateMode
			}
			if naming != "" {
				settings.SubmodNaming = naming
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			decision, err := extract.ParseDecision(conflict)
			if err != nil {
				return err
			}

			modDir, err := resolveModDir(settings, args[0])
			if err != nil {
				return err
			}
			langDir := output
			if langDir == "" {
				langDir = config.LanguageDir(modDir, settings.Language)
			}

			mode := config.UpdateMode(settings.UpdateMode)
			if mode == config.UpdateReplace && !assumeYes {
				if !confirm(fmt.Sprintf("Replace mode deletes existing translation files under %s. Continue?", langDir)) {
					logWarning(i18n.T("Extraction cancelled."))
					return nil
				}
			}

			return runExtract(modDir, langDir, settings, mode, decision, !quietFiles)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Target language folder name (default from settings)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output language folder (default Languages/<lang> inside the mod)")
	cmd.Flags().StringVar(&placeholder, "placeholder", "", "Value mode: TODO or Original")
	cmd.Flags().StringVar(&updateMode, "update-mode", "", "Merge or Replace")
	cmd.Flags().StringVar(&naming, "naming", "", "Sub-mod file naming: None, Prefix or Suffix")
	cmd.Flags().StringVar(&conflict, "conflict", "ask", "Conflict policy: ask, merge, prefix, suffix, skip or cancel")
	cmd.Flags().BoolVar(&quietFiles, "quiet-files", false, "Suppress per-file written/unchanged messages")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the Replace mode confirmation prompt")

	return cmd
}

func runExtract(modDir, langDir string, settings *config.Settings, mode config.UpdateMode, decision extract.Decision, detailed bool) error {
	logInfo("Extracting %s into %s", modDir, langDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logWarning("Interrupted, stopping after the current file...")
		cancel()
	}()

	opts := extract.Options{
		Placeholder:  langfile.PlaceholderMode(settings.Placeholder),
		UpdateMode:   mode,
		Naming:       config.NamingPolicy(settings.SubmodNaming),
		OnConflict:   conflictPrompt(decision),
		DetailedLogs: detailed,
		OnLog:        logInfo,
		OnSuccess:    logSuccess,
		OnWarn:       logWarning,
		OnError:      logError,
	}

	err := extract.Run(ctx, modDir, langDir, opts)
	if errors.Is(err, extract.ErrCancelled) {
		logWarning(i18n.T("Extraction cancelled."))
		return nil
	}
	if err != nil {
		return err
	}
	logSuccess(i18n.T("Extraction complete."))
	return nil
}

// conflictPrompt builds the conflict callback for a run. A fixed decision
// from --conflict applies to every collision; "ask" prompts interactively.
func conflictPrompt(fixed extract.Decision) extract.ConflictFunc {
	if fixed != extract.DecisionAsk {
		return func(string) (extract.Decision, bool) {
			return fixed, true
		}
	}

	reader := bufio.NewReader(os.Stdin)
	return func(candidate string) (extract.Decision, bool) {
		for {
			fmt.Fprintf(os.Stderr, "File %q already exists.\n", candidate)
			fmt.Fprint(os.Stderr, "  [m]erge  [p]refix  [s]uffix  s[k]ip  [c]ancel  (append ! to apply to all): ")

			line, err := reader.ReadString('\n')
			if err != nil {
				return extract.DecisionCancel, false
			}
			line = strings.ToLower(strings.TrimSpace(line))
			sticky := strings.HasSuffix(line, "!")
			line = strings.TrimSuffix(line, "!")

			switch line {
			case "m":
				return extract.DecisionMerge, sticky
			case "p":
				return extract.DecisionPrefix, sticky
			case "s":
				return extract.DecisionSuffix, sticky
			case "k":
				return extract.DecisionSkip, sticky
			case "c":
				return extract.DecisionCancel, false
			}
			fmt.Fprintln(os.Stderr, "Please answer m, p, s, k or c.")
		}
	}
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// ---------------------------------------------------------------------------
// compare (read-only: what would a fresh extraction change)
// ---------------------------------------------------------------------------

func newCompareCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "compare <mod-id|mod-path>",
		Short: "Show what a fresh extraction would change",
		Long: `Extract the mod into a temporary folder and compare the result
against the existing translation files, key by key. Nothing in the mod
folder is modified.

Reports new keys, removed keys, and keys whose source value changed,
plus files that would be created or no longer have a source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if lang != "" {
				settings.Language = lang
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			modDir, err := resolveModDir(settings, args[0])
			if err != nil {
				return err
			}
			existingDir := config.LanguageDir(modDir, settings.Language)

			tmpDir, err := os.MkdirTemp("", "rimtrans-compare-*")
			if err != nil {
				return fmt.Errorf("creating temporary folder: %w", err)
			}
			defer os.RemoveAll(tmpDir)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				cancel()
			}()

			// Fresh extraction into the temp dir; sub-mod collisions there
			// are merged so the comparison sees the combined result.
			opts := extract.Options{
				Placeholder: langfile.PlaceholderMode(settings.Placeholder),
				UpdateMode:  config.UpdateMerge,
				Naming:      config.NamingPolicy(settings.SubmodNaming),
				OnConflict: func(string) (extract.Decision, bool) {
					return extract.DecisionMerge, true
				},
				OnWarn:  logWarning,
				OnError: logError,
			}
			err = extract.Run(ctx, modDir, tmpDir, opts)
			if errors.Is(err, extract.ErrCancelled) {
				logWarning(i18n.T("Extraction cancelled."))
				return nil
			}
			if err != nil {
				return err
			}

			report, err := diff.CompareTrees(existingDir, tmpDir)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Target language folder name (default from settings)")
	return cmd
}

// printReport writes the comparison report to stdout, coloring the
// per-line categories.
func printReport(report string) {
	if report == diff.NoDifferences {
		logSuccess(i18n.T("No differences found."))
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for _, line := range strings.Split(report, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "New key added:"), strings.HasPrefix(trimmed, "New file:"):
			green.Println(line)
		case strings.HasPrefix(trimmed, "Key removed:"), strings.HasPrefix(trimmed, "File removed:"):
			red.Println(line)
		case strings.HasPrefix(trimmed, "Key modified:"):
			yellow.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

// ---------------------------------------------------------------------------
// convert (OpenCC Chinese variant conversion)
// ---------------------------------------------------------------------------

func newConvertCmd() *cobra.Command {
	var (
		inDir   string
		outDir  string
		profile string
		types   []string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert files between Chinese variants (OpenCC)",
		Long: `Convert every matching file under --in and write the results to
the same relative paths under --out, using an OpenCC profile:

  s2t    Simplified to Traditional
  t2s    Traditional to Simplified
  s2tw   Simplified to Traditional (Taiwan)
  tw2s   Traditional (Taiwan) to Simplified
  s2hk   Simplified to Traditional (Hong Kong)
  hk2s   Traditional (Hong Kong) to Simplified
  s2twp  Simplified to Taiwan with phrase conversion
  tw2sp  Taiwan to Simplified with phrase conversion

Example:
  rimtrans convert --in Languages/ChineseSimplified --out Languages/ChineseTraditional --profile s2twp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if len(types) == 0 {
				types = settings.ConvertTypes
			}

			if !isDirectory(inDir) {
				return fmt.Errorf("input folder %q not found", inDir)
			}

			tr, err := convert.NewOpenCC(profile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				cancel()
			}()

			err = convert.Tree(ctx, inDir, outDir, tr, convert.Options{
				Extensions:   types,
				DetailedLogs: true,
				OnLog:        logInfo,
				OnSuccess:    logSuccess,
				OnError:      logError,
			})
			if errors.Is(err, context.Canceled) {
				logWarning("Conversion interrupted.")
				return nil
			}
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Conversion complete."))
			return nil
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "", "Input folder (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output folder (required)")
	cmd.Flags().StringVar(&profile, "profile", "s2twp", "OpenCC conversion profile")
	cmd.Flags().StringSliceVar(&types, "types", nil, "File extensions to convert (default from settings)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	_ = cmd.RegisterFlagCompletionFunc("profile", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return convert.Profiles, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

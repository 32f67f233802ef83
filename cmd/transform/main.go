// Command transform rewrites JavaScript/TypeScript/TSX modules into bundler
// module factories: every require("x") becomes require(dependencyMap[slot])
// and the module body is wrapped in a __d(function (...) { ... }) call.
//
// Usage:
//
//	transform [flags] <file|dir> [file|dir...]
//
// Flags:
//
//	-o                   Write generated modules under this directory (default: print to stdout)
//	-dry-run             Report dependencies without writing anything
//	-ext                 Comma-separated file extensions to process
//	-dump                Dump the S-expression tree for the first file and exit (debug)
//	-recursive           Recurse into directories (default: true)
//	-global-prefix       Prefix of the define function
//	-keep-require-names  Pass the original specifier as a second require argument
//	-optional-exclude    Comma-separated specifiers never reported as optional
//	-meta                Write <file>.deps.yaml with the dependency table
//	-cache               Path of the result cache database
//	-verify              Load every generated factory under goja
//	-config              YAML config file (default: .metro-transform.yaml if present)
//	-no-color            Disable colored diagnostics
//	-j                   Number of files transformed in parallel
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v2"

	"github.com/JakeChampion/metro-transform/internal/cache"
	"github.com/JakeChampion/metro-transform/internal/config"
	"github.com/JakeChampion/metro-transform/internal/parser"
	"github.com/JakeChampion/metro-transform/internal/runtime"
	"github.com/JakeChampion/metro-transform/internal/transform"
)

const verifyTimeout = 5 * time.Second

func main() {
	var (
		outDir          = flag.String("o", "", "write generated modules under this directory (default: print to stdout)")
		dryRun          = flag.Bool("dry-run", false, "report dependencies without writing anything")
		exts            = flag.String("ext", strings.Join(config.DefaultExtensions, ","), "comma-separated file extensions to process")
		dump            = flag.Bool("dump", false, "dump S-expression tree for the first file and exit")
		recursive       = flag.Bool("recursive", true, "recurse into directories")
		globalPrefix    = flag.String("global-prefix", "", "prefix of the define function")
		keepNames       = flag.Bool("keep-require-names", false, "pass the original specifier as a second require argument")
		optionalExclude = flag.String("optional-exclude", "", "comma-separated specifiers never reported as optional")
		meta            = flag.Bool("meta", false, "write <file>.deps.yaml with the dependency table")
		cachePath       = flag.String("cache", "", "path of the result cache database")
		verify          = flag.Bool("verify", false, "load every generated factory under goja")
		configPath      = flag.String("config", "", "YAML config file (default: "+config.DefaultFile+" if present)")
		noColor         = flag.Bool("no-color", false, "disable colored diagnostics")
		jobs            = flag.Int("j", goruntime.NumCPU(), "number of files transformed in parallel")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file|dir> [file|dir...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Wrap modules in bundler factories and number their dependencies.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -o out ./src              # Transform all files in src/ into out/\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dry-run ./src            # List the dependencies of every file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s ./src/foo.js              # Print the generated module to stdout\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dump ./src/foo.ts        # Show parsed S-expression tree\n", os.Args[0])
	}

	flag.Parse()

	if *noColor {
		pterm.DisableColor()
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("%v", err)
	}

	// Flags given on the command line override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ext":
			cfg.Extensions = config.NormalizeExtensions(strings.Split(*exts, ","))
		case "global-prefix":
			cfg.GlobalPrefix = *globalPrefix
		case "keep-require-names":
			cfg.KeepRequireNames = *keepNames
		case "optional-exclude":
			cfg.OptionalExclude = splitList(*optionalExclude)
		case "cache":
			cfg.Cache = *cachePath
		case "verify":
			cfg.Verify = *verify
		}
	})

	extSet := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extSet[ext] = true
	}

	// Dump mode: parse first file and print S-expression.
	if *dump {
		path := flag.Arg(0)
		source, err := os.ReadFile(path)
		if err != nil {
			fatalf("reading %s: %v", path, err)
		}
		sexp, err := parser.DumpTree(source, parser.LanguageForFile(path))
		if err != nil {
			fatalf("parsing %s: %v", path, err)
		}
		fmt.Println(sexp)
		return
	}

	// Collect files to process.
	var files []inputFile
	for _, arg := range flag.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			fatalf("stat %s: %v", arg, err)
		}

		if info.IsDir() {
			dirFiles, err := collectFiles(arg, extSet, *recursive)
			if err != nil {
				fatalf("walking %s: %v", arg, err)
			}
			files = append(files, dirFiles...)
		} else {
			files = append(files, inputFile{path: arg, rel: filepath.Base(arg)})
		}
	}

	if len(files) == 0 {
		printInfo("no matching files found")
		os.Exit(0)
	}

	if *outDir != "" && !*dryRun {
		if err := checkDestinations(files); err != nil {
			fatalf("%v", err)
		}
	}

	var c *cache.Cache
	if cfg.Cache != "" {
		if c, err = cache.Open(cfg.Cache); err != nil {
			fatalf("%v", err)
		}
	}

	outcomes := transformAll(files, cfg, c, *jobs)
	if c != nil {
		if err := c.Close(); err != nil {
			printWarningMessage(" cache ", err.Error())
		}
	}

	var (
		totalFiles  int
		totalDeps   int
		failedFiles int
	)

	for _, out := range outcomes {
		path := out.file.path
		if out.err != nil {
			failedFiles++
			var transformErr *transform.Error
			if errors.As(out.err, &transformErr) && len(transformErr.Msgs) > 0 {
				printMsgs(transformErr.Msgs)
			} else {
				printErrorMessage(" error ", fmt.Errorf("%s: %w", path, out.err))
			}
			continue
		}
		if len(out.result.Warnings) > 0 {
			printMsgs(out.result.Warnings)
		}
		if out.verifyErr != nil {
			printWarningMessage(" verify ", fmt.Sprintf("%s: %v", path, out.verifyErr))
		}

		result := out.result
		totalFiles++
		totalDeps += len(result.Dependencies)

		if *dryRun {
			fmt.Printf("  %s (%d dependencies, %d optional)\n", path, len(result.Dependencies), len(result.OptionalDependencies))
			for _, dep := range result.Dependencies {
				fmt.Printf("    %d: %s\n", dep.Slot, dep.Specifier)
			}
			continue
		}

		dest := path
		if *outDir != "" {
			dest = filepath.Join(*outDir, out.file.rel)
			if err := writeOutput(path, dest, result.Code); err != nil {
				failedFiles++
				printErrorMessage(" error ", err)
				continue
			}
			printSuccess(fmt.Sprintf("%s (%d dependencies)", dest, len(result.Dependencies)))
		} else {
			// No -o flag: print to stdout (only useful for single files).
			os.Stdout.Write(result.Code)
			fmt.Println()
		}

		if *meta {
			if err := writeMeta(dest+".deps.yaml", path, result); err != nil {
				failedFiles++
				printErrorMessage(" error ", err)
			}
		}
	}

	if *dryRun || *outDir != "" {
		printInfo(fmt.Sprintf("\n%d file(s) with %d total dependencies, %d failed", totalFiles, totalDeps, failedFiles))
	}
	if failedFiles > 0 {
		os.Exit(1)
	}
}

type inputFile struct {
	path string

	// rel is the path below the argument the file was found under, used
	// to lay out the -o directory.
	rel string
}

// checkDestinations rejects inputs that would be written to the same path
// under the -o directory.
func checkDestinations(files []inputFile) error {
	seen := make(map[string]string, len(files))
	for _, file := range files {
		rel := filepath.Clean(file.rel)
		if prev, have := seen[rel]; have {
			return fmt.Errorf("%s and %s would both be written to %s", prev, file.path, rel)
		}
		seen[rel] = file.path
	}
	return nil
}

type outcome struct {
	file      inputFile
	result    *transform.Result
	err       error
	verifyErr error
}

// transformAll runs up to jobs transforms at once. Each run owns its state,
// so the only shared value is the cache. Outcomes keep the input order.
func transformAll(files []inputFile, cfg *config.Config, c *cache.Cache, jobs int) []outcome {
	if jobs < 1 {
		jobs = 1
	}

	outcomes := make([]outcome, len(files))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				outcomes[i] = transformFile(files[i], cfg, c)
			}
		}()
	}

	for i := range files {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return outcomes
}

func transformFile(file inputFile, cfg *config.Config, c *cache.Cache) outcome {
	out := outcome{file: file}

	source, err := os.ReadFile(file.path)
	if err != nil {
		out.err = err
		return out
	}

	options := cfg.TransformOptions(file.path)

	var key []byte
	if c != nil {
		key = cache.Key(source, options)
		result, hit, err := c.Get(key)
		if err != nil {
			printWarningMessage(" cache ", err.Error())
		} else if hit {
			out.result = result
		}
	}

	if out.result == nil {
		if out.result, out.err = transform.Transform(source, options); out.err != nil {
			return out
		}
		if c != nil {
			if err := c.Put(key, out.result); err != nil {
				printWarningMessage(" cache ", err.Error())
			}
		}
	}

	// goja only understands plain JavaScript
	if cfg.Verify && !parser.LanguageForFile(file.path).IsTyped() {
		out.verifyErr = verifyFactory(out.result, cfg.GlobalPrefix, file.path)
	}
	return out
}

func verifyFactory(result *transform.Result, globalPrefix, filename string) error {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	exe, err := runtime.Run(ctx, result.Code, runtime.Options{
		Filename:     filename,
		GlobalPrefix: globalPrefix,
		RegisterOnly: true,
	})
	if err != nil {
		return err
	}
	if exe.Arity != len(result.FactoryParams) {
		return fmt.Errorf("factory takes %d parameters, want %d", exe.Arity, len(result.FactoryParams))
	}
	return nil
}

func writeOutput(src, dest string, code []byte) error {
	// Preserve original file permissions.
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, code, info.Mode()); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

type metadata struct {
	File             string `yaml:"file"`
	transform.Result `yaml:",inline"`
}

func writeMeta(dest, src string, result *transform.Result) error {
	bs, err := yaml.Marshal(&metadata{File: src, Result: *result})
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, bs, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// collectFiles walks a directory and returns all files matching the extension set.
func collectFiles(root string, extSet map[string]bool, recursive bool) ([]inputFile, error) {
	var files []inputFile

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories and node_modules.
			name := d.Name()
			if name != "." && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			if name == "node_modules" || name == "vendor" || name == "dist" || name == "build" {
				return fs.SkipDir
			}
			if !recursive && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, inputFile{path: path, rel: rel})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, err
	}
	return files, nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

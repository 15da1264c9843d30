// Package main is the entry point for CourseLedger (cld), a single-node
// course registry ledger driven from the command line. Every subcommand maps
// to a handler in internal/cli; mutating commands sign a transaction with a
// local key and apply it through the runtime node.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"courseledger.dev/cld/internal/cli"
	"courseledger.dev/cld/internal/config"
	"courseledger.dev/cld/internal/keyring"
	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/logging"
	"courseledger.dev/cld/internal/runtime"
	"courseledger.dev/cld/internal/types"
)

const defaultConfigFile = "cld.json"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// A .env file can supply CLD_* overrides in development.
	_ = godotenv.Load()

	cfgPath := os.Getenv(config.EnvConfigFile)
	if cfgPath == "" {
		cfgPath = defaultConfigFile
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cld: load config: %v\n", err)
		os.Exit(1)
	}

	logs, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cld: init logging: %v\n", err)
		os.Exit(1)
	}
	defer logs.Closer()

	if err := dispatch(os.Args[1], os.Args[2:], cfg, cfgPath, logs); err != nil {
		fmt.Fprintf(os.Stderr, "cld: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string, cfg *config.Config, cfgPath string, logs *logging.Log) error {
	switch cmd {
	case "init":
		return runInit(args, cfg, cfgPath, logs)

	case "version":
		fmt.Printf("cld %s (%s)\n", types.Version, types.BuildTime)
		return nil

	case "help", "-h", "--help":
		usage()
		return nil

	case "keygen":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		name := fs.String("name", "", "alias for the new key")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleKeygen(*name)
		})

	case "keys":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleKeys()
		})

	case "whoami":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleWhoami(*sig)
		})

	case "register-user":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		name := fs.String("name", "", "display name (1-50 bytes)")
		email := fs.String("email", "", "contact email (1-100 bytes)")
		role := fs.String("role", "student", "student, instructor, or admin")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleRegisterUser(*sig, *name, *email, *role)
		})

	case "create-course":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		title := fs.String("title", "", "course title (1-100 bytes)")
		desc := fs.String("description", "", "course description (1-500 bytes)")
		capacity := fs.Uint64("capacity", 0, "maximum enrollments, > 0")
		start := fs.Uint64("start", 0, "start date as a block height")
		end := fs.Uint64("end", 0, "end date as a block height, after start")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleCreateCourse(*sig, *title, *desc, *capacity, *start, *end)
		})

	case "enroll":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleEnroll(*sig, *course)
		})

	case "add-material":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		title := fs.String("title", "", "material title (1-100 bytes)")
		url := fs.String("url", "", "content URL (1-500 bytes)")
		mtype := fs.String("type", "", "video, pdf, text, or quiz")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleAddMaterial(*sig, *course, *title, *url, *mtype)
		})

	case "update-progress":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		progress := fs.Uint64("progress", 0, "progress percentage (0-100)")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleUpdateProgress(*sig, *course, *progress)
		})

	case "deactivate-course":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		sig := signerFlags(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleDeactivateCourse(*sig, *course)
		})

	case "user":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		principal := fs.String("principal", "", "principal as 64 hex characters")
		as := fs.String("as", "", "keyring alias to look up instead of --principal")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleGetUser(*principal, *as)
		})

	case "course":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleGetCourse(*course)
		})

	case "enrollment":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		principal := fs.String("principal", "", "student principal as 64 hex characters")
		as := fs.String("as", "", "keyring alias to look up instead of --principal")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleGetEnrollment(*course, *principal, *as)
		})

	case "material":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		material := fs.Uint64("material", 0, "material id within the course")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleGetMaterial(*course, *material)
		})

	case "materials-count":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		course := fs.Uint64("course", 0, "course id")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleMaterialsCount(*course)
		})

	case "last-course-id":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleLastCourseID()
		})

	case "height":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleHeight()
		})

	case "status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleStatus()
		})

	case "txlog":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		limit := fs.Int("limit", 20, "maximum records to list")
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleTxLog(*limit)
		})

	case "snapshot":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleSnapshot()
		})

	case "restore":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		data := dataFlag(fs, cfg)
		fs.Parse(args)
		return run(*data, cfg, logs, func(svc *cli.Service) error {
			return svc.HandleRestore()
		})

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// run opens the ledger under dataDir and hands a ready Service to fn.
func run(dataDir string, cfg *config.Config, logs *logging.Log, fn func(svc *cli.Service) error) error {
	store, err := ledger.NewStore(filepath.Join(dataDir, ledger.DefaultDBFile))
	if err != nil {
		return err
	}
	defer store.Close()

	node, err := runtime.Open(store, logs.Sugar)
	if err != nil {
		return err
	}
	ring, err := keyring.Open(dataDir)
	if err != nil {
		return err
	}
	return fn(cli.NewService(node, store, ring, logs, cfg.MaxBackups, os.Stdout))
}

// runInit creates the data directory and genesis metadata, and writes a
// default config file when none exists yet.
func runInit(args []string, cfg *config.Config, cfgPath string, logs *logging.Log) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	data := dataFlag(fs, cfg)
	chain := fs.String("chain", cfg.ChainName, "chain name written to the genesis metadata")
	fs.Parse(args)

	result, err := cli.Init(*data, *chain)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(cfgPath); errors.Is(statErr, os.ErrNotExist) {
		fileCfg := *cfg
		fileCfg.DataDir = *data
		fileCfg.ChainName = *chain
		if raw, err := json.MarshalIndent(&fileCfg, "", "  "); err == nil {
			if err := os.WriteFile(cfgPath, raw, 0o644); err == nil {
				logs.Sugar.Infow("wrote default config", "path", cfgPath)
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func dataFlag(fs *flag.FlagSet, cfg *config.Config) *string {
	return fs.String("data", cfg.DataDir, "ledger data directory")
}

func signerFlags(fs *flag.FlagSet, cfg *config.Config) *cli.Signer {
	sig := &cli.Signer{}
	fs.StringVar(&sig.As, "as", "", "keyring alias that signs the transaction")
	fs.StringVar(&sig.KeyFile, "key", cfg.KeyFile, "PEM signing key path (wins over --as)")
	return sig
}

func usage() {
	fmt.Fprintf(os.Stderr, `cld %s - CourseLedger, a single-node course registry ledger

Usage:
  cld <command> [flags]

Setup:
  init               initialize a data directory and genesis metadata
  keygen             create a named signing key
  keys               list signing keys
  whoami             show the principal behind a signing key

Transactions (signed with --as <key> or --key <file>):
  register-user      register the signer as a user
  create-course      create a course (instructor or admin)
  enroll             enroll the signer in a course
  add-material       attach a content item to an owned course
  update-progress    record course progress (0-100)
  deactivate-course  close a course to enrollments and updates

Queries:
  user, course, enrollment, material, materials-count,
  last-course-id, height, status, txlog

Operations:
  snapshot           write a timestamped ledger backup
  restore            restore the most recent backup
  version            print the cld version

Run 'cld <command> -h' for the command's flags.
`, types.Version)
}

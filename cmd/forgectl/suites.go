package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/testforge/suite-service/internal/config"
	"github.com/testforge/suite-service/internal/dashboard"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/localstore"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/storage"
)

// suiteFile is the YAML document read by import and written by export
type suiteFile struct {
	Suites []domain.TestSuite `yaml:"suites"`
}

type sourceFlags struct {
	owner   string
	offline bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "user id owning the suites (required)")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "use the local store instead of the backend")
	cmd.MarkFlagRequired("owner")
}

func newImportCommand(configFile *string) *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "import <suites.yaml>",
		Short: "Import test suites from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			suites, err := decodeSuites(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			source, closeSource, err := openSourceFromFlags(*configFile, flags)
			if err != nil {
				return err
			}
			defer closeSource()

			imported, err := importSuites(cmd.Context(), source, flags.owner, suites, cmd.ErrOrStderr())
			color.Green("Imported %d of %d test suite(s)", imported, len(suites))
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func newExportCommand(configFile *string) *cobra.Command {
	var flags sourceFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the test suites of a user as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, closeSource, err := openSourceFromFlags(*configFile, flags)
			if err != nil {
				return err
			}
			defer closeSource()

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			n, err := exportSuites(cmd.Context(), source, w)
			if err != nil {
				return err
			}
			if w != cmd.OutOrStdout() {
				color.Green("Exported %d test suite(s) to %s", n, output)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func openSourceFromFlags(configFile string, flags sourceFlags) (dashboard.Source, func(), error) {
	owner, err := uuid.Parse(flags.owner)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid owner id %q: %w", flags.owner, err)
	}
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return openSource(cfg, owner, flags.offline)
}

// openSource returns where the suites of owner live: the user's local
// store list, or the backend
func openSource(cfg *config.Config, owner uuid.UUID, offline bool) (dashboard.Source, func(), error) {
	noop := func() {}

	if offline {
		switch cfg.LocalType {
		case config.LocalCSV:
			store, err := localstore.NewCSVStore(cfg.LocalPath)
			if err != nil {
				return nil, nil, err
			}
			return dashboard.NewLocalSource(store, owner), noop, nil
		case config.LocalRedis:
			client, err := localstore.NewRedisClient(cfg.RedisURL)
			if err != nil {
				return nil, nil, err
			}
			return dashboard.NewLocalSource(localstore.NewRedisStore(client), owner), func() { client.Close() }, nil
		default:
			return nil, nil, fmt.Errorf("local store type %q does not outlive the process", cfg.LocalType)
		}
	}

	switch cfg.BackendType {
	case config.BackendMySQL:
		backend, err := storage.NewMySQLBackend(cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return dashboard.NewNetworkSource(service.NewSuites(backend), owner.String()), func() { backend.Close() }, nil
	case config.BackendHTTP:
		backend, err := storage.NewHTTPBackend(cfg.BackendURL, cfg.BackendProjectID, cfg.BackendPublicKey)
		if err != nil {
			return nil, nil, err
		}
		return dashboard.NewNetworkSource(service.NewSuites(backend), owner.String()), noop, nil
	default:
		return nil, nil, fmt.Errorf("backend type %q does not outlive the process", cfg.BackendType)
	}
}

// decodeSuites reads a suite file, fills defaults and validates every suite
func decodeSuites(r io.Reader) ([]domain.TestSuite, error) {
	var file suiteFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.TestSuite{}, nil
		}
		return nil, err
	}

	for i := range file.Suites {
		file.Suites[i].ApplyDefaults()
		if err := file.Suites[i].Validate(); err != nil {
			return nil, fmt.Errorf("suite %d: %w", i+1, err)
		}
	}
	if file.Suites == nil {
		file.Suites = []domain.TestSuite{}
	}
	return file.Suites, nil
}

// importSuites saves every suite for owner and reports progress to out.
// Failed suites are skipped; their errors are returned together.
func importSuites(ctx context.Context, source dashboard.Source, owner string, suites []domain.TestSuite, out io.Writer) (int, error) {
	bar := progressbar.NewOptions(len(suites),
		progressbar.OptionSetDescription(color.CyanString("Importing test suites")),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	now := time.Now().UTC()
	imported := 0
	var errs []error
	for _, suite := range suites {
		suite.CreatedBy = owner
		if suite.CreatedAt.IsZero() {
			suite.CreatedAt = now
		}
		if suite.UpdatedAt.IsZero() {
			suite.UpdatedAt = suite.CreatedAt
		}
		for i := range suite.TestCases {
			suite.TestCases[i].CreatedBy = owner
		}

		if _, err := source.Save(ctx, suite); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s", suite.Name, service.Message(err)))
		} else {
			imported++
		}
		bar.Add(1)
	}
	bar.Finish()

	return imported, errors.Join(errs...)
}

// exportSuites writes the source's suites as a suite file
func exportSuites(ctx context.Context, source dashboard.Source, w io.Writer) (int, error) {
	suites, err := source.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list test suites: %s", service.Message(err))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(suiteFile{Suites: suites}); err != nil {
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	return len(suites), nil
}

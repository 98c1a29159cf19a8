package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-portal-metrics/components/dashboard/commands"
	"github.com/goliatone/go-portal-metrics/components/dashboard/httpapi"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

type importCmd struct {
	Dataset    string `arg:"" help:"Dataset to replace (responsiveness, commitment_trends, engagement, client_submissions, collaboration, top_features, forums)."`
	File       string `arg:"" type:"existingfile" help:"CSV or XLSX file to load."`
	Product    string `help:"Product the rows belong to. Required when the file has no product column."`
	UploadedBy string `name:"uploaded-by" env:"USER" help:"Recorded in the upload history."`
}

func (cmd *importCmd) Run(ctx context.Context, g *Globals) error {
	dataset, err := httpapi.ParseDataset(cmd.Dataset)
	if err != nil {
		return err
	}
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := openData(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	file, err := os.Open(cmd.File) //nolint:gosec
	if err != nil {
		return fmt.Errorf("portalctl: open %s: %w", cmd.File, err)
	}
	defer file.Close()

	var result csvimport.Result
	command := commands.NewImportDatasetCommand(data.importer, nil, data.recorder)
	err = command.Execute(ctx, commands.ImportDatasetInput{
		Dataset:    dataset,
		Product:    cmd.Product,
		Filename:   filepath.Base(cmd.File),
		File:       file,
		UploadedBy: cmd.UploadedBy,
		Result:     &result,
	})
	if err != nil {
		printImportErrors(os.Stderr, err)
		return err
	}
	logger.Info("dataset imported",
		zap.String("dataset", string(result.Dataset)),
		zap.String("product", result.Product),
		zap.Int("rows_read", result.RowsRead),
		zap.Int("rows_written", result.RowsWritten),
		zap.Strings("quarters", result.Quarters),
	)
	fmt.Fprintf(os.Stdout, "✓ Replaced %s for %s with %d rows (%s)\n",
		result.Dataset, result.Product, result.RowsWritten, strings.Join(result.Quarters, ", "))
	return nil
}

// printImportErrors lists row errors one per line.
func printImportErrors(w io.Writer, err error) {
	var rows *csvimport.ImportErrors
	if !errors.As(err, &rows) {
		return
	}
	for _, rowErr := range rows.Errors {
		fmt.Fprintf(w, "  %s\n", strings.TrimPrefix(rowErr.Error(), "csvimport: "))
	}
	if rows.Dropped > 0 {
		fmt.Fprintf(w, "  ... %d more\n", rows.Dropped)
	}
}

type templateCmd struct {
	Dataset string `arg:"" optional:"" help:"Dataset to write; all datasets when omitted."`
	Format  string `default:"csv" enum:"csv,xlsx" help:"Template format (csv, xlsx)."`
	Out     string `default:"." type:"path" help:"Output directory."`
}

func (cmd *templateCmd) Run() error {
	layouts := csvimport.Layouts()
	if cmd.Dataset != "" {
		dataset, err := httpapi.ParseDataset(cmd.Dataset)
		if err != nil {
			return err
		}
		layout, err := csvimport.LayoutFor(dataset)
		if err != nil {
			return err
		}
		layouts = []csvimport.Layout{layout}
	}
	if err := os.MkdirAll(cmd.Out, 0o755); err != nil {
		return fmt.Errorf("portalctl: mkdir %s: %w", cmd.Out, err)
	}
	for _, layout := range layouts {
		path, err := writeTemplate(cmd.Out, layout, cmd.Format)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Wrote %s\n", path)
	}
	return nil
}

func writeTemplate(dir string, layout csvimport.Layout, format string) (string, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case "xlsx":
		body, err = csvimport.WorkbookTemplate(layout)
	default:
		format = "csv"
		body, err = csvimport.Template(layout)
	}
	if err != nil {
		return "", fmt.Errorf("portalctl: render %s template: %w", layout.Dataset, err)
	}
	path := filepath.Join(dir, csvimport.TemplateFilename(layout, format))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("portalctl: write %s: %w", path, err)
	}
	return path, nil
}

type migrateCmd struct{}

func (cmd *migrateCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := openData(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	if err := data.store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema applied",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("datasets", len(metrics.Datasets())),
	)
	return nil
}

type userCmd struct {
	Add  userAddCmd  `cmd:"" help:"Create a user in the allowed domain."`
	List userListCmd `cmd:"" help:"List users."`
}

type userAddCmd struct {
	Email    string `arg:"" help:"Email address; must belong to the allowed domain."`
	Password string `env:"PORTAL_USER_PASSWORD" required:"" help:"Initial password."`
}

func (cmd *userAddCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := openData(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	service, err := newAuthService(cfg, data, false)
	if err != nil {
		return err
	}
	user, err := service.CreateUser(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Created %s (%s)\n", user.Email, user.ID)
	return nil
}

type userListCmd struct{}

func (cmd *userListCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.Load()
	if err != nil {
		return err
	}
	logger, err := g.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := openData(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	users, err := data.store.Users(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", user.ID, user.Email, user.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
